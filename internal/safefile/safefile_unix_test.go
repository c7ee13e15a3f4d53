//go:build !windows

package safefile

import (
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func fifo(t *testing.T, dir string) string {
	path := filepath.Join(dir, "pipe notifications.log")
	require.NoError(t, syscall.Mkfifo(path, 0644))
	return path
}
