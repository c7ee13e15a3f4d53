// Package process finds the game process and reports whether it is still
// running.
package process

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gops "github.com/shirou/gopsutil/v3/process"
)

// ErrNotFound is returned when no process matches the requested name.
var ErrNotFound = errors.New("process not found")

// Process is a handle to a running process.
type Process struct {
	proc *gops.Process
	name string
	exe  string
}

// PID returns the process id.
func (p *Process) PID() int32 { return p.proc.Pid }

// Name returns the process name as reported by the OS.
func (p *Process) Name() string { return p.name }

// ExePath returns the absolute path of the process executable.
func (p *Process) ExePath() string { return p.exe }

// Running reports whether the process is still alive. A recycled pid does
// not count: gopsutil compares the creation time recorded at lookup.
func (p *Process) Running(ctx context.Context) bool {
	ok, err := p.proc.IsRunningWithContext(ctx)
	return err == nil && ok
}

// Find returns the first running process whose name matches name. Processes
// that exit or deny access while being inspected are skipped.
func Find(ctx context.Context, name string) (*Process, error) {
	procs, err := gops.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	for _, p := range procs {
		pname, err := p.NameWithContext(ctx)
		if err != nil || !MatchName(pname, name) {
			continue
		}
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			continue
		}
		return &Process{proc: p, name: pname, exe: exe}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// MatchName compares a process name against the wanted executable name,
// ignoring case and a trailing ".exe" on either side.
func MatchName(procName, want string) bool {
	trim := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.TrimSuffix(s, ".exe")
	}
	w := trim(want)
	return w != "" && trim(procName) == w
}
