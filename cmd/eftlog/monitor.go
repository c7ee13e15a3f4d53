package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eftlog/eftlog-go/pkg/eftlog"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow game logs and output events",
	Long: `Wait for the game process, follow its newest log session and print
events as they are written.

Lines already in a log file when it is first seen are skipped; only new
activity is reported. Events are output as JSON Lines by default.

Examples:
  # Follow the running game (log folder found from the process)
  eftlog monitor

  # Use a specific Logs folder
  eftlog monitor --log-dir "D:\Games\EFT\Logs"

  # Only sales and queue times, human readable
  eftlog monitor --types marketplace_sale,queue_completed --format pretty

  # Add custom rules
  eftlog monitor --patterns my_rules.yaml

  # Pipe to jq for filtering
  eftlog monitor | jq 'select(.type == "raid_exited")'`,
	RunE: runMonitor,
}

func init() {
	addMonitorFlags(monitorCmd)
	addOutputFlags(monitorCmd)
}

// addMonitorFlags registers the flags shared by monitor and serve.
func addMonitorFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("log-dir", "d", "",
		"Game Logs folder (found from the game process if not specified)")
	f.String("process-name", eftlog.DefaultProcessName,
		"Game process name")
	f.Duration("process-interval", eftlog.DefaultProcessInterval,
		"How often to look for the game process")
	f.Duration("tail-interval", eftlog.DefaultTailInterval,
		"How often to poll log files for new text")
	f.Int("read-size", eftlog.DefaultReadSize,
		"Bytes per read when tailing")
	f.String("bot-id", eftlog.DefaultMarketBotID,
		"Sender id of flea market sale notifications")
	f.StringSlice("patterns", nil,
		"Custom pattern files (YAML), may be repeated")
}

func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("format", "f", "jsonl",
		"Output format: jsonl, pretty")
	f.StringSliceP("types", "t", nil,
		"Event types to show (comma-separated, e.g. raid_exited,quest_status_changed)")
	f.Bool("raw", false,
		"Include raw log chunks in output")
	f.String("color", "auto",
		"Color pretty output on terminals: auto, never")
}

// monitorOptions builds monitor options from the bound flags, config file
// and environment. It returns the custom event types of loaded pattern files.
func monitorOptions() ([]eftlog.MonitorOption, []eftlog.EventType, error) {
	rules, custom, err := loadRules(viper.GetStringSlice("patterns"))
	if err != nil {
		return nil, nil, err
	}

	opts := []eftlog.MonitorOption{
		eftlog.WithProcessName(viper.GetString("process-name")),
		eftlog.WithProcessInterval(viper.GetDuration("process-interval")),
		eftlog.WithTailInterval(viper.GetDuration("tail-interval")),
		eftlog.WithReadSize(viper.GetInt("read-size")),
		eftlog.WithMarketBotID(viper.GetString("bot-id")),
		eftlog.WithRules(rules...),
		eftlog.WithLogger(newLogger(os.Stderr)),
	}
	if dir := viper.GetString("log-dir"); dir != "" {
		opts = append(opts, eftlog.WithLogDir(dir))
	}
	return opts, custom, nil
}

// outputWriter builds the event writer for the bound output flags.
func outputWriter(cmd *cobra.Command, custom []eftlog.EventType) (*eventWriter, error) {
	format := viper.GetString("format")
	if !validFormats[format] {
		return nil, fmt.Errorf("invalid format %q (valid: jsonl, pretty)", format)
	}
	color := viper.GetString("color")
	if !validColors[color] {
		return nil, fmt.Errorf("invalid color mode %q (valid: auto, never)", color)
	}
	filter, err := buildTypeFilter(viper.GetStringSlice("types"), custom)
	if err != nil {
		return nil, err
	}
	w := newEventWriter(format, cmd.OutOrStdout(), filter)
	if format == "pretty" {
		w.palette = newPalette(cmd.OutOrStdout(), color)
	}
	return w, nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts, custom, err := monitorOptions()
	if err != nil {
		return err
	}
	w, err := outputWriter(cmd, custom)
	if err != nil {
		return err
	}
	w.onError = cancel

	m, err := eftlog.NewMonitor(opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	w.subscribe(m.Bus(), viper.GetBool("raw"))
	if err := m.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	if err := w.Err(); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}
