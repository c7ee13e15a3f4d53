package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eftlog/eftlog-go/pkg/eftlog"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Extract events from existing log files",
	Long: `Read whole application or notifications log files and print every event
found in them, oldest first. Unlike monitor, nothing is skipped.

The stream of each file is taken from its name, so files must keep their
"application" or "notifications" suffix.

Examples:
  # All events from one session
  eftlog parse Logs/log_2024.05.01_18-00-00_0.14.1.0/*.log

  # Sales history as pretty text
  eftlog parse --types marketplace_sale --format pretty *notifications.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().String("bot-id", eftlog.DefaultMarketBotID,
		"Sender id of flea market sale notifications")
	parseCmd.Flags().StringSlice("patterns", nil,
		"Custom pattern files (YAML), may be repeated")
	addOutputFlags(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	rules, custom, err := loadRules(viper.GetStringSlice("patterns"))
	if err != nil {
		return err
	}
	w, err := outputWriter(cmd, custom)
	if err != nil {
		return err
	}

	opts := []eftlog.ParseOption{
		eftlog.WithParseRules(rules...),
		eftlog.WithParseMarketBotID(viper.GetString("bot-id")),
		eftlog.WithParseIncludeChunks(viper.GetBool("raw")),
		eftlog.WithParseLogger(newLogger(cmd.ErrOrStderr())),
	}

	for _, path := range args {
		events, err := eftlog.ParseFile(cmd.Context(), path, opts...)
		for _, ev := range events {
			w.Write(ev)
		}
		if err != nil {
			return err
		}
		if err := w.Err(); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}
