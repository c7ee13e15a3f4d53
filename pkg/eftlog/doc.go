// Package eftlog watches Escape From Tarkov log files and turns them into
// typed events.
//
// This package allows you to:
//   - Detect the running game and follow its active log session
//   - Receive raid, quest, queue and flea market events as they happen
//   - Define custom event patterns via YAML configuration
//   - Classify existing log files offline
//
// # Basic Usage
//
// To monitor the game in real time:
//
//	mon, err := eftlog.NewMonitor(eftlog.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mon.Close()
//
//	mon.Bus().OnRaidExited(func(ev eftlog.RaidExited) {
//	    fmt.Printf("left %s (raid %s)\n", ev.Map, ev.RaidID)
//	})
//	mon.Bus().OnMarketplaceSale(func(ev eftlog.MarketplaceSaleCompleted) {
//	    fmt.Printf("%s bought %dx %s\n", ev.Buyer, ev.SoldItemCount, ev.SoldItemID)
//	})
//
//	if err := mon.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	<-ctx.Done()
//
// Only lines appended after a log file is first seen are reported; the
// backlog already on disk is skipped. Use [ParseFile] to classify a whole
// file instead.
//
// # Custom Rules
//
// Implement the [Rule] interface, or load regex rules from YAML with the
// [pattern] subpackage, and pass them with [WithRules]:
//
//	rules, err := pattern.NewRulesFromFile("patterns.yaml")
//	mon, err := eftlog.NewMonitor(eftlog.WithRules(rules))
//
// # Platform Support
//
// The game runs on Windows; process lookup and log discovery work wherever
// gopsutil does, and WithLogDir or EFTLOG_LOGDIR can point at a copied Logs
// folder for offline use.
//
// # Disclaimer
//
// This is an unofficial tool and is not affiliated with Battlestate Games.
package eftlog
