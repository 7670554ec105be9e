// Command hodosim replays transported events through the hodoscope
// sensitive detectors, generates primary particles and manages the hit
// database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/fsutil"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/timeutil"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := flag.Arg(0)
	args := flag.Args()[1:]
	fsys := fsutil.OSFileSystem{}

	var err error
	switch command {
	case "replay":
		err = runReplay(ctx, fsys, timeutil.RealClock{}, args, os.Stdout)
	case "generate":
		err = runGenerate(fsys, args, os.Stdout)
	case "migrate":
		err = runMigrate(args, os.Stdout)
	case "version":
		fmt.Printf("hodosim version %s\n", version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "hodosim %s: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hodosim - hodoscope hit aggregation for the acceptance study

Usage: hodosim <command> [options]

Commands:
  replay     Attribute the steps of a transport trace to hodoscope hits
  generate   Write primary particles for the transport engine
  migrate    Manage the hit database schema
  version    Show hodosim version
  help       Show this help message

Run 'hodosim <command> -h' for the options of a command.

Examples:
  # Replay a trace with 8 workers and keep the hits in hits.db
  hodosim replay -trace run42.jsonl -workers 8 -db hits.db

  # Dump every event's hits and expose metrics while replaying
  hodosim replay -trace run42.jsonl -print -metrics :9100

  # 1000 phase-space events from the configured reaction
  hodosim generate -config config/sim.defaults.json -n 1000 -o primaries.jsonl`)
}
