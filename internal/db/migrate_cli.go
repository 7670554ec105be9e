package db

import (
	"fmt"
	"io"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching.
func RunMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp(w)
		return fmt.Errorf("migrate: missing action")
	}

	if args[0] == "help" {
		PrintMigrateHelp(w)
		return nil
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
		fmt.Fprintln(w, "all migrations applied")

	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(w, "rolled back one migration")

	case "status":
		version, dirty, err := database.MigrateVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "version %d dirty=%t\n", version, dirty)

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: hodosim migrate force <version_number>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.MigrateForce(version); err != nil {
			return err
		}
		fmt.Fprintf(w, "forced version %d\n", version)

	default:
		PrintMigrateHelp(w)
		return fmt.Errorf("unknown migrate action: %s", action)
	}
	return nil
}

// PrintMigrateHelp lists the migrate actions.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: hodosim migrate -db <path> <action>

Actions:
  up               apply all pending migrations
  down             roll back the most recent migration
  status           print the current version and dirty state
  force <version>  set the version without running migrations
  help             show this message
`)
}
