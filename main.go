package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schmitthub/crispy-succotash/internal/build"
	"github.com/schmitthub/crispy-succotash/internal/cmd"
	"github.com/schmitthub/crispy-succotash/internal/update"
)

const releaseRepo = "schmitthub/crispy-succotash"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCmd(build.Version, build.Date)
	executed, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		return err
	}
	if !cmd.UpdateCheckEnabled(executed) {
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	statePath, stateErr := update.DefaultStatePath()
	if stateErr != nil {
		fmt.Fprintf(os.Stderr, "warning: update check: %v\n", stateErr)
		return nil
	}

	result, checkErr := update.CheckForUpdate(checkCtx, update.Options{
		StatePath:      statePath,
		CurrentVersion: build.Version,
		Repo:           releaseRepo,
	})
	if checkErr != nil {
		// Update check is best-effort; don't fail the CLI for transient errors.
		return nil
	}
	if result == nil || !result.UpdateAvailable {
		return nil
	}

	fmt.Fprintf(
		os.Stderr,
		"\nUpdate available: %s -> %s\n%s\n\n",
		result.CurrentVersion,
		result.LatestVersion,
		result.ReleaseURL,
	)

	return nil
}
