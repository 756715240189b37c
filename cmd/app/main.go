package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/rostersync/internal/app"
)

func main() {
	cmd := &cli.Command{
		Name:  "rostersync",
		Usage: "Offline-first roster store with bidirectional sync",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("ROSTERSYNC_ADDR"),
				Usage:   "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "./data",
				Sources: cli.EnvVars("ROSTERSYNC_DATA_DIR"),
				Usage:   "Directory holding collection files and the settings database",
			},
			&cli.StringFlag{
				Name:    "remote-url",
				Sources: cli.EnvVars("ROSTERSYNC_REMOTE_URL"),
				Usage:   "Remote table store endpoint (falls back to stored settings)",
			},
			&cli.StringFlag{
				Name:    "remote-key",
				Sources: cli.EnvVars("ROSTERSYNC_REMOTE_KEY"),
				Usage:   "Remote table store access key (falls back to stored settings)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("ROSTERSYNC_LOG_LEVEL"),
				Usage:   "Log level (trace, debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: runServe,
			},
			{
				Name:   "sync",
				Usage:  "Run one sync cycle and exit",
				Action: runSync,
			},
			{
				Name:  "seed",
				Usage: "Generate a sandbox dataset (requires SANDBOX mode)",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  "rand-seed",
						Usage: "Deterministic random seed (0 uses the clock)",
					},
				},
				Action: runSeed,
			},
			{
				Name:  "reset",
				Usage: "Delete every local collection and setting",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "confirm",
						Usage: "Required to actually delete anything",
					},
				},
				Action: runReset,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildApp(ctx context.Context, c *cli.Command) (*app.App, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Addr = c.String("addr")
	cfg.DataDir = c.String("data-dir")
	cfg.LogLevel = c.String("log-level")
	if v := c.String("remote-url"); v != "" {
		cfg.RemoteURL = v
	}
	if v := c.String("remote-key"); v != "" {
		cfg.RemoteKey = v
	}
	if cfg.SettingsDB == "" {
		cfg.SettingsDB = cfg.DataDir + "/settings.sqlite"
	}

	log := app.NewLogger(cfg.LogLevel)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("assemble application: %w", err)
	}
	return a, nil
}

func runServe(ctx context.Context, c *cli.Command) error {
	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	server := a.Server()
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case <-sigCh:
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runSync(ctx context.Context, c *cli.Command) error {
	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Syncer.Sync(ctx)
	if err != nil {
		return err
	}
	for _, res := range report.Results {
		status := "ok"
		if res.Failed() {
			status = res.Err.Error()
		}
		fmt.Printf("%-12s pulled=%d pushed=%d %s\n", res.Collection, res.Pulled, res.Pushed, status)
	}
	if !report.Ok() {
		return errors.New("sync finished with failures")
	}
	return nil
}

func runSeed(ctx context.Context, c *cli.Command) error {
	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Seeder.Seed(ctx, uint64(c.Uint("rand-seed")))
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d people, %d activities, %d attendance records\n",
		summary.People, summary.Activities, summary.Attendance)
	return nil
}

func runReset(ctx context.Context, c *cli.Command) error {
	if !c.Bool("confirm") {
		return errors.New("refusing to reset without --confirm")
	}

	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Entities.FactoryReset(ctx); err != nil {
		return err
	}
	if err := a.Registry.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("local data removed")
	return nil
}
