//go:build !rp2040

// Command trigger-host runs the interrupt action triggers on the host against simulated pins.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"actorcode-go/logging"
	"actorcode-go/services/storage"
)

const (
	flagSettings  = "settings"
	flagManifest  = "manifest"
	flagLogFile   = "log-file"
	flagPOSTDelay = "post-delay"
	flagDebug     = "debug"
	flagNoStdin   = "no-stdin"
)

var errUsage = errors.New("usage: pulse <pin> | set <pin> <0|1>")

func main() {
	app := &cli.App{
		Name:  "trigger-host",
		Usage: "run interrupt action triggers against simulated pins",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: flagDebug, Usage: "enable debug logging"},
			&cli.StringFlag{Name: flagLogFile, Usage: "also write a rotated log to `FILE`"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "boot the actors and read pin commands from stdin",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagSettings,
						Usage: "settings root `DIR`; settings are kept in memory when empty",
					},
					&cli.StringFlag{Name: flagManifest, Usage: "actor manifest `FILE` (YAML)"},
					&cli.DurationFlag{
						Name:  flagPOSTDelay,
						Usage: "override the manifest's delay before POST passes",
						Value: -1,
					},
					&cli.BoolFlag{Name: flagNoStdin, Usage: "do not read pin commands from stdin"},
				},
				Action: runAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	log := logging.NewLogger("trigger", logging.Options{
		Debug:      c.Bool(flagDebug),
		File:       c.String(flagLogFile),
		MaxSizeMB:  5,
		MaxBackups: 3,
	})

	m, err := LoadManifest(c.String(flagManifest))
	if err != nil {
		return err
	}
	if d := c.Duration(flagPOSTDelay); d >= 0 {
		m.POSTDelay = d
	}

	store := storage.NewMemory()
	dir := c.String(flagSettings)
	if dir != "" {
		store = storage.NewOS(dir)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, err := boot(ctx, bootOptions{Manifest: m, Store: store, Log: log, Watch: dir != ""})
	if err != nil {
		return errors.Wrap(err, "boot")
	}
	var stdin io.Reader
	if !c.Bool(flagNoStdin) {
		stdin = os.Stdin
	}
	start := time.Now()
	err = sys.run(ctx, stdin)
	log.Infof("stopped after %s", time.Since(start).Round(time.Millisecond))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
