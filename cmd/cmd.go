package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/webitel/message-wall/config"
	"github.com/webitel/message-wall/internal/metrics"
)

const (
	ServiceName = "message-wall"
	defaultURL  = "http://localhost:3001"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Realtime moderated message wall",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
			monitorCmd(),
			logsCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:      "server",
		Aliases:   []string{"s"},
		Usage:     "Run the HTTP and websocket server",
		ArgsUsage: "[-- --addr=:3001 --admin-key=... --insecure --retention=50 --log-level=info --amqp-url=... --otel=...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config_file",
				Usage:   "Path to the configuration file",
				EnvVars: []string{"WALL_CONFIG_FILE"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"), c.Args().Slice())
			if err != nil {
				return err
			}
			metrics.BuildInfo.WithLabelValues(version, commit).Set(1)

			app := NewApp(cfg)
			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("SHUTTING_DOWN")
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return app.Stop(ctx)
		},
	}
}

// adminFlags address a running server.
func adminFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Usage:   "Base URL of the wall server",
			Value:   defaultURL,
			EnvVars: []string{"WALL_URL"},
		},
		&cli.StringFlag{
			Name:    "key",
			Usage:   "Admin key",
			EnvVars: []string{"WALL_ADMIN_KEY"},
		},
	}
}

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Live terminal dashboard of a running wall",
		Flags: append(adminFlags(),
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Polling interval",
				Value: 2 * time.Second,
			},
		),
		Action: func(c *cli.Context) error {
			client := NewAdminClient(c.String("url"), c.String("key"))
			return RunMonitor(c.Context, client, c.Duration("interval"))
		},
	}
}

func logsCmd() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "Print the newest journal entries of a running wall",
		Flags: append(adminFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of entries",
				Value: 20,
			},
		),
		Action: func(c *cli.Context) error {
			client := NewAdminClient(c.String("url"), c.String("key"))
			entries, err := client.Logs(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			return RenderLogs(os.Stdout, entries)
		},
	}
}
