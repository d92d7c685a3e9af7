package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/logging"
	"github.com/ironsheep/video-brightness-mcp/internal/server"
	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	// Flags.
	flagConfig          = "config"
	flagLogLevel        = "log-level"
	flagDelta           = "delta"
	flagBackgroundIndex = "background-index"
	flagStart           = "start"
	flagEnd             = "end"
	flagCSV             = "csv"
	flagPlot            = "plot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(video.Open).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// runner carries what the command actions share.
type runner struct {
	open   server.Opener
	logger *zap.Logger
}

func newApp(open server.Opener) *cli.App {
	r := &runner{open: open, logger: zap.NewNop()}

	analysisFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load regions and analysis settings from `FILE` (.json)",
		},
		&cli.Float64Flag{
			Name:  flagDelta,
			Usage: "L* added to the baseline to form the detection threshold",
		},
		&cli.IntFlag{
			Name:  flagBackgroundIndex,
			Usage: "index of the background region, or -1 for none",
		},
	}

	return &cli.App{
		Name:    "brightness-mcp",
		Usage:   "MCP server and batch tools for video region brightness analysis",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				EnvVars: []string{logging.EnvLevel},
				Value:   "info",
				Usage:   "log level: debug, info, warn or error (logs go to stderr)",
			},
		},
		Before: func(c *cli.Context) error {
			logger, err := logging.New("brightness", c.String(flagLogLevel))
			if err != nil {
				return err
			}
			r.logger = logger
			return nil
		},
		After: func(c *cli.Context) error {
			// stderr sync fails on some platforms; nothing to do about it
			_ = r.logger.Sync()
			return nil
		},
		// With no command, serve MCP on stdio.
		Action: r.serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve MCP over stdin/stdout",
				Flags:  analysisFlags[:1],
				Action: r.serve,
			},
			{
				Name:      "detect",
				Usage:     "scan a video and print the lit frame range",
				ArgsUsage: "<video>",
				Flags:     analysisFlags,
				Action:    r.detect,
			},
			{
				Name:      "analyze",
				Usage:     "measure every region over a frame range and export the series",
				ArgsUsage: "<video>",
				Flags: append(append([]cli.Flag{}, analysisFlags...),
					&cli.IntFlag{
						Name:  flagStart,
						Usage: "first frame (inclusive); defaults to the configured or detected range",
					},
					&cli.IntFlag{
						Name:  flagEnd,
						Usage: "last frame (inclusive)",
					},
					&cli.PathFlag{
						Name:  flagCSV,
						Usage: "write the series as CSV to `FILE`",
					},
					&cli.PathFlag{
						Name:  flagPlot,
						Usage: "write a PNG chart of the series to `FILE`",
					},
				),
				Action: r.analyze,
			},
			{
				Name:  "version",
				Usage: "print version info for this program",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "brightness-mcp %s\n", Version)
					fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
					fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
					return nil
				},
			},
		},
	}
}

func (r *runner) serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r.logger.Debug("starting MCP server",
		zap.String("version", Version),
		zap.String("built", BuildTime),
		zap.String("commit", GitCommit))

	srv := server.New(
		server.WithLogger(r.logger),
		server.WithOpener(r.open),
		server.WithConfig(cfg),
		server.WithVersion(Version))
	return srv.Run(c.Context)
}
