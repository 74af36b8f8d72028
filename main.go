package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vicentereig/mediabot/internal/commands"
	"github.com/vicentereig/mediabot/internal/config"
	"github.com/vicentereig/mediabot/internal/logging"
)

var (
	// version is overridden at build time via -ldflags "-X main.version=X.Y.Z"
	version = "dev"
)

// authTimeout bounds how long the QR pairing flow may wait for a scan.
const authTimeout = 5 * time.Minute

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mediabot",
		Short:         "Chat bot that downloads videos and audio from YouTube, TikTok and Instagram links",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(
		newRunCmd(opts),
		newAuthCmd(opts),
		newProbeCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			return opts.app(cfg).Run(cmd.Context())
		},
	}
}

func newAuthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Pair with WhatsApp by scanning a QR code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(opts.configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
			defer cancel()
			fmt.Fprintln(cmd.OutOrStdout(), opts.app(cfg).Auth(ctx))
			return nil
		},
	}
}

func newProbeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report which external tools are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(opts.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), opts.app(cfg).Probe())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app := commands.NewApp(config.Default(), logging.New("error", "json", io.Discard), version)
			fmt.Fprintln(cmd.OutOrStdout(), app.Version())
		},
	}
}

func (o *rootOptions) app(cfg *config.Config) *commands.App {
	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger := logging.New(level, cfg.Log.Format, os.Stderr)
	return commands.NewApp(cfg, logger, version)
}
