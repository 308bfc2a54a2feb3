package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/morning-brief/internal/config"
	"github.com/ryosukesatoh/morning-brief/internal/format"
	"github.com/ryosukesatoh/morning-brief/internal/httpx"
	"github.com/ryosukesatoh/morning-brief/internal/logx"
	"github.com/ryosukesatoh/morning-brief/internal/publisher"
	"github.com/ryosukesatoh/morning-brief/internal/runner"
	"github.com/ryosukesatoh/morning-brief/internal/summarizer"
)

var Version = "dev"

type options struct {
	configPath string
	envPath    string
	sources    []string
	dryRun     bool
	raw        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "morning-brief",
		Short:         "Collect today's weather, mail, assignments and reminders into one briefing",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBriefing(cmd.Context(), cmd.OutOrStdout(), stderr, opts)
		},
	}
	root.SetOut(stdout)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: "+config.DefaultPath+" or built-in)")
	root.PersistentFlags().StringVar(&opts.envPath, "env", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().StringSliceVar(&opts.sources, "sources", nil, "comma-separated sources to query, overriding the config")
	root.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the briefing instead of sending it")
	root.Flags().BoolVar(&opts.raw, "raw", false, "print the collected data without summarizing or sending")

	root.AddCommand(sourcesCmd(opts))
	return root
}

func sourcesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List known sources and whether they are enabled and configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			enabled := make(map[string]bool, len(cfg.Sources))
			for _, s := range cfg.Sources {
				enabled[s] = true
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tENABLED\tCREDENTIALS")
			for _, s := range config.KnownSources {
				creds := "missing"
				if cfg.Configured(s) {
					creds = "ok"
				}
				fmt.Fprintf(tw, "%s\t%t\t%s\n", s, enabled[s], creds)
			}
			return tw.Flush()
		},
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	if err := config.LoadEnv(opts.envPath); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if len(opts.sources) > 0 {
		if err := cfg.SetSources(opts.sources); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(stderr io.Writer) zerolog.Logger {
	lc, err := logx.FromEnv()
	logger := logx.New(stderr, lc)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring invalid log settings")
	}
	return logger
}

func runBriefing(ctx context.Context, stdout, stderr io.Writer, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := newLogger(stderr)
	ctx = logger.WithContext(ctx)

	client := httpx.NewClient(cfg.HTTPTimeout)
	fetchers, err := buildFetchers(cfg, client)
	if err != nil {
		return err
	}

	if opts.raw {
		payload := runner.New(fetchers, nil, nil, cfg.Zone()).Collect(ctx)
		fmt.Fprintln(stdout, format.Briefing(payload.Results))
		return nil
	}

	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}
	sum, err := summarizer.New(gen, cfg.Summarizer.Model, cfg.Summarizer.MaxTokens, cfg.Summarizer.SystemPrompt, cfg.Sources)
	if err != nil {
		return err
	}

	var pub publisher.Publisher = publisher.NewStdoutPublisher(stdout)
	if !opts.dryRun {
		if pub, err = buildPublisher(cfg, client, stdout); err != nil {
			return err
		}
	}

	report, err := runner.New(fetchers, sum, []publisher.Publisher{pub}, cfg.Zone()).Run(ctx)
	if err != nil {
		return err
	}
	for _, d := range report.Deliveries {
		logger.Info().Str("run_id", report.RunID).Str("publisher", d.Publisher).Str("id", d.ID).Msg("briefing delivered")
	}
	return nil
}
