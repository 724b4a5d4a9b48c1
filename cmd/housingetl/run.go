package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"housingetl/internal/config"
	"housingetl/internal/etl"
	"housingetl/internal/metrics"
	"housingetl/internal/metrics/datadog"
	"housingetl/internal/metrics/prompush"
	"housingetl/internal/storage"
)

type runFlags struct {
	seed           uint64
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
	dryRun         bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline and load the merged records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.load()
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("seed") {
				p.Repair.Seed = f.seed
			}
			if fl.Changed("metrics-backend") {
				p.Metrics.Backend = f.metricsBackend
			}
			if fl.Changed("pushgateway-url") {
				p.Metrics.PushgatewayURL = f.pushgatewayURL
			}
			if fl.Changed("datadog-addr") {
				p.Metrics.DatadogAddr = f.datadogAddr
			}
			if err := checkIssues(cmd.ErrOrStderr(), config.ValidatePipeline(p)); err != nil {
				return err
			}
			return runPipeline(cmd, p, f.dryRun)
		},
	}

	fl := cmd.Flags()
	fl.Uint64Var(&f.seed, "seed", 0, "random fill seed; non-zero makes runs reproducible")
	fl.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog")
	fl.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL")
	fl.StringVar(&f.datadogAddr, "datadog-addr", "", "DogStatsD address, e.g. 127.0.0.1:8125")
	fl.BoolVar(&f.dryRun, "dry-run", false, "repair and merge but skip the database load")
	return cmd
}

var _ etl.Sink = (*storage.Sink)(nil)

func runPipeline(cmd *cobra.Command, p config.Pipeline, dryRun bool) error {
	ctx := cmd.Context()

	flush, err := setupMetrics(p)
	if err != nil {
		return err
	}
	defer flush()

	srcs, err := etl.SourcesFromConfig(p.Sources)
	if err != nil {
		return err
	}
	in, err := etl.Ingest(ctx, srcs, etl.CSVParsers(p.Parser.Options))
	if err != nil {
		return err
	}

	var sink etl.Sink
	if !dryRun {
		sink = storage.NewSink(storageConfig(p), storage.SinkOptions{
			AutoCreateTable: p.Storage.DB.AutoCreateTable,
			BatchSize:       p.Runtime.BatchSize,
			ChannelBuffer:   p.Runtime.ChannelBuffer,
		})
	}

	sum, err := etl.New(etl.OptionsFrom(p), sink).Run(ctx, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: merged %s rows, inserted %s, dropped %d corrupt keys, %d repairs\n",
		sum.RunID,
		humanize.Comma(int64(sum.Merged)),
		humanize.Comma(sum.Inserted),
		total(sum.Dropped),
		total(sum.Repairs),
	)
	return nil
}

// setupMetrics installs the configured backend and returns its flush.
func setupMetrics(p config.Pipeline) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "pushgateway":
		b, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.DatadogAddr,
			GlobalTags: []string{"job:" + p.Job},
		})
	default:
		return func() {}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	metrics.SetBackend(b)
	log.Debug().Str("backend", p.Metrics.Backend).Msg("metrics: enabled")
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn().Err(err).Msg("metrics: flush failed")
		}
	}, nil
}

func total(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
