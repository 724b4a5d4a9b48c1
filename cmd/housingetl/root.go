package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"housingetl/internal/config"
	"housingetl/internal/logging"
	"housingetl/internal/storage"
)

// app holds the persistent flags shared by every subcommand.
type app struct {
	cfgPath string
	verbose bool
	logJSON bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "housingetl",
		Short: "Repair, reconcile and load the housing extracts",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(logging.Options{
				Verbose: a.verbose,
				JSON:    a.logJSON,
				Out:     cmd.ErrOrStderr(),
			})
		},
		// main logs the error with its class, so cobra stays quiet.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "pipeline config path (json, yaml or toml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logs")
	pf.BoolVar(&a.logJSON, "log-json", false, "log JSON lines instead of console output")

	root.AddCommand(
		newRunCmd(a),
		newValidateCmd(a),
		newQueryCmd(a),
	)
	return root
}

// load reads the pipeline config, or the defaults when no path was given.
func (a *app) load() (config.Pipeline, error) {
	if a.cfgPath == "" {
		return config.Defaults()
	}
	return config.Load(a.cfgPath)
}

// loadValid loads the config and fails on error-level issues. Every issue
// is printed to w.
func (a *app) loadValid(w io.Writer) (config.Pipeline, error) {
	p, err := a.load()
	if err != nil {
		return config.Pipeline{}, err
	}
	if err := checkIssues(w, config.ValidatePipeline(p)); err != nil {
		return config.Pipeline{}, err
	}
	return p, nil
}

func checkIssues(w io.Writer, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}

func storageConfig(p config.Pipeline) storage.Config {
	return storage.Config{
		Kind:           p.Storage.Kind,
		DSN:            p.Storage.DB.DSN,
		Table:          p.Storage.DB.Table,
		Columns:        p.Storage.DB.Columns,
		ConnectRetries: p.Storage.DB.ConnectRetries,
	}
}
