package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"housingetl/internal/config"
	"housingetl/internal/etl"
	"housingetl/internal/storage"
)

// peeker is implemented by sources that can fetch a prefix cheaply.
type peeker interface {
	Peek(ctx context.Context, n int) ([]byte, error)
}

func newValidateCmd(a *app) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the pipeline config and exit non-zero on errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.loadValid(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !slices.Contains(storage.ListKinds(), p.Storage.Kind) {
				return fmt.Errorf("storage kind %q is not compiled in (have %v)", p.Storage.Kind, storage.ListKinds())
			}
			if probe {
				if err := probeSources(cmd, p.Sources); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "fetch the first bytes of every http source")
	return cmd
}

func probeSources(cmd *cobra.Command, cfg config.Sources) error {
	srcs, err := etl.SourcesFromConfig(cfg)
	if err != nil {
		return err
	}
	for _, s := range []struct {
		name string
		src  any
	}{
		{"housing", srcs.Housing},
		{"income", srcs.Income},
		{"zip", srcs.Zip},
	} {
		pk, ok := s.src.(peeker)
		if !ok {
			continue
		}
		b, err := pk.Peek(cmd.Context(), 512)
		if err != nil {
			return fmt.Errorf("probe %s: %w", s.name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "probe %s: ok (%d bytes)\n", s.name, len(b))
	}
	return nil
}
