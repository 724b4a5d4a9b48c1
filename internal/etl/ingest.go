package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"housingetl/internal/config"
	"housingetl/internal/datasource"
	"housingetl/internal/datasource/file"
	"housingetl/internal/datasource/httpds"
	"housingetl/internal/parser"
	csvparser "housingetl/internal/parser/csv"
	"housingetl/internal/transformer"
	"housingetl/internal/transformer/builtin"
	"housingetl/pkg/records"
)

// Sources locates the three extracts.
type Sources struct {
	Housing datasource.Source
	Income  datasource.Source
	Zip     datasource.Source
}

// ParserFactory returns a fresh parser. Parsers are not shared between
// goroutines, so Ingest asks for one per source.
type ParserFactory func() parser.Parser

// CSVParsers returns a factory for CSV parsers configured from opts.
func CSVParsers(opts config.Options) ParserFactory {
	o := csvparser.OptionsFrom(opts)
	return func() parser.Parser { return csvparser.NewParser(o) }
}

// SourcesFromConfig builds data sources for the configured extracts.
func SourcesFromConfig(cfg config.Sources) (Sources, error) {
	var out Sources
	for _, s := range []struct {
		name string
		cfg  config.Source
		dst  *datasource.Source
	}{
		{"housing", cfg.Housing, &out.Housing},
		{"income", cfg.Income, &out.Income},
		{"zip", cfg.Zip, &out.Zip},
	} {
		src, err := newSource(s.cfg)
		if err != nil {
			return Sources{}, fmt.Errorf("source %s: %w", s.name, err)
		}
		*s.dst = src
	}
	return out, nil
}

func newSource(s config.Source) (datasource.Source, error) {
	switch s.Kind {
	case "file":
		if s.File.Path == "" {
			return nil, fmt.Errorf("file.path is required")
		}
		return file.NewLocal(s.File.Path), nil
	case "http":
		if s.HTTP.URL == "" {
			return nil, fmt.Errorf("http.url is required")
		}
		client := httpds.NewClient(httpds.Config{
			Timeout:    time.Duration(s.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries: s.HTTP.MaxRetries,
		})
		return httpds.NewSource(client, s.HTTP.URL, nil), nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", s.Kind)
	}
}

// normalize runs on every parsed dataset before the core sees it.
var normalize transformer.Transformer = transformer.Chain{builtin.Normalize{}}

// Ingest opens and parses the three sources concurrently. Each result lands
// in its own slot, so dataset identity and row order never depend on which
// download finishes first. The first failure cancels the others.
func Ingest(ctx context.Context, src Sources, newParser ParserFactory) (Inputs, error) {
	var in Inputs
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range []struct {
		name string
		src  datasource.Source
		dst  *records.Dataset
	}{
		{"housing", src.Housing, &in.Housing},
		{"income", src.Income, &in.Income},
		{"zip", src.Zip, &in.Zip},
	} {
		g.Go(func() error {
			ds, err := load(gctx, s.name, s.src, newParser())
			if err != nil {
				return fmt.Errorf("ingest %s: %w", s.name, err)
			}
			*s.dst = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

func load(ctx context.Context, name string, src datasource.Source, p parser.Parser) (records.Dataset, error) {
	if src == nil {
		return records.Dataset{}, fmt.Errorf("no source configured")
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return records.Dataset{}, err
	}
	defer rc.Close()

	ds, skipped, err := p.Parse(rc)
	if err != nil {
		return records.Dataset{}, err
	}
	ds.Name = name
	ds = transformer.ApplyDataset(normalize, ds)

	ev := log.Debug()
	if skipped > 0 {
		ev = log.Warn()
	}
	ev.Str("dataset", name).Int("rows", ds.Len()).Int("skipped", skipped).Msg("ingest: parsed")
	return ds, nil
}
