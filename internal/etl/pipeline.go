// Package etl sequences the housing pipeline: key filtering, random fill,
// zip reconciliation, the three-way merge, the residual check and the hand
// off to a Sink.
//
// The core runs synchronously over materialized datasets and fails fast: the
// first step error aborts the run and the Sink is never called afterwards.
package etl

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"housingetl/internal/config"
	"housingetl/internal/merge"
	"housingetl/internal/metrics"
	"housingetl/internal/repair"
	"housingetl/pkg/records"
)

// Sink persists the merged dataset and returns the number of rows written.
type Sink interface {
	InsertAll(ctx context.Context, ds records.Dataset) (int64, error)
}

// Inputs are the three parsed extracts.
type Inputs struct {
	Housing records.Dataset
	Income  records.Dataset
	Zip     records.Dataset
}

// Options configure a Pipeline.
type Options struct {
	// Job names the run in logs and metrics.
	Job string

	// HousingRanges and IncomeRanges map a column to its random-fill range.
	HousingRanges map[string]config.Range
	IncomeRanges  map[string]config.Range

	Columns repair.ZipColumns

	// Propagation is config.PropagateByGUID (default) or
	// config.PropagatePositional.
	Propagation string

	// StrictResidual fails the run when a corrupt value survives the merge.
	StrictResidual bool

	// Rand feeds random fill. Nil means NewRand(0).
	Rand repair.Rand
}

// OptionsFrom builds pipeline options from a loaded configuration.
func OptionsFrom(p config.Pipeline) Options {
	return Options{
		Job:           p.Job,
		HousingRanges: p.Repair.Housing,
		IncomeRanges:  p.Repair.Income,
		Columns: repair.ZipColumns{
			Key:   p.Repair.KeyColumn,
			Zip:   p.Repair.ZipColumn,
			City:  p.Repair.CityColumn,
			State: p.Repair.StateColumn,
		},
		Propagation:    p.Repair.ZipPropagation,
		StrictResidual: p.Repair.StrictResidual,
		Rand:           NewRand(p.Repair.Seed),
	}
}

// NewRand returns a PCG-backed source. A zero seed draws a random one, so
// only non-zero seeds give reproducible runs.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// Summary reports what a run did.
type Summary struct {
	RunID string

	// Read and Dropped count rows per dataset name.
	Read    map[string]int
	Dropped map[string]int

	// Repairs counts events per repair reason.
	Repairs map[string]int
	Events  []repair.Event

	Merged   int
	Residual []repair.Residual

	// Inserted is zero when the pipeline ran without a sink.
	Inserted int64
}

// Pipeline runs the repair, merge and load steps.
type Pipeline struct {
	opt  Options
	sink Sink
}

// New returns a Pipeline writing to sink. A nil sink makes Run stop after
// the residual check (dry run).
func New(opt Options, sink Sink) *Pipeline {
	if opt.Job == "" {
		opt.Job = "housing_etl"
	}
	if opt.Columns == (repair.ZipColumns{}) {
		opt.Columns = repair.DefaultZipColumns
	}
	if opt.Propagation == "" {
		opt.Propagation = config.PropagateByGUID
	}
	if opt.Rand == nil {
		opt.Rand = NewRand(0)
	}
	return &Pipeline{opt: opt, sink: sink}
}

// run carries the per-run state shared by the steps.
type run struct {
	*Pipeline
	logger  zerolog.Logger
	summary Summary
}

// Run executes every step in order and returns the summary of what was
// done. On error the summary holds the counts gathered so far.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (Summary, error) {
	id := uuid.NewString()
	r := &run{
		Pipeline: p,
		logger:   log.With().Str("run_id", id).Str("job", p.opt.Job).Logger(),
		summary: Summary{
			RunID:   id,
			Read:    map[string]int{},
			Dropped: map[string]int{},
			Repairs: map[string]int{},
		},
	}
	err := r.execute(ctx, in)
	return r.summary, err
}

func (r *run) execute(ctx context.Context, in Inputs) error {
	start := time.Now()
	housing, income, zips := in.Housing, in.Income, in.Zip
	for _, ds := range []records.Dataset{housing, income, zips} {
		r.summary.Read[ds.Name] = ds.Len()
		metrics.RecordRow(r.opt.Job, metrics.RowRead, int64(ds.Len()))
	}
	r.logger.Info().
		Int("housing", housing.Len()).
		Int("income", income.Len()).
		Int("zip", zips.Len()).
		Msg("pipeline: started")

	if err := r.step("validate_schema", func() error {
		return r.validateSchemas(housing, income, zips)
	}); err != nil {
		return err
	}

	if err := r.step("filter_keys", func() error {
		var err error
		if housing, err = r.filter(housing); err != nil {
			return err
		}
		if income, err = r.filter(income); err != nil {
			return err
		}
		zips, err = r.filter(zips)
		return err
	}); err != nil {
		return err
	}

	if err := r.step("random_fill", func() error {
		var err error
		if housing, err = r.fill(housing, r.opt.HousingRanges); err != nil {
			return err
		}
		income, err = r.fill(income, r.opt.IncomeRanges)
		return err
	}); err != nil {
		return err
	}

	if err := r.step("reconcile_zips", func() error {
		var err error
		housing, income, zips, err = r.reconcile(housing, income, zips)
		return err
	}); err != nil {
		return err
	}

	var merged records.Dataset
	if err := r.step("merge", func() error {
		merged = merge.Merge(housing, income, zips)
		r.summary.Merged = merged.Len()
		metrics.RecordRow(r.opt.Job, metrics.RowMerged, int64(merged.Len()))
		return nil
	}); err != nil {
		return err
	}

	if err := r.step("residual_check", func() error {
		return r.checkResidual(merged)
	}); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if r.sink == nil {
		r.logger.Info().
			Str("merged", humanize.Comma(int64(merged.Len()))).
			Dur("elapsed", time.Since(start)).
			Msg("pipeline: dry run, sink skipped")
		return nil
	}

	if err := r.step("sink", func() error {
		n, err := r.sink.InsertAll(ctx, merged)
		r.summary.Inserted = n
		metrics.RecordRow(r.opt.Job, metrics.RowInserted, n)
		return err
	}); err != nil {
		return err
	}

	r.logger.Info().
		Str("merged", humanize.Comma(int64(merged.Len()))).
		Str("inserted", humanize.Comma(r.summary.Inserted)).
		Dur("elapsed", time.Since(start)).
		Msg("pipeline: done")
	return nil
}

// step times fn and reports it to metrics and the debug log.
func (r *run) step(name string, fn func() error) error {
	t0 := time.Now()
	err := fn()
	d := time.Since(t0)
	metrics.RecordStep(r.opt.Job, name, err, d)
	ev := r.logger.Debug()
	if err != nil {
		ev = r.logger.Error().Err(err)
	}
	ev.Str("step", name).Dur("elapsed", d).Msg("pipeline: step finished")
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// validateSchemas checks every column a later step reads up front, so a
// missing column fails before any repair runs.
func (r *run) validateSchemas(housing, income, zips records.Dataset) error {
	c := r.opt.Columns
	const step = "validate schema"

	need := []struct {
		ds   records.Dataset
		cols []string
	}{
		{housing, append([]string{c.Key, c.Zip, c.City, c.State}, sortedKeys(r.opt.HousingRanges)...)},
		{income, append([]string{c.Key, c.Zip}, sortedKeys(r.opt.IncomeRanges)...)},
		{zips, []string{c.Key, c.Zip, c.City, c.State}},
	}
	for _, n := range need {
		if err := repair.RequireColumns(n.ds, step, n.cols...); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) filter(ds records.Dataset) (records.Dataset, error) {
	out, events, err := repair.FilterCorruptKeyRows(ds, r.opt.Columns.Key)
	if err != nil {
		return records.Dataset{}, err
	}
	r.summary.Dropped[ds.Name] += len(events)
	r.record(ds.Name, events)
	metrics.RecordRow(r.opt.Job, metrics.RowDroppedCorruptKey, int64(len(events)))
	for _, e := range events {
		r.logger.Warn().Str("dataset", e.Dataset).Int("row", e.Row).Str("guid", e.Key).Msg("pipeline: dropped row with corrupt key")
	}
	return out, nil
}

// fill applies RandomFill column by column in sorted order, so a seeded
// source always hands out the same samples to the same cells.
func (r *run) fill(ds records.Dataset, ranges map[string]config.Range) (records.Dataset, error) {
	var n int
	for _, col := range sortedKeys(ranges) {
		rg := ranges[col]
		f := repair.RandomFill{Column: col, Low: rg.Low, High: rg.High, Rand: r.opt.Rand, KeyColumn: r.opt.Columns.Key}
		out, events, err := f.Apply(ds)
		if err != nil {
			return records.Dataset{}, err
		}
		ds = out
		n += len(events)
		r.record(ds.Name, events)
	}
	metrics.RecordRow(r.opt.Job, metrics.RowRandomFilled, int64(n))
	return ds, nil
}

func (r *run) reconcile(housing, income, zips records.Dataset) (records.Dataset, records.Dataset, records.Dataset, error) {
	cols := r.opt.Columns
	zips, idx, events, err := repair.ReconcileZips(zips, cols)
	if err != nil {
		return housing, income, zips, err
	}
	r.record(zips.Name, events)
	metrics.RecordRow(r.opt.Job, metrics.RowZipReconciled, int64(len(events)))

	propagate := func(target records.Dataset) (records.Dataset, []repair.Event, error) {
		if r.opt.Propagation == config.PropagatePositional {
			return repair.PropagateZipsPositional(target, zips, cols)
		}
		return repair.PropagateZips(target, zips, idx, cols)
	}

	var propagated int
	out := make([]records.Dataset, 0, 2)
	for _, target := range []records.Dataset{housing, income} {
		ds, evs, err := propagate(target)
		if err != nil {
			return housing, income, zips, err
		}
		r.record(ds.Name, evs)
		propagated += len(evs)
		out = append(out, ds)
	}
	metrics.RecordRow(r.opt.Job, metrics.RowZipPropagated, int64(propagated))
	r.logger.Debug().
		Int("reconciled", len(events)).
		Int("propagated", propagated).
		Str("strategy", r.opt.Propagation).
		Msg("pipeline: zips reconciled")
	return out[0], out[1], zips, nil
}

func (r *run) checkResidual(merged records.Dataset) error {
	cells := repair.FindResidual(merged, r.opt.Columns.Key)
	r.summary.Residual = cells
	if len(cells) == 0 {
		return nil
	}
	if r.opt.StrictResidual {
		return &repair.ResidualCorruptionError{Dataset: merged.Name, Cells: cells}
	}
	for _, c := range cells {
		r.logger.Warn().
			Int("row", c.Row).
			Str("guid", c.Key).
			Str("column", c.Column).
			Str("value", c.Value).
			Msg("pipeline: corrupt value left in merged output")
	}
	return nil
}

// record folds events into the summary and the repair counters.
func (r *run) record(dataset string, events []repair.Event) {
	if len(events) == 0 {
		return
	}
	r.summary.Events = append(r.summary.Events, events...)
	for reason, n := range repair.CountByReason(events) {
		r.summary.Repairs[reason] += n
		metrics.RecordRepair(r.opt.Job, dataset, reason, int64(n))
	}
}

func sortedKeys(m map[string]config.Range) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FailureOf returns the typed failure inside err, if any.
func FailureOf(err error) (repair.Failure, bool) {
	var f repair.Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
