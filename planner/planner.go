// Package planner runs the per-cycle decision: plan a chain for the
// current snapshot, turn its first action into commands and report what
// was decided.
package planner

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/brensch/chainplan/behavior"
	"github.com/brensch/chainplan/config"
	"github.com/brensch/chainplan/evaluator"
	"github.com/brensch/chainplan/generator"
	"github.com/brensch/chainplan/search"
	"github.com/brensch/chainplan/trace"
	"github.com/brensch/chainplan/world"
)

// Decision is the outcome of one cycle.
type Decision struct {
	Result   *search.Result
	Commands []behavior.Command
	Event    trace.Event
	Cached   bool
}

// Planner is safe for use by one agent loop. Plan calls for different
// cycles must not overlap.
type Planner struct {
	Searcher *search.Searcher
	Executor *behavior.Executor
	Sink     trace.Sink
	Logger   *slog.Logger

	opts    generator.Options
	holder  search.Holder
	last    *search.Result
	closers []func() error
}

// New builds a planner from cfg. Commands go to cmds, which may be nil
// when only the plan is wanted. Parquet and log sinks are attached as
// cfg.Trace asks; callers add their own with AddSink.
func New(cfg config.Config, cmds behavior.Sink, logger *slog.Logger) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	eval, closeEval, err := evaluator.New(cfg.Evaluator, logger)
	if err != nil {
		return nil, errors.Wrap(err, "build evaluator")
	}
	p := &Planner{
		Searcher: &search.Searcher{
			Config:    cfg.Search,
			Generator: generator.Default(cfg.Generators, logger),
			Evaluator: eval,
			Logger:    logger,
		},
		Executor: &behavior.Executor{Sink: cmds, Logger: logger},
		Logger:   logger,
		opts:     cfg.Generators,
		closers:  []func() error{closeEval},
	}
	if cfg.Trace.Log {
		p.AddSink(trace.SlogSink{Logger: logger, Level: slog.LevelInfo})
	}
	if cfg.Trace.ParquetDir != "" {
		ps, err := trace.NewParquetSink(cfg.Trace.ParquetDir, cfg.Trace.BatchRows)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.AddSink(ps)
		p.closers = append(p.closers, ps.Close)
	}
	return p, nil
}

// AddSink appends s to the trace sinks.
func (p *Planner) AddSink(s trace.Sink) {
	switch cur := p.Sink.(type) {
	case nil:
		p.Sink = s
	case trace.Multi:
		p.Sink = append(cur, s)
	default:
		p.Sink = trace.Multi{cur, s}
	}
}

// Plan decides for w. A result already computed for w's cycle is reused
// and reported as cached; commands are issued again either way.
func (p *Planner) Plan(ctx context.Context, w *world.World) (*Decision, error) {
	res, err := p.holder.Get(ctx, p.Searcher, w)
	if err != nil {
		return nil, errors.Wrapf(err, "plan cycle %d", w.Time.Cycle)
	}
	d := &Decision{Result: res, Cached: res == p.last}
	p.last = res

	kind := trace.KindPlan
	if d.Cached {
		kind = trace.KindCached
	}
	d.Event = trace.FromResult(w.Time, kind, res)

	if p.Executor != nil {
		d.Commands, err = p.Executor.Execute(w, res.FirstAction())
		if err != nil {
			return d, errors.Wrap(err, "execute first action")
		}
	}
	if p.Sink != nil {
		if err := p.Sink.Emit(d.Event); err != nil {
			p.logger().Warn("trace sink failed", "cycle", w.Time.Cycle, "error", err)
		}
	}
	return d, nil
}

// Reset forgets the held result and the generators' per-cycle caches.
// Call it before planning a snapshot unrelated to the previous one, such
// as another scenario that happens to share its cycle.
func (p *Planner) Reset() {
	p.holder.Reset()
	p.last = nil
	p.Searcher.Generator = generator.Default(p.opts, p.logger())
}

func (p *Planner) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Close releases evaluator sessions and flushes file sinks. It returns
// the first error.
func (p *Planner) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	return first
}
