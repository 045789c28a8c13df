// Command chainplan plans every scenario it is given and reports the
// chosen chains: to the log, to parquet files, and to an HTML report
// that a later run can be compared against.
//
//	chainplan [flags] scenario.yaml|dir ...
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/chainplan/config"
	"github.com/brensch/chainplan/planner"
	"github.com/brensch/chainplan/trace"
	"github.com/brensch/chainplan/world"
)

// errChanged is returned when -compare finds differing plans.
var errChanged = errors.New("plans changed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Cause(err) == errChanged {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "chainplan:", err)
		os.Exit(1)
	}
}

type options struct {
	cfg      config.Config
	workers  int
	compare  string
	scoreTol float64
	title    string
	paths    []string
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("chainplan", flag.ContinueOnError)
	var o options
	fs.IntVar(&o.workers, "workers", runtime.NumCPU(), "scenarios planned concurrently")
	fs.StringVar(&o.compare, "compare", "", "previous HTML report to compare the new plans against")
	fs.Float64Var(&o.scoreTol, "score-tol", 1e-6, "score difference tolerated by -compare")
	fs.StringVar(&o.title, "title", "chain plans", "HTML report title")
	cfg, err := config.Parse(fs, args)
	if err != nil {
		return o, err
	}
	o.cfg = cfg
	o.paths = fs.Args()
	if len(o.paths) == 0 {
		return o, errors.New("no scenarios given")
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o, nil
}

// scenarioFiles expands directories into their YAML files, sorted.
func scenarioFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrap(err, "scenario path")
		}
		if !fi.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", p)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				out = append(out, filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	logger := o.cfg.Logger()
	slog.SetDefault(logger)

	files, err := scenarioFiles(o.paths)
	if err != nil {
		return err
	}

	// Each worker owns a planner; generators keep per-cycle caches that
	// must not be shared between scenarios planned at the same time, and
	// are reset between scenarios since cycles can repeat.
	pcfg := o.cfg
	pcfg.Trace.ParquetDir = ""
	planners := make(chan *planner.Planner, o.workers)
	var shared trace.Sink
	if o.cfg.Trace.ParquetDir != "" {
		ps, err := trace.NewParquetSink(o.cfg.Trace.ParquetDir, o.cfg.Trace.BatchRows)
		if err != nil {
			return err
		}
		defer func() {
			if err := ps.Close(); err != nil {
				logger.Error("parquet close failed", "error", err)
			}
			for _, f := range ps.Files() {
				logger.Info("parquet written", "path", f)
			}
		}()
		shared = ps
	}
	for range o.workers {
		p, err := planner.New(pcfg, nil, logger)
		if err != nil {
			return err
		}
		defer p.Close()
		planners <- p
	}

	events := make([]trace.Event, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, path := range files {
		g.Go(func() error {
			w, name, err := world.LoadScenario(path)
			if err != nil {
				return errors.Wrapf(err, "load %s", path)
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}
			p := <-planners
			defer func() { planners <- p }()
			p.Reset()

			d, err := p.Plan(gctx, w)
			if err != nil {
				return errors.Wrapf(err, "scenario %s", name)
			}
			d.Event.Scenario = name
			events[i] = d.Event
			if shared != nil {
				if err := shared.Emit(d.Event); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, e := range events {
		first := e.First()
		fmt.Fprintf(stdout, "%-24s %-8s -> %2d (%.1f, %.1f)  len=%d score=%.4g evals=%d\n",
			e.Scenario, first.Category, first.Target, first.X, first.Y, len(e.Chain), e.Score, e.Evaluated)
	}

	if o.cfg.Trace.Report != "" {
		if err := writeReport(o.cfg.Trace.Report, o.title, events); err != nil {
			return err
		}
		logger.Info("report written", "path", o.cfg.Trace.Report, "scenarios", len(events))
	}
	if o.compare != "" {
		return compare(o.compare, events, o.scoreTol, stdout)
	}
	return nil
}

func writeReport(path, title string, events []trace.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	if err := trace.WriteReport(f, title, events); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close report")
}

func compare(path string, events []trace.Event, tol float64, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open previous report")
	}
	defer f.Close()
	before, err := trace.ReadReport(f)
	if err != nil {
		return err
	}
	after := make([]trace.Summary, len(events))
	for i, e := range events {
		after[i] = trace.Summarize(e)
	}
	changes := trace.Compare(before, after, tol)
	for _, c := range changes {
		if c.Missing {
			fmt.Fprintf(stdout, "missing  %s\n", c.Scenario)
			continue
		}
		fmt.Fprintf(stdout, "changed  %s: %s->%d (%.4g) => %s->%d (%.4g)\n", c.Scenario,
			c.Before.First, c.Before.Target, c.Before.Score,
			c.After.First, c.After.Target, c.After.Score)
	}
	if len(changes) > 0 {
		return errors.Wrapf(errChanged, "%d of %d scenarios", len(changes), len(before))
	}
	return nil
}
