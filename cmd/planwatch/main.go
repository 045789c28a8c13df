// Command planwatch shows planning decisions live in the terminal.
//
// By default it replays the given scenarios as consecutive cycles,
// planning each one locally; with -listen the decisions are also
// broadcast as JSON over a websocket at /trace. With -connect it
// instead watches the feed of another planwatch or agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/brensch/chainplan/config"
	"github.com/brensch/chainplan/logging"
	"github.com/brensch/chainplan/planner"
	"github.com/brensch/chainplan/trace"
	"github.com/brensch/chainplan/world"
)

const recentPlans = 12

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	cachedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type model struct {
	source    string
	startTime time.Time
	updates   <-chan trace.Event
	errs      <-chan error

	plans     int
	cached    int
	fallbacks int
	timedOut  int
	evaluated int64
	elapsed   time.Duration
	recent    []trace.Event
	err       error
}

func initialModel(source string, updates <-chan trace.Event, errs <-chan error) model {
	return model{source: source, startTime: time.Now(), updates: updates, errs: errs}
}

type tickMsg time.Time

type errMsg struct{ err error }

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForUpdate(updates <-chan trace.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-updates
		if !ok {
			return nil
		}
		return e
	}
}

func waitForErr(errs <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-errs
		if !ok {
			return nil
		}
		return errMsg{err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), waitForErr(m.errs), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		return m, tickCmd()
	case errMsg:
		m.err = msg.err
		return m, nil
	case trace.Event:
		m = m.record(msg)
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) record(e trace.Event) model {
	if e.Kind == trace.KindCached {
		m.cached++
	} else {
		m.plans++
		m.evaluated += int64(e.Evaluated)
		m.elapsed += e.Elapsed
	}
	if e.Fallback {
		m.fallbacks++
	}
	if e.TimedOut {
		m.timedOut++
	}
	m.recent = append([]trace.Event{e}, m.recent...)
	if len(m.recent) > recentPlans {
		m.recent = m.recent[:recentPlans]
	}
	return m
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	perSec := 0.0
	if duration.Seconds() >= 1 {
		perSec = float64(m.plans) / duration.Seconds()
	}
	avgEvals, avgTime := 0.0, time.Duration(0)
	if m.plans > 0 {
		avgEvals = float64(m.evaluated) / float64(m.plans)
		avgTime = m.elapsed / time.Duration(m.plans)
	}

	stats := strings.Join([]string{
		row("source", m.source),
		row("plans", fmt.Sprintf("%d (%d cached)", m.plans, m.cached)),
		row("plans/sec", fmt.Sprintf("%.1f", perSec)),
		row("evals/plan", fmt.Sprintf("%.1f", avgEvals)),
		row("time/plan", avgTime.String()),
		row("fallbacks", fmt.Sprintf("%d", m.fallbacks)),
		row("timed out", fmt.Sprintf("%d", m.timedOut)),
	}, "\n")

	var lines []string
	for _, e := range m.recent {
		line := fmt.Sprintf("%6d %-18.18s %s", e.Cycle, e.Scenario, chainString(e))
		switch {
		case e.Kind == trace.KindCached:
			line = cachedStyle.Render(line)
		case e.Fallback || e.TimedOut:
			line = warnStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, cachedStyle.Render("waiting for plans..."))
	}

	out := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("planwatch"),
		boxStyle.Render(stats),
		titleStyle.Render("recent chains"),
		boxStyle.Render(strings.Join(lines, "\n")),
	)
	if m.err != nil {
		out += "\n" + warnStyle.Render("error: "+m.err.Error())
	}
	return out + "\nPress q to quit.\n"
}

func chainString(e trace.Event) string {
	parts := make([]string, len(e.Chain))
	for i, s := range e.Chain {
		parts[i] = fmt.Sprintf("%s>%d(%.0f,%.0f)", s.Category, s.Target, s.X, s.Y)
	}
	return fmt.Sprintf("%-40s %.4g", strings.Join(parts, " "), e.Score)
}

type scenario struct {
	name string
	w    *world.World
}

// replay plans the scenarios round robin, one per cycle, and asks again
// every repeat-th cycle to exercise the per-cycle cache.
func replay(ctx context.Context, p *planner.Planner, scenarios []scenario, interval time.Duration, repeat int, out chan<- trace.Event) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	// The clock runs past every scenario's own cycle and never repeats,
	// so no two replayed snapshots share a cache key.
	start := 0
	for _, sc := range scenarios {
		start = max(start, sc.w.Time.Cycle)
	}
	for cycle := 1; ; cycle++ {
		sc := scenarios[(cycle-1)%len(scenarios)]
		w := *sc.w
		w.Time = world.Time{Cycle: start + cycle}
		asks := 1
		if repeat > 0 && cycle%repeat == 0 {
			asks = 2
		}
		for range asks {
			d, err := p.Plan(ctx, &w)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			d.Event.Scenario = sc.name
			select {
			case out <- d.Event:
			case <-ctx.Done():
				return nil
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func main() {
	fs := flag.NewFlagSet("planwatch", flag.ExitOnError)
	interval := fs.Duration("interval", 100*time.Millisecond, "time between planned cycles")
	repeat := fs.Int("repeat", 5, "ask twice every n-th cycle, 0 to never")
	connect := fs.String("connect", "", "websocket trace feed to watch instead of planning locally")
	logFile := fs.String("log-file", "planwatch.log", "log destination, keeps the terminal clean")
	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "planwatch:", err)
		os.Exit(1)
	}

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "planwatch: open log:", err)
		os.Exit(1)
	}
	defer f.Close()
	format, _ := logging.ParseFormat(string(cfg.Log.Format))
	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger := logging.New(f, format, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := make(chan trace.Event, 64)
	errs := make(chan error, 1)
	source, err := start(ctx, cfg, fs.Args(), *connect, *interval, *repeat, logger, updates, errs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "planwatch:", err)
		os.Exit(1)
	}

	prog := tea.NewProgram(initialModel(source, updates, errs), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("tui failed", "error", err)
		os.Exit(1)
	}
}

// start launches the producer of events and returns a description of it.
func start(ctx context.Context, cfg config.Config, paths []string, connect string,
	interval time.Duration, repeat int, logger *slog.Logger, updates chan<- trace.Event, errs chan<- error) (string, error) {
	if connect != "" {
		go func() {
			err := trace.Subscribe(ctx, connect, func(e trace.Event) {
				select {
				case updates <- e:
				case <-ctx.Done():
				}
			})
			if err != nil && ctx.Err() == nil {
				report(errs, err)
			}
		}()
		return connect, nil
	}

	if len(paths) == 0 {
		return "", errors.New("no scenarios given")
	}
	var scenarios []scenario
	for _, path := range paths {
		w, name, err := world.LoadScenario(path)
		if err != nil {
			return "", errors.Wrapf(err, "load %s", path)
		}
		if name == "" {
			name = path
		}
		scenarios = append(scenarios, scenario{name: name, w: w})
	}

	cfg.Trace.Log = false
	p, err := planner.New(cfg, nil, logger)
	if err != nil {
		return "", err
	}
	source := fmt.Sprintf("%d scenarios, %s", len(scenarios), cfg.Search.Strategy)
	if cfg.Trace.Listen != "" {
		hub := trace.NewHub(logger)
		p.AddSink(hub)
		mux := http.NewServeMux()
		mux.Handle("/trace", hub)
		srv := &http.Server{Addr: cfg.Trace.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				report(errs, errors.Wrap(err, "serve trace feed"))
			}
		}()
		go func() {
			<-ctx.Done()
			hub.Close()
			srv.Close()
		}()
		source += ", serving ws://" + cfg.Trace.Listen + "/trace"
	}

	go func() {
		defer p.Close()
		if err := replay(ctx, p, scenarios, interval, repeat, updates); err != nil {
			report(errs, err)
		}
	}()
	return source, nil
}

// report keeps the first error; later ones only reach the log.
func report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
		slog.Error("dropped error", "error", err)
	}
}
