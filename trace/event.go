// Package trace records what the planner decided each cycle and ships
// the records to diagnostic sinks: the log, parquet files, websocket
// viewers and an HTML report.
package trace

import (
	"time"

	"github.com/brensch/chainplan/search"
	"github.com/brensch/chainplan/world"
)

type Kind string

const (
	KindPlan Kind = "plan"
	// KindCached marks a cycle answered from the holder without searching.
	KindCached Kind = "cached"
)

// Step is one action of a chosen chain.
type Step struct {
	Category    string  `json:"category"`
	Actor       int     `json:"actor"`
	Target      int     `json:"target"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Speed       float64 `json:"speed"`
	Duration    int     `json:"duration"`
	Kick        int     `json:"kick"`
	Spend       int     `json:"spend"`
	Final       bool    `json:"final"`
	Description string  `json:"description"`
}

// Event is one planning cycle.
type Event struct {
	Scenario  string          `json:"scenario,omitempty"`
	Cycle     int             `json:"cycle"`
	Stopped   int             `json:"stopped"`
	Kind      Kind            `json:"kind"`
	Strategy  search.Strategy `json:"strategy"`
	Evaluated int             `json:"evaluated"`
	Score     float64         `json:"score"`
	Elapsed   time.Duration   `json:"elapsed"`
	TimedOut  bool            `json:"timed_out"`
	Fallback  bool            `json:"fallback"`
	Chain     []Step          `json:"chain"`
}

// FromResult describes res, planned at t.
func FromResult(t world.Time, kind Kind, res *search.Result) Event {
	e := Event{
		Cycle:     t.Cycle,
		Stopped:   t.Stopped,
		Kind:      kind,
		Strategy:  res.Strategy,
		Evaluated: res.Evaluated(),
		Score:     res.Score(),
		Elapsed:   res.Elapsed,
		TimedOut:  res.TimedOut,
		Fallback:  res.Fallback,
	}
	for _, p := range res.Chain() {
		a := p.Action
		e.Chain = append(e.Chain, Step{
			Category:    a.Category.String(),
			Actor:       a.Actor,
			Target:      a.Target,
			X:           a.TargetPoint.X,
			Y:           a.TargetPoint.Y,
			Speed:       a.FirstBallSpeed,
			Duration:    a.Duration,
			Kick:        a.KickCount,
			Spend:       p.State.SpendTime(),
			Final:       a.Final,
			Description: a.Description,
		})
	}
	return e
}

// First is the first step, the one the agent executes.
func (e Event) First() Step {
	if len(e.Chain) == 0 {
		return Step{}
	}
	return e.Chain[0]
}

// Sink accepts trace events.
type Sink interface {
	Emit(e Event) error
}

type SinkFunc func(e Event) error

func (f SinkFunc) Emit(e Event) error { return f(e) }

// Multi emits to every sink and returns the first error.
type Multi []Sink

func (m Multi) Emit(e Event) error {
	var first error
	for _, s := range m {
		if err := s.Emit(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
