package search

import (
	"context"
	"sync"

	"github.com/brensch/chainplan/generator"
	"github.com/brensch/chainplan/world"
)

type holderKey struct {
	time      world.Time
	evaluator string
	generator string
}

// Holder keeps the latest result and serves it again while the cycle,
// the evaluator and the generator are unchanged.
type Holder struct {
	mu     sync.Mutex
	key    holderKey
	result *Result
}

// Get returns the cached result for w's cycle or runs sr.
func (h *Holder) Get(ctx context.Context, sr *Searcher, w *world.World) (*Result, error) {
	key := holderKey{
		time:      w.Time,
		evaluator: generator.Identity(sr.Evaluator),
		generator: generator.Identity(sr.Generator),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.result != nil && h.key == key {
		return h.result, nil
	}
	res, err := sr.Search(ctx, w)
	if err != nil {
		return nil, err
	}
	h.key, h.result = key, res
	return res, nil
}

// Result returns the last computed result, or nil.
func (h *Holder) Result() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Reset drops the held result so the next Get searches again.
func (h *Holder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.key, h.result = holderKey{}, nil
}
