package evaluator

import (
	"log/slog"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/state"
)

// OnnxPool spreads evaluations over several sessions round-robin.
type OnnxPool struct {
	clients []*Onnx
	rr      atomic.Uint64
}

func NewOnnxPool(model string, sessions int, cfg OnnxConfig) (*OnnxPool, error) {
	if sessions <= 0 {
		sessions = 1
	}
	clients := make([]*Onnx, 0, sessions)
	for i := 0; i < sessions; i++ {
		c, err := NewOnnx(model, cfg)
		if err != nil {
			for _, created := range clients {
				_ = created.Close()
			}
			return nil, errors.Wrapf(err, "create onnx session %d/%d", i+1, sessions)
		}
		clients = append(clients, c)
	}
	return &OnnxPool{clients: clients}, nil
}

func (p *OnnxPool) Identity() string { return "pool:" + p.clients[0].Identity() }

func (p *OnnxPool) Evaluate(s *state.State, path []action.Pair) float64 {
	c := p.clients[p.rr.Add(1)%uint64(len(p.clients))]
	return c.Evaluate(s, path)
}

// SetLogger must be called before the first Evaluate.
func (p *OnnxPool) SetLogger(l *slog.Logger) {
	for _, c := range p.clients {
		c.Logger = l
	}
}

func (p *OnnxPool) Stats() RuntimeStats {
	var out RuntimeStats
	for _, c := range p.clients {
		st := c.Stats()
		out.TotalBatches += st.TotalBatches
		out.TotalItems += st.TotalItems
		out.TotalRunNanos += st.TotalRunNanos
		out.QueueLen += st.QueueLen
		out.LastBatchSize = max(out.LastBatchSize, st.LastBatchSize)
	}
	if out.TotalBatches > 0 {
		out.AvgBatchSize = float64(out.TotalItems) / float64(out.TotalBatches)
		out.AvgRunMs = float64(out.TotalRunNanos) / 1e6 / float64(out.TotalBatches)
	}
	return out
}

func (p *OnnxPool) Close() error {
	var first error
	for _, c := range p.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
