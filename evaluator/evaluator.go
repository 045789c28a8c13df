// Package evaluator scores predicted states for the chain search.
//
// Three scorers are provided: the Sample heuristic, a user formula
// compiled with expr, and an ONNX value model. All of them satisfy the
// search's Evaluator interface.
package evaluator

import (
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/state"
)

// Evaluator scores the state reached by path. Higher is better.
type Evaluator interface {
	Evaluate(s *state.State, path []action.Pair) float64
}

type Kind string

const (
	KindSample Kind = "sample"
	KindExpr   Kind = "expr"
	KindOnnx   Kind = "onnx"
)

var ErrUnknownKind = errors.New("evaluator: unknown kind")

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSample, KindExpr, KindOnnx:
		return k, nil
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Config selects and parameterizes an evaluator.
type Config struct {
	Kind Kind `yaml:"kind"`

	// Expr is the score formula for KindExpr.
	Expr string `yaml:"expr"`

	// Model is the ONNX file for KindOnnx.
	Model        string        `yaml:"model"`
	Sessions     int           `yaml:"sessions"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Kind:         KindSample,
		Sessions:     1,
		BatchSize:    DefaultBatchSize,
		BatchTimeout: DefaultBatchTimeout,
	}
}

// New builds the evaluator cfg describes. The returned close function
// releases model sessions and is never nil.
func New(cfg Config, logger *slog.Logger) (Evaluator, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Kind {
	case KindSample, "":
		return Sample{}, noop, nil
	case KindExpr:
		e, err := NewExpr(cfg.Expr)
		if err != nil {
			return nil, noop, err
		}
		e.Logger = logger
		return e, noop, nil
	case KindOnnx:
		p, err := NewOnnxPool(cfg.Model, cfg.Sessions, OnnxConfig{BatchSize: cfg.BatchSize, BatchTimeout: cfg.BatchTimeout})
		if err != nil {
			return nil, noop, err
		}
		p.SetLogger(logger)
		return p, p.Close, nil
	}
	return nil, noop, errors.Wrapf(ErrUnknownKind, "%q", cfg.Kind)
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
