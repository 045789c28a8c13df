package evaluator

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/state"
)

// ErrNoModel is returned when the ONNX model file is not configured or
// does not exist.
var ErrNoModel = errors.New("evaluator: no model")

const (
	DefaultBatchSize    = 32
	DefaultBatchTimeout = 200 * time.Microsecond
)

type OnnxConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
}

type scoreRequest struct {
	input []float32
	resp  chan scoreResponse
}

type scoreResponse struct {
	value float32
	err   error
}

// RuntimeStats summarizes the batches an Onnx evaluator has run.
type RuntimeStats struct {
	TotalBatches  int64
	TotalItems    int64
	TotalRunNanos int64
	LastBatchSize int64
	QueueLen      int

	AvgBatchSize float64
	AvgRunMs     float64
}

// Onnx scores states with a value model taking a [N, FeatureSize] input
// named "input" and producing a [N, 1] output named "value". Concurrent
// Evaluate calls are batched into one session run.
type Onnx struct {
	Logger *slog.Logger

	model     string
	run       func(batch []float32, n int64) ([]float32, error)
	destroy   func() error
	requests  chan scoreRequest
	done      chan struct{}
	stopped   chan struct{}
	cfg       OnnxConfig
	closeOnce sync.Once

	batches  atomic.Int64
	items    atomic.Int64
	runNanos atomic.Int64
	last     atomic.Int64
}

var ortInitOnce sync.Once
var ortInitErr error

func NewOnnx(model string, cfg OnnxConfig) (*Onnx, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if model == "" {
		return nil, ErrNoModel
	}
	if _, err := os.Stat(model); err != nil {
		return nil, errors.Wrapf(ErrNoModel, "%s: %v", model, err)
	}

	if runtime.GOOS == "linux" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else {
			cwd, _ := os.Getwd()
			for _, name := range []string{"libonnxruntime.so", "libonnxruntime.so.1"} {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
	}
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, errors.Wrap(ortInitErr, "init onnxruntime")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "session options")
	}
	defer options.Destroy()
	// One thread per session; parallelism comes from pooling sessions.
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(model, []string{"input"}, []string{"value"}, options)
	if err != nil {
		return nil, errors.Wrapf(err, "create session for %s", model)
	}

	run := func(batch []float32, n int64) ([]float32, error) {
		input, err := ort.NewTensor(ort.NewShape(n, FeatureSize), batch)
		if err != nil {
			return nil, err
		}
		defer input.Destroy()

		value, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
		if err != nil {
			return nil, err
		}
		defer value.Destroy()

		if err := session.Run([]ort.Value{input}, []ort.Value{value}); err != nil {
			return nil, err
		}
		return append([]float32(nil), value.GetData()...), nil
	}
	return startOnnx(model, cfg, run, session.Destroy), nil
}

func startOnnx(model string, cfg OnnxConfig, run func([]float32, int64) ([]float32, error), destroy func() error) *Onnx {
	o := &Onnx{
		model:    model,
		run:      run,
		destroy:  destroy,
		cfg:      cfg,
		requests: make(chan scoreRequest, cfg.BatchSize*2),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go o.batchLoop()
	return o
}

func (o *Onnx) Identity() string { return "onnx(" + o.model + ")" }

// Evaluate encodes s and waits for its batch. A failed run scores the
// chain as lost.
func (o *Onnx) Evaluate(s *state.State, path []action.Pair) float64 {
	buf := getFeatures()
	Features(*buf, s, path)
	v, err := o.score(*buf)
	putFeatures(buf)
	if err != nil {
		logger(o.Logger).Warn("onnx evaluation failed", "model", o.model, "error", err)
		return lostScore
	}
	return float64(v)
}

func (o *Onnx) score(input []float32) (float32, error) {
	req := scoreRequest{input: input, resp: make(chan scoreResponse, 1)}
	select {
	case o.requests <- req:
	case <-o.done:
		return 0, errors.New("onnx evaluator closed")
	}
	select {
	case r := <-req.resp:
		return r.value, r.err
	case <-o.done:
		return 0, errors.New("onnx evaluator closed")
	}
}

func (o *Onnx) batchLoop() {
	defer close(o.stopped)
	batch := make([]float32, 0, o.cfg.BatchSize*FeatureSize)
	pending := make([]scoreRequest, 0, o.cfg.BatchSize)

	ticker := time.NewTicker(o.cfg.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		o.runBatch(pending, batch)
		pending = pending[:0]
		batch = batch[:0]
	}
	for {
		select {
		case <-o.done:
			return
		case req := <-o.requests:
			pending = append(pending, req)
			batch = append(batch, req.input...)
			if len(pending) >= o.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (o *Onnx) runBatch(pending []scoreRequest, batch []float32) {
	n := int64(len(pending))
	start := time.Now()

	out, err := o.run(batch, n)
	if err != nil {
		failBatch(pending, err)
		return
	}

	o.batches.Add(1)
	o.items.Add(n)
	o.runNanos.Add(time.Since(start).Nanoseconds())
	o.last.Store(n)

	for i, req := range pending {
		req.resp <- scoreResponse{value: out[i]}
	}
}

func failBatch(pending []scoreRequest, err error) {
	for _, req := range pending {
		req.resp <- scoreResponse{err: err}
	}
}

func (o *Onnx) Stats() RuntimeStats {
	st := RuntimeStats{
		TotalBatches:  o.batches.Load(),
		TotalItems:    o.items.Load(),
		TotalRunNanos: o.runNanos.Load(),
		LastBatchSize: o.last.Load(),
		QueueLen:      len(o.requests),
	}
	if st.TotalBatches > 0 {
		st.AvgBatchSize = float64(st.TotalItems) / float64(st.TotalBatches)
		st.AvgRunMs = float64(st.TotalRunNanos) / 1e6 / float64(st.TotalBatches)
	}
	return st
}

// Close stops the batch loop, waits for any in-flight run, then destroys
// the session.
func (o *Onnx) Close() error {
	var err error
	o.closeOnce.Do(func() {
		close(o.done)
		<-o.stopped
		err = o.destroy()
	})
	return err
}
