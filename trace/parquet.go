package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/pkg/errors"

	"github.com/brensch/chainplan/search"
)

const parquetSchema = "plan_trace_v1"

// PlanRow is the parquet layout of an Event: one row per cycle with the
// chain nested.
type PlanRow struct {
	Scenario      string    `parquet:"scenario,dict,optional"`
	Cycle         int32     `parquet:"cycle"`
	Stopped       int32     `parquet:"stopped"`
	Kind          string    `parquet:"kind,dict"`
	Strategy      string    `parquet:"strategy,dict"`
	Evaluated     int32     `parquet:"evaluated"`
	Score         float64   `parquet:"score"`
	ElapsedMicros int64     `parquet:"elapsed_us"`
	TimedOut      bool      `parquet:"timed_out"`
	Fallback      bool      `parquet:"fallback"`
	Chain         []StepRow `parquet:"chain"`
}

type StepRow struct {
	Category    string  `parquet:"category,dict"`
	Actor       int32   `parquet:"actor"`
	Target      int32   `parquet:"target"`
	X           float64 `parquet:"x"`
	Y           float64 `parquet:"y"`
	Speed       float64 `parquet:"speed"`
	Duration    int32   `parquet:"duration"`
	Kick        int32   `parquet:"kick"`
	Spend       int32   `parquet:"spend"`
	Final       bool    `parquet:"final"`
	Description string  `parquet:"description,dict"`
}

func toRow(e Event) PlanRow {
	r := PlanRow{
		Scenario:      e.Scenario,
		Cycle:         int32(e.Cycle),
		Stopped:       int32(e.Stopped),
		Kind:          string(e.Kind),
		Strategy:      string(e.Strategy),
		Evaluated:     int32(e.Evaluated),
		Score:         e.Score,
		ElapsedMicros: e.Elapsed.Microseconds(),
		TimedOut:      e.TimedOut,
		Fallback:      e.Fallback,
		Chain:         make([]StepRow, len(e.Chain)),
	}
	for i, s := range e.Chain {
		r.Chain[i] = StepRow{
			Category:    s.Category,
			Actor:       int32(s.Actor),
			Target:      int32(s.Target),
			X:           s.X,
			Y:           s.Y,
			Speed:       s.Speed,
			Duration:    int32(s.Duration),
			Kick:        int32(s.Kick),
			Spend:       int32(s.Spend),
			Final:       s.Final,
			Description: s.Description,
		}
	}
	return r
}

func fromRow(r PlanRow) Event {
	e := Event{
		Scenario:  r.Scenario,
		Cycle:     int(r.Cycle),
		Stopped:   int(r.Stopped),
		Kind:      Kind(r.Kind),
		Strategy:  search.Strategy(r.Strategy),
		Evaluated: int(r.Evaluated),
		Score:     r.Score,
		Elapsed:   time.Duration(r.ElapsedMicros) * time.Microsecond,
		TimedOut:  r.TimedOut,
		Fallback:  r.Fallback,
	}
	for _, s := range r.Chain {
		e.Chain = append(e.Chain, Step{
			Category:    s.Category,
			Actor:       int(s.Actor),
			Target:      int(s.Target),
			X:           s.X,
			Y:           s.Y,
			Speed:       s.Speed,
			Duration:    int(s.Duration),
			Kick:        int(s.Kick),
			Spend:       int(s.Spend),
			Final:       s.Final,
			Description: s.Description,
		})
	}
	return e
}

// batchFile is one parquet file being written under tmp/ and moved into
// place when finalized.
type batchFile struct {
	tmpPath string
	outPath string
	file    *os.File
	writer  *parquet.GenericWriter[PlanRow]
	rows    int
}

func openBatch(outDir string) (*batchFile, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create tmp dir")
	}
	name := fmt.Sprintf("plans_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open tmp parquet")
	}
	w := parquet.NewGenericWriter[PlanRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", parquetSchema)
	return &batchFile{
		tmpPath: tmpPath,
		outPath: filepath.Join(outDir, name),
		file:    f,
		writer:  w,
	}, nil
}

func (b *batchFile) write(r PlanRow) error {
	if _, err := b.writer.Write([]PlanRow{r}); err != nil {
		return errors.Wrap(err, "write parquet row")
	}
	b.rows++
	return nil
}

// finalize closes the file and renames it into place. An empty file is
// removed and "" returned.
func (b *batchFile) finalize() (string, error) {
	closeErr := b.writer.Close()
	_ = b.file.Sync()
	fileErr := b.file.Close()
	if closeErr != nil {
		return "", errors.Wrap(closeErr, "close parquet writer")
	}
	if fileErr != nil {
		return "", errors.Wrap(fileErr, "close parquet file")
	}
	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", errors.Wrap(err, "rename parquet")
	}
	return b.outPath, nil
}

// DefaultBatchRows is how many cycles go into one parquet file.
const DefaultBatchRows = 1000

// ParquetSink writes events to parquet files in Dir, starting a new file
// every BatchRows events. Files appear in Dir only once complete.
type ParquetSink struct {
	mu        sync.Mutex
	dir       string
	batchRows int
	cur       *batchFile
	written   []string
}

func NewParquetSink(dir string, batchRows int) (*ParquetSink, error) {
	if dir == "" {
		return nil, errors.New("trace: parquet dir is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create parquet dir")
	}
	if batchRows <= 0 {
		batchRows = DefaultBatchRows
	}
	return &ParquetSink{dir: abs, batchRows: batchRows}, nil
}

func (p *ParquetSink) Emit(e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		b, err := openBatch(p.dir)
		if err != nil {
			return err
		}
		p.cur = b
	}
	if err := p.cur.write(toRow(e)); err != nil {
		return err
	}
	if p.cur.rows >= p.batchRows {
		return p.flush()
	}
	return nil
}

func (p *ParquetSink) flush() error {
	if p.cur == nil {
		return nil
	}
	path, err := p.cur.finalize()
	p.cur = nil
	if err != nil {
		return err
	}
	if path != "" {
		p.written = append(p.written, path)
	}
	return nil
}

// Close finalizes the open file.
func (p *ParquetSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush()
}

// Files lists the completed files in write order.
func (p *ParquetSink) Files() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

// ReadParquet loads the events of one file.
func ReadParquet(path string) ([]Event, error) {
	rows, err := parquet.ReadFile[PlanRow](path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	out := make([]Event, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}
