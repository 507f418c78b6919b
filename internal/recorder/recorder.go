// Package recorder persists field values to SQLite as a simulation runs.
package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"sync"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "github.com/glebarez/go-sqlite"
	"github.com/tebeka/atexit"

	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/simulation"
	"github.com/signalsfoundry/psim/types"
)

const schema = `CREATE TABLE IF NOT EXISTS field_samples (
	run_id TEXT    NOT NULL,
	step   INTEGER NOT NULL,
	field  TEXT    NOT NULL,
	idx    INTEGER NOT NULL,
	value
);
CREATE INDEX IF NOT EXISTS field_samples_run_step ON field_samples (run_id, step);`

const insertSample = `INSERT INTO field_samples (run_id, step, field, idx, value) VALUES (?, ?, ?, ?, ?)`

// SampleCounter receives the number of samples written per flush.
// observability.SimCollector satisfies it.
type SampleCounter interface {
	AddRecordedSamples(sim string, n int)
}

// Sample is one row of the field_samples table.
type Sample struct {
	RunID string
	Step  uint64
	Field string
	Idx   int
	Value any
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithFields restricts recording to the named fields. By default every
// registered field is recorded.
func WithFields(names ...string) Option {
	return func(r *Recorder) { r.fields = append([]string(nil), names...) }
}

// WithBatchSize sets how many samples are buffered before a flush.
func WithBatchSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithBufferLimit caps how many samples are held while flushes fail. Past
// the cap the oldest samples are dropped. The default is four batches.
func WithBufferLimit(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithLogger sets the logger used to report write failures.
func WithLogger(l logging.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

// WithSampleCounter reports flushed sample counts to c.
func WithSampleCounter(c SampleCounter) Option {
	return func(r *Recorder) { r.counter = c }
}

// Recorder is a simulation.Hook that samples fields at Ready and after every
// step.
type Recorder struct {
	mu   sync.Mutex
	db   *sql.DB
	stmt *sql.Stmt

	path      string
	fields    []string
	batchSize int
	limit     int
	pending   []Sample
	dropped   uint64
	sim       string
	log       logging.Logger
	counter   SampleCounter
	err       error
	closed    bool
}

// Open creates or opens the database at path and prepares the samples table.
// Pending samples are flushed at process exit via atexit.
func Open(path string, opts ...Option) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: create table: %w", err)
	}
	stmt, err := db.Prepare(insertSample)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: prepare insert: %w", err)
	}

	r := &Recorder{
		db:        db,
		stmt:      stmt,
		path:      path,
		batchSize: 10000,
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.limit == 0 {
		r.limit = 4 * r.batchSize
	}
	if r.limit < r.batchSize {
		r.limit = r.batchSize
	}

	atexit.Register(func() { _ = r.Close() })
	return r, nil
}

// Func implements simulation.Hook.
func (r *Recorder) Func(ctx simulation.HookCtx) {
	if ctx.Pos != simulation.HookPosReady && ctx.Pos != simulation.HookPosAfterStep {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.sim = ctx.Sim.Name()

	names := r.fields
	if len(names) == 0 {
		names = ctx.Sim.Fields()
	}
	for _, name := range names {
		f := ctx.Sim.Get(name)
		if f == nil {
			continue
		}
		for idx, v := range Flatten(f.Any()) {
			r.pending = append(r.pending, Sample{
				RunID: ctx.Sim.ID(),
				Step:  ctx.Step,
				Field: name,
				Idx:   idx,
				Value: v,
			})
		}
	}

	if len(r.pending) < r.batchSize {
		return
	}
	log := logging.ForRun(ctx.Context, r.log)
	if err := r.flushLocked(); err != nil {
		log.Error(ctx.Context, "recorder flush failed", logging.String("path", r.path),
			logging.Int("pending", len(r.pending)), logging.Err(err))
	}
	if over := len(r.pending) - r.limit; over > 0 {
		r.pending = append(r.pending[:0], r.pending[over:]...)
		r.dropped += uint64(over)
		log.Warn(ctx.Context, "recorder dropped samples", logging.String("path", r.path),
			logging.Int("dropped", over), logging.Uint64("dropped_total", r.dropped))
	}
}

// Dropped returns how many samples were discarded because the buffer limit
// was reached while flushes failed.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Flush writes buffered samples in a single transaction.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	if len(r.pending) == 0 || r.closed {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("recorder: begin: %w", err)
	}
	stmt := tx.Stmt(r.stmt)
	for _, s := range r.pending {
		if _, err := stmt.Exec(s.RunID, int64(s.Step), s.Field, s.Idx, s.Value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recorder: insert %s[%d] at step %d: %w", s.Field, s.Idx, s.Step, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recorder: commit: %w", err)
	}
	if r.counter != nil {
		r.counter.AddRecordedSamples(r.sim, len(r.pending))
	}
	r.pending = r.pending[:0]
	return nil
}

// Close flushes pending samples and closes the database. If the flush fails
// the recorder stays open with its samples buffered and Close may be called
// again. Once closed, further calls return the first close result.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.err
	}
	if err := r.flushLocked(); err != nil {
		return err
	}
	r.closed = true
	err := r.stmt.Close()
	if cerr := r.db.Close(); err == nil {
		err = cerr
	}
	r.err = err
	return err
}

// Flatten expands a field value into its stored components: scalars yield
// one entry, vectors one per component and matrices one per element in
// row-major order. Booleans are stored as 0 or 1 and non-finite reals as
// NULL.
func Flatten(v any) []any {
	switch x := v.(type) {
	case types.Boolean:
		if x {
			return []any{int64(1)}
		}
		return []any{int64(0)}
	case types.Integer:
		return []any{x}
	case types.String:
		return []any{x}
	case types.Real:
		return []any{sqlReal(x)}
	case types.Vector2:
		return reals(x[:])
	case types.Vector3:
		return reals(x[:])
	case types.Vector4:
		return reals(x[:])
	case types.Matrix:
		var out []any
		for _, row := range types.MatrixRows(x) {
			out = append(out, reals(row)...)
		}
		return out
	}
	return nil
}

func reals(c []float64) []any {
	out := make([]any, len(c))
	for i, x := range c {
		out[i] = sqlReal(x)
	}
	return out
}

func sqlReal(x float64) any {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return x
}
