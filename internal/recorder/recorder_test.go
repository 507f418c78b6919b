package recorder

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/simulation"
	"github.com/signalsfoundry/psim/simulations"
	"github.com/signalsfoundry/psim/types"
)

type countingSink struct {
	sim string
	n   int
}

func (c *countingSink) AddRecordedSamples(sim string, n int) {
	c.sim = sim
	c.n += n
}

func newTimeSimulation(t *testing.T, opts ...simulation.Option) *simulation.Simulation {
	t.Helper()
	cfg, err := config.FromValues(map[string]any{"truth.dt.ns": 1_000_000_000})
	require.NoError(t, err)
	sim, err := simulations.New(cfg, "time", opts...)
	require.NoError(t, err)
	return sim
}

func TestRecorderWritesEveryStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")
	sink := &countingSink{}
	rec, err := Open(path, WithFields("truth.t.ns", "truth.t.s"), WithBatchSize(3), WithSampleCounter(sink))
	require.NoError(t, err)

	sim := newTimeSimulation(t, simulation.WithHook(rec))
	for i := 0; i < 3; i++ {
		require.NoError(t, sim.Step())
	}
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close(), "second close")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM field_samples WHERE run_id = ?`, sim.ID()).Scan(&rows))
	assert.Equal(t, 8, rows, "two fields at Ready plus three steps")
	assert.Equal(t, 8, sink.n)
	assert.Equal(t, "time", sink.sim)

	q, err := db.Query(`SELECT step, value FROM field_samples WHERE field = 'truth.t.ns' ORDER BY step`)
	require.NoError(t, err)
	defer q.Close()
	var got []int64
	for q.Next() {
		var step, v int64
		require.NoError(t, q.Scan(&step, &v))
		assert.Equal(t, step*1_000_000_000, v)
		got = append(got, step)
	}
	require.NoError(t, q.Err())
	assert.Equal(t, []int64{0, 1, 2, 3}, got)

	var seconds float64
	require.NoError(t, db.QueryRow(`SELECT value FROM field_samples WHERE field = 'truth.t.s' AND step = 2`).Scan(&seconds))
	assert.InDelta(t, 2.0, seconds, 1e-12)
}

func TestRecorderAllFieldsByDefault(t *testing.T) {
	rec, err := Open(filepath.Join(t.TempDir(), "all.db"))
	require.NoError(t, err)
	defer rec.Close()

	sim := newTimeSimulation(t, simulation.WithHook(rec))
	require.NoError(t, sim.Step())

	rec.mu.Lock()
	pending := len(rec.pending)
	rec.mu.Unlock()
	assert.Equal(t, 2*len(sim.Fields()), pending)
	require.NoError(t, rec.Flush())
}

func TestCloseKeepsSamplesWhenFlushFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retry.db")
	rec, err := Open(path)
	require.NoError(t, err)

	rec.mu.Lock()
	rec.pending = append(rec.pending,
		Sample{RunID: "run", Field: "a", Value: int64(1)},
		Sample{RunID: "run", Field: "b", Value: struct{}{}},
	)
	rec.mu.Unlock()

	require.Error(t, rec.Close(), "unbindable value must fail the flush")
	rec.mu.Lock()
	assert.False(t, rec.closed)
	assert.Len(t, rec.pending, 2)
	rec.pending[1].Value = int64(2)
	rec.mu.Unlock()

	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close(), "second close")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM field_samples WHERE run_id = 'run'`).Scan(&rows))
	assert.Equal(t, 2, rows)
}

func TestBufferLimitDropsOldestWhileFlushesFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limit.db")
	rec, err := Open(path, WithFields("truth.t.ns"), WithBatchSize(2), WithBufferLimit(3))
	require.NoError(t, err)

	// An unbindable sample at the head fails every flush until it is dropped.
	rec.mu.Lock()
	rec.pending = append(rec.pending, Sample{RunID: "stuck", Field: "bad", Value: struct{}{}})
	rec.mu.Unlock()

	sim := newTimeSimulation(t, simulation.WithHook(rec))
	require.NoError(t, sim.Step())
	rec.mu.Lock()
	assert.Len(t, rec.pending, 3, "Ready and one step behind the stuck sample")
	rec.mu.Unlock()

	require.NoError(t, sim.Step())
	assert.Equal(t, uint64(1), rec.Dropped())
	rec.mu.Lock()
	assert.Len(t, rec.pending, 3)
	assert.Equal(t, "truth.t.ns", rec.pending[0].Field)
	rec.mu.Unlock()

	require.NoError(t, sim.Step())
	rec.mu.Lock()
	assert.Empty(t, rec.pending, "flush succeeds once the stuck sample is gone")
	rec.mu.Unlock()
	require.NoError(t, rec.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM field_samples WHERE run_id = ?`, sim.ID()).Scan(&rows))
	assert.Equal(t, 4, rows, "Ready plus three steps")
	assert.Equal(t, uint64(1), rec.Dropped())
}

func TestFlatten(t *testing.T) {
	m, err := types.NewMatrix([][]types.Real{{1, 2}, {3, 4}})
	require.NoError(t, err)

	assert.Equal(t, []any{int64(1)}, Flatten(true))
	assert.Equal(t, []any{int64(7)}, Flatten(types.Integer(7)))
	assert.Equal(t, []any{"x"}, Flatten("x"))
	assert.Equal(t, []any{1.5}, Flatten(1.5))
	assert.Equal(t, []any{1.0, nil, 3.0}, Flatten(types.Vector3{1, math.NaN(), 3}))
	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0}, Flatten(m))
	assert.Nil(t, Flatten(types.Matrix(nil)))
	assert.Nil(t, Flatten(struct{}{}))
}
