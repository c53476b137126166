package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/escolalink/disciplina-api/pkg/errors"
)

type mockScoreStore struct {
	scores map[string]float64
	err    error
	calls  []float64
}

func (m *mockScoreStore) IncrementScore(ctx context.Context, id string, delta float64) (float64, error) {
	m.calls = append(m.calls, delta)
	if m.err != nil {
		return 0, m.err
	}
	if m.scores == nil {
		m.scores = make(map[string]float64)
	}
	if _, ok := m.scores[id]; !ok {
		return 0, sql.ErrNoRows
	}
	m.scores[id] += delta
	return m.scores[id], nil
}

type mockInvalidator struct {
	deleted []string
	err     error
}

func (m *mockInvalidator) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return m.err
}

func TestScoreLedgerApplyDelta(t *testing.T) {
	store := &mockScoreStore{scores: map[string]float64{"s1": 8.0}}
	cache := &mockInvalidator{}
	ledger := NewScoreLedger(store, cache, nil, nil)

	score, err := ledger.ApplyDelta(context.Background(), "s1", 0.60)
	require.NoError(t, err)
	assert.InDelta(t, 8.60, score, 0.001)
	assert.Equal(t, []string{"grade:summary:s1"}, cache.deleted)
}

func TestScoreLedgerApplyDeltaAllowsNegativeScores(t *testing.T) {
	store := &mockScoreStore{scores: map[string]float64{"s1": 0.3}}
	ledger := NewScoreLedger(store, nil, nil, nil)

	score, err := ledger.ApplyDelta(context.Background(), "s1", -1.0)
	require.NoError(t, err)
	assert.InDelta(t, -0.70, score, 0.001)
}

func TestScoreLedgerFailureIsScoreOutOfSync(t *testing.T) {
	store := &mockScoreStore{err: errors.New("connection reset")}
	ledger := NewScoreLedger(store, nil, nil, nil)

	_, err := ledger.ApplyDelta(context.Background(), "s1", 0.40)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrScoreOutOfSync.Code))
}

func TestScoreLedgerMissingStudentIsScoreOutOfSync(t *testing.T) {
	store := &mockScoreStore{scores: map[string]float64{}}
	ledger := NewScoreLedger(store, nil, nil, nil)

	_, err := ledger.ApplyDelta(context.Background(), "ghost", 0.40)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrScoreOutOfSync.Code))
}

func TestScoreLedgerReverseDeltaNegates(t *testing.T) {
	store := &mockScoreStore{scores: map[string]float64{"s1": 8.60}}
	ledger := NewScoreLedger(store, nil, nil, nil)

	score, err := ledger.ReverseDelta(context.Background(), "s1", 0.60)
	require.NoError(t, err)
	assert.InDelta(t, 8.00, score, 0.001)
	require.Len(t, store.calls, 1)
	assert.InDelta(t, -0.60, store.calls[0], 0.001)
}

type lockedScoreStore struct {
	mu    sync.Mutex
	score float64
	calls int
}

func (m *lockedScoreStore) IncrementScore(ctx context.Context, id string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.score += delta
	return m.score, nil
}

func TestScoreLedgerConcurrentDeltasBothLand(t *testing.T) {
	store := &lockedScoreStore{score: 8.0}
	ledger := NewScoreLedger(store, nil, nil, nil)

	var wg sync.WaitGroup
	for _, delta := range []float64{0.60, -0.50} {
		wg.Add(1)
		go func(d float64) {
			defer wg.Done()
			_, err := ledger.ApplyDelta(context.Background(), "s1", d)
			assert.NoError(t, err)
		}(delta)
	}
	wg.Wait()

	assert.Equal(t, 2, store.calls)
	assert.InDelta(t, 8.10, store.score, 0.001)
}

func TestScoreLedgerCacheInvalidationFailureIsNonFatal(t *testing.T) {
	store := &mockScoreStore{scores: map[string]float64{"s1": 8.0}}
	cache := &mockInvalidator{err: errors.New("redis down")}
	ledger := NewScoreLedger(store, cache, nil, nil)

	score, err := ledger.ApplyDelta(context.Background(), "s1", 0.20)
	require.NoError(t, err)
	assert.InDelta(t, 8.20, score, 0.001)
}
