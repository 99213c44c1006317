package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"facematch/internal/config"
	"facematch/internal/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 4

func testStorageConfig() config.StorageConfig {
	// Intervals are zero: tests drive the health check and reconnect
	// directly instead of waiting on the scheduler.
	return config.StorageConfig{OpTimeoutSeconds: 5}
}

// stubStore wraps a MemoryStore so tests can toggle reachability and force
// operation failures on the "persistent" side.
type stubStore struct {
	*MemoryStore
	mu      sync.Mutex
	pingErr error
	opErr   error
}

func newStubStore() *stubStore {
	return &stubStore{MemoryStore: NewMemoryStore()}
}

func (s *stubStore) Name() string { return "stub" }

func (s *stubStore) setPingErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *stubStore) setOpErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opErr = err
}

func (s *stubStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func (s *stubStore) AddFace(ctx context.Context, rec *models.FaceRecord) error {
	s.mu.Lock()
	err := s.opErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.AddFace(ctx, rec)
}

func TestManagerDegradedFromStartup(t *testing.T) {
	ctx := context.Background()
	opener := func() (Store, error) {
		return nil, errors.New("connection refused")
	}
	m := NewManager(testStorageConfig(), testDimension, opener, NewMemoryStore())

	assert.Equal(t, models.StorageDegraded, m.Mode())

	// The full caller-visible contract still holds in degraded mode.
	rec, err := m.AddFace(ctx, "Alice", []float64{1, 0, 0, 0})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	faces, err := m.ListFaces(ctx)
	require.NoError(t, err)
	assert.Len(t, faces, 1)

	got, err := m.GetFace(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	existed, err := m.DeleteFace(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = m.DeleteFace(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = m.AppendLog(ctx, &models.RecognitionLogEntry{Outcome: models.OutcomeUnmatched, Method: models.MethodReal})
	require.NoError(t, err)
	entries, err := m.ListLogs(ctx, LogFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestManagerValidation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testStorageConfig(), testDimension, nil, NewMemoryStore())

	var vErr *models.ValidationError

	_, err := m.AddFace(ctx, "", []float64{1, 0, 0, 0})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)

	_, err = m.AddFace(ctx, "Alice", []float64{1, 0})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "embedding", vErr.Field)

	faces, err := m.ListFaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, faces, "validation failures perform no mutation")
}

func TestManagerConnectedRoutesToPersistent(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	m := NewManager(testStorageConfig(), testDimension, func() (Store, error) { return stub, nil }, NewMemoryStore())

	require.Equal(t, models.StorageConnected, m.Mode())

	rec, err := m.AddFace(ctx, "Alice", []float64{1, 0, 0, 0})
	require.NoError(t, err)

	got, err := stub.GetFace(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestManagerDemotesOnOperationFailure(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	fallback := NewMemoryStore()
	m := NewManager(testStorageConfig(), testDimension, func() (Store, error) { return stub, nil }, fallback)
	require.Equal(t, models.StorageConnected, m.Mode())

	stub.setOpErr(errors.New("disk I/O error"))

	// The caller never sees the backend failure; the write lands in the
	// fallback store and the manager degrades.
	rec, err := m.AddFace(ctx, "Alice", []float64{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, models.StorageDegraded, m.Mode())

	got, err := fallback.GetFace(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestManagerHealthCheckAndReconnect(t *testing.T) {
	stub := newStubStore()
	m := NewManager(testStorageConfig(), testDimension, func() (Store, error) { return stub, nil }, NewMemoryStore())
	require.Equal(t, models.StorageConnected, m.Mode())

	stub.setPingErr(errors.New("connection reset"))
	m.healthCheck()
	assert.Equal(t, models.StorageDegraded, m.Mode())

	// Still degraded while the store stays unreachable.
	m.reconnect()
	assert.Equal(t, models.StorageDegraded, m.Mode())

	stub.setPingErr(nil)
	m.reconnect()
	assert.Equal(t, models.StorageConnected, m.Mode())
}

func TestManagerOpenerRetriedWhileDegraded(t *testing.T) {
	stub := newStubStore()
	attempts := 0
	opener := func() (Store, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection refused")
		}
		return stub, nil
	}
	m := NewManager(testStorageConfig(), testDimension, opener, NewMemoryStore())
	require.Equal(t, models.StorageDegraded, m.Mode())

	m.reconnect()
	assert.Equal(t, models.StorageConnected, m.Mode())
	assert.Equal(t, 2, attempts)
}

func TestManagerReconnectDoesNotMigrateButReconcileDoes(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	m := NewManager(testStorageConfig(), testDimension, func() (Store, error) { return stub, nil }, NewMemoryStore())

	// One record written while connected.
	persisted, err := m.AddFace(ctx, "Alice", []float64{1, 0, 0, 0})
	require.NoError(t, err)

	// Degrade, write another record, then reconnect.
	stub.setPingErr(errors.New("connection reset"))
	m.healthCheck()
	require.Equal(t, models.StorageDegraded, m.Mode())

	stranded, err := m.AddFace(ctx, "Bob", []float64{0, 1, 0, 0})
	require.NoError(t, err)
	_, err = m.AppendLog(ctx, &models.RecognitionLogEntry{Outcome: models.OutcomeUnmatched, Method: models.MethodFallback})
	require.NoError(t, err)

	stub.setPingErr(nil)
	m.reconnect()
	require.Equal(t, models.StorageConnected, m.Mode())

	// Reconnection alone must not merge degraded-mode data.
	faces, err := m.ListFaces(ctx)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, persisted.ID, faces[0].ID)

	facesCopied, logsCopied, err := m.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, facesCopied)
	assert.Equal(t, 1, logsCopied)

	faces, err = m.ListFaces(ctx)
	require.NoError(t, err)
	require.Len(t, faces, 2)

	ids := []string{faces[0].ID, faces[1].ID}
	assert.Contains(t, ids, stranded.ID)

	// Reconcile skips ids it already copied.
	facesCopied, logsCopied, err = m.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, facesCopied)
	assert.Zero(t, logsCopied)
}

func TestManagerReconcileRequiresConnection(t *testing.T) {
	m := NewManager(testStorageConfig(), testDimension, nil, NewMemoryStore())
	_, _, err := m.Reconcile(context.Background())
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
}

func TestManagerConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testStorageConfig(), testDimension, nil, NewMemoryStore())

	const n = 12
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.AddFace(ctx, fmt.Sprintf("face-%d", i), []float64{float64(i), 0, 0, 1})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	faces, err := m.ListFaces(ctx)
	require.NoError(t, err)
	require.Len(t, faces, n)

	ids := make(map[string]struct{}, n)
	for _, f := range faces {
		ids[f.ID] = struct{}{}
	}
	assert.Len(t, ids, n)
}
