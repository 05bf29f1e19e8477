package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/store"
	"github.com/nulzo/ollama-openai-proxy/internal/store/model"
)

type fakeRepo struct {
	mu   sync.Mutex
	logs []*model.RequestLog
}

func (f *fakeRepo) Requests() store.RequestRepository { return (*fakeRequests)(f) }
func (f *fakeRepo) Close() error                      { return nil }

func (f *fakeRepo) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logs)
}

type fakeRequests fakeRepo

func (f *fakeRequests) Log(ctx context.Context, log *model.RequestLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeRequests) GetByID(ctx context.Context, id string) (*model.RequestLog, error) {
	return nil, nil
}

func (f *fakeRequests) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	return nil, nil
}

func (f *fakeRequests) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	return nil, nil
}

func TestIngestorDrainsOnStop(t *testing.T) {
	repo := &fakeRepo{}
	ing := NewIngestor(zap.NewNop(), repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ing.Start(ctx)

	for i := 0; i < 10; i++ {
		ing.Log(&model.RequestLog{ID: "log"})
	}
	ing.Stop()

	require.Eventually(t, func() bool {
		return repo.stored() == 10
	}, time.Second, 10*time.Millisecond)
}

func TestIngestorFlushesFullBatch(t *testing.T) {
	repo := &fakeRepo{}
	ing := NewIngestor(zap.NewNop(), repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ing.Start(ctx)

	// one more than the batch size, so the first flush triggers on count
	for i := 0; i < 51; i++ {
		ing.Log(&model.RequestLog{ID: "log"})
	}

	require.Eventually(t, func() bool {
		return repo.stored() >= 50
	}, time.Second, 10*time.Millisecond)
}

func TestIngestorDropsWhenBufferFull(t *testing.T) {
	repo := &fakeRepo{}
	ing := NewIngestor(zap.NewNop(), repo).(*ingestor)
	ing.logChan = make(chan *model.RequestLog, 1)

	// never started, so the second log has nowhere to go
	ing.Log(&model.RequestLog{ID: "first"})
	ing.Log(&model.RequestLog{ID: "dropped"})

	assert.Len(t, ing.logChan, 1)
}
