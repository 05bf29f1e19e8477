package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/store"
	"github.com/nulzo/ollama-openai-proxy/internal/store/model"
)

// Ingestor handles the asynchronous persistence of request logs. Logging
// never blocks a request: when the buffer is full the record is dropped.
type Ingestor interface {
	Log(log *model.RequestLog)
	Start(ctx context.Context)
	Stop()
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	logChan   chan *model.RequestLog
	batchSize int
	flushTime time.Duration
}

func NewIngestor(logger *zap.Logger, repo store.Repository) Ingestor {
	return &ingestor{
		logger:    logger,
		repo:      repo,
		logChan:   make(chan *model.RequestLog, 10000),
		batchSize: 50,
		flushTime: 5 * time.Second,
	}
}

func (i *ingestor) Log(log *model.RequestLog) {
	select {
	case i.logChan <- log:
	default:
		i.logger.Warn("analytics buffer full, dropping log", zap.String("request_id", log.ID))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

// Stop closes the intake channel; the worker drains what is buffered
// before exiting.
func (i *ingestor) Stop() {
	close(i.logChan)
}

func (i *ingestor) worker(ctx context.Context) {
	batch := make([]*model.RequestLog, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		for _, log := range batch {
			if err := i.repo.Requests().Log(context.Background(), log); err != nil {
				i.logger.Error("failed to persist request log", zap.String("id", log.ID), zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case log, ok := <-i.logChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, log)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}
