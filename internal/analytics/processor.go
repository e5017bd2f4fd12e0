package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/cache"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

// ActivitySink receives the batched events. *clickhouse.Client implements it.
type ActivitySink interface {
	InsertActivityEvent(ctx context.Context, event *models.ActivityEvent) error
}

// Processor sinks activity events into ClickHouse and keeps the Redis
// trending set warm. It sits behind the Kafka consumer, so a burst of search
// traffic batches up here instead of hammering the sink row by row.
type Processor struct {
	sink   ActivitySink
	cache  *cache.RedisCache
	logger *zap.Logger

	mu        sync.Mutex
	buffer    []models.ActivityEvent
	batchSize int
	ticker    *time.Ticker
	done      chan struct{}
}

func NewProcessor(sink ActivitySink, redisCache *cache.RedisCache, batchSize int, flushInterval time.Duration, logger *zap.Logger) *Processor {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}

	p := &Processor{
		sink:      sink,
		cache:     redisCache,
		logger:    logger,
		buffer:    make([]models.ActivityEvent, 0, batchSize),
		batchSize: batchSize,
		ticker:    time.NewTicker(flushInterval),
		done:      make(chan struct{}),
	}

	go p.flushLoop()

	return p
}

// HandleEvent buffers one event for the ClickHouse sink and, for search
// events, bumps the trending set. The trending write is best-effort; the
// sink write participates in the consumer's retry/DLQ loop via the flush
// error.
func (p *Processor) HandleEvent(ctx context.Context, event *models.ActivityEvent) error {
	if event == nil {
		return fmt.Errorf("nil activity event")
	}

	if event.Type == "search" && event.Query != "" && p.cache != nil {
		go func(query string) {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := p.cache.RecordQuery(cacheCtx, query); err != nil {
				p.logger.Warn("trending record failed", zap.Error(err))
			}
		}(event.Query)
	}

	p.mu.Lock()
	p.buffer = append(p.buffer, *event)
	shouldFlush := len(p.buffer) >= p.batchSize
	p.mu.Unlock()

	if shouldFlush {
		return p.flush(ctx)
	}
	return nil
}

func (p *Processor) flushLoop() {
	for {
		select {
		case <-p.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.flush(ctx); err != nil {
				p.logger.Error("periodic flush failed", zap.Error(err))
			}
			cancel()
		case <-p.done:
			return
		}
	}
}

func (p *Processor) flush(ctx context.Context) error {
	p.mu.Lock()
	if len(p.buffer) == 0 {
		p.mu.Unlock()
		return nil
	}
	batch := make([]models.ActivityEvent, len(p.buffer))
	copy(batch, p.buffer)
	p.buffer = p.buffer[:0]
	p.mu.Unlock()

	start := time.Now()
	var lastErr error
	for i := range batch {
		if err := p.sink.InsertActivityEvent(ctx, &batch[i]); err != nil {
			lastErr = err
			observability.ActivityEventsTotal.WithLabelValues(batch[i].Type, "error").Inc()
			p.logger.Warn("activity sink insert failed",
				zap.String("type", batch[i].Type),
				zap.Error(err),
			)
			continue
		}
		observability.ActivityEventsTotal.WithLabelValues(batch[i].Type, "sunk").Inc()
	}

	p.logger.Debug("activity flush completed",
		zap.Int("count", len(batch)),
		zap.Duration("duration", time.Since(start)),
	)

	if lastErr != nil {
		return fmt.Errorf("activity flush: %w", lastErr)
	}
	return nil
}

func (p *Processor) Stop() error {
	p.ticker.Stop()
	close(p.done)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return p.flush(ctx)
}
