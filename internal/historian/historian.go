// internal/historian/historian.go is an asynchronous service that pops match
// actions from a Redis queue and persists them to a store.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/dominoes/internal/cache"
	"github.com/jason-s-yu/dominoes/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Store persists archived actions. database.ActionStore implements it.
type Store interface {
	SaveActions(ctx context.Context, recs []models.ActionRecord) error
	MarkAbandoned(ctx context.Context, matchID uuid.UUID) error
}

// Config tunes batching and abandonment.
type Config struct {
	Queue          string
	BatchSize      int
	FlushDelay     time.Duration
	PopTimeout     time.Duration
	Inactivity     time.Duration // a match idle this long is marked abandoned
	InactivityTick time.Duration
}

// DefaultConfig mirrors the historian's environment defaults.
func DefaultConfig() Config {
	return Config{
		Queue:          cache.DefaultQueueName,
		BatchSize:      20,
		FlushDelay:     500 * time.Millisecond,
		PopTimeout:     3 * time.Second,
		Inactivity:     10 * time.Minute,
		InactivityTick: time.Minute,
	}
}

// Service drains the queue in batches. Matches that end are forgotten;
// matches that go quiet are marked abandoned.
type Service struct {
	rdb    *redis.Client
	store  Store
	cfg    Config
	logger *logrus.Entry

	lastActivity sync.Map // uuid.UUID -> time.Time

	batchMu sync.Mutex
	batch   []models.ActionRecord
}

func NewService(rdb *redis.Client, store Store, cfg Config, logger *logrus.Logger) *Service {
	def := DefaultConfig()
	if cfg.Queue == "" {
		cfg.Queue = def.Queue
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = def.FlushDelay
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = def.PopTimeout
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = def.Inactivity
	}
	if cfg.InactivityTick <= 0 {
		cfg.InactivityTick = def.InactivityTick
	}
	return &Service{
		rdb:    rdb,
		store:  store,
		cfg:    cfg,
		logger: logger.WithField("component", "historian"),
		batch:  make([]models.ActionRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes what it holds.
func (hs *Service) Run(ctx context.Context) error {
	hs.logger.WithField("queue", hs.cfg.Queue).Info("historian service started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hs.readLoop(gctx) })
	g.Go(func() error { return hs.flushLoop(gctx) })
	g.Go(func() error { return hs.inactivityLoop(gctx) })
	err := g.Wait()

	hs.flush(context.Background())
	hs.logger.Info("historian shutting down")
	return err
}

// readLoop uses BLPop with a timeout so that context cancellation is handled.
func (hs *Service) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := hs.rdb.BLPop(ctx, hs.cfg.PopTimeout, hs.cfg.Queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			hs.logger.WithError(err).Error("BLPop failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		var rec models.ActionRecord
		if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
			hs.logger.WithError(err).Warn("invalid action record")
			continue
		}
		hs.track(rec)
		hs.appendToBatch(ctx, rec)
	}
}

func (hs *Service) track(rec models.ActionRecord) {
	if rec.ActionType == models.ActionMatchEnd {
		hs.lastActivity.Delete(rec.MatchID)
		return
	}
	hs.lastActivity.Store(rec.MatchID, time.Now())
}

// appendToBatch adds a record to the batch and flushes once it reaches BatchSize.
func (hs *Service) appendToBatch(ctx context.Context, rec models.ActionRecord) {
	hs.batchMu.Lock()
	hs.batch = append(hs.batch, rec)
	full := len(hs.batch) >= hs.cfg.BatchSize
	hs.batchMu.Unlock()
	if full {
		hs.flush(ctx)
	}
}

func (hs *Service) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(hs.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			hs.flush(ctx)
		}
	}
}

// flush writes the current batch in one store call. A failed batch stays
// queued and is retried on the next flush.
func (hs *Service) flush(ctx context.Context) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	if len(hs.batch) == 0 {
		return
	}
	pending := make([]models.ActionRecord, len(hs.batch))
	copy(pending, hs.batch)

	if err := hs.store.SaveActions(ctx, pending); err != nil {
		hs.logger.WithError(err).WithField("count", len(pending)).Error("flush failed")
		return
	}
	hs.batch = hs.batch[:0]
	hs.logger.WithField("count", len(pending)).Debug("flushed actions")
}

func (hs *Service) inactivityLoop(ctx context.Context) error {
	ticker := time.NewTicker(hs.cfg.InactivityTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			hs.sweep(ctx, time.Now())
		}
	}
}

// sweep marks every match idle since before now-Inactivity as abandoned.
func (hs *Service) sweep(ctx context.Context, now time.Time) {
	hs.lastActivity.Range(func(key, val interface{}) bool {
		matchID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= hs.cfg.Inactivity {
			return true
		}
		hs.flush(ctx)
		if err := hs.store.MarkAbandoned(ctx, matchID); err != nil {
			hs.logger.WithError(err).WithField("match", matchID).Error("failed to mark match abandoned")
			return true
		}
		hs.lastActivity.Delete(matchID)
		hs.logger.WithField("match", matchID).Info("marked match abandoned due to inactivity")
		return true
	})
}
