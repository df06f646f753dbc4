// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/dominoes/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list (queue) name for match action logs.
const DefaultQueueName = "dominoes_actions"

// Connect opens a client to addr and pings it once.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher pushes action records onto the historian queue.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// NewPublisher returns a publisher for queue (DefaultQueueName if empty).
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// Publish serializes the record to JSON, then pushes it to the Redis queue.
func (p *Publisher) Publish(ctx context.Context, record models.ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// Journal hands records from lobbies to a background publisher. Record never
// blocks: lobbies call it with their lock held, so a full buffer drops the
// record and logs it instead.
type Journal struct {
	pub     *Publisher
	records chan models.ActionRecord
	logger  *logrus.Entry
}

// NewJournal buffers up to size records in front of pub.
func NewJournal(pub *Publisher, size int, logger *logrus.Logger) *Journal {
	if size <= 0 {
		size = 256
	}
	return &Journal{
		pub:     pub,
		records: make(chan models.ActionRecord, size),
		logger:  logger.WithField("component", "journal"),
	}
}

func (j *Journal) Record(rec models.ActionRecord) {
	select {
	case j.records <- rec:
	default:
		j.logger.WithFields(logrus.Fields{
			"match":  rec.MatchID,
			"action": rec.ActionType,
			"index":  rec.ActionIndex,
		}).Warn("journal buffer full, dropping action record")
	}
}

// Run publishes buffered records until ctx is cancelled, then drains whatever
// is still queued before returning.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-j.records:
			j.publish(rec)
		case <-ctx.Done():
			j.drain()
			return nil
		}
	}
}

func (j *Journal) drain() {
	for {
		select {
		case rec := <-j.records:
			j.publish(rec)
		default:
			return
		}
	}
}

// publish uses its own deadline so records still drain after Run's context ends.
func (j *Journal) publish(rec models.ActionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.pub.Publish(ctx, rec); err != nil {
		j.logger.WithError(err).WithField("match", rec.MatchID).Error("failed to publish action record")
	}
}
