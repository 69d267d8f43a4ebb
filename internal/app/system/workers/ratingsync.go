// internal/app/system/workers/ratingsync.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/directoryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// BusinessLister pages through business ids in ascending order.
type BusinessLister interface {
	IDsAfter(ctx context.Context, after primitive.ObjectID, limit int64) ([]primitive.ObjectID, error)
}

// Resyncer recomputes one business's rating.
type Resyncer interface {
	Resync(ctx context.Context, businessID primitive.ObjectID) (models.RatingStats, error)
}

const ratingSyncPage = 200

// RatingSync is a background worker that recomputes every business rating
// from its approved reviews. Decisions already recompute inline; this repairs
// aggregates left behind when a recompute failed after its review transition
// had been written.
type RatingSync struct {
	businesses BusinessLister
	resync     Resyncer
	log        *zap.Logger
	interval   time.Duration
	timeout    time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewRatingSync creates a new rating sync worker.
//
// Parameters:
//   - businesses: pages through every business id
//   - resync: recomputes one business
//   - logger: zap logger for logging
//   - interval: how often to run a full pass (e.g., 1 hour)
//   - timeout: upper bound for one full pass
func NewRatingSync(businesses BusinessLister, resync Resyncer, logger *zap.Logger, interval, timeout time.Duration) *RatingSync {
	return &RatingSync{
		businesses: businesses,
		resync:     resync,
		log:        logger,
		interval:   interval,
		timeout:    timeout,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the background sync loop.
func (w *RatingSync) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("rating sync worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *RatingSync) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("rating sync worker stopped")
}

func (w *RatingSync) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			_, _ = w.SyncAll(ctx)
			cancel()
		}
	}
}

// SyncAll runs one full pass and returns how many businesses were
// recomputed and how many failed. A failing business is logged and skipped.
func (w *RatingSync) SyncAll(ctx context.Context) (synced, failed int) {
	after := primitive.NilObjectID
	for {
		ids, err := w.businesses.IDsAfter(ctx, after, ratingSyncPage)
		if err != nil {
			w.log.Error("rating sync: list businesses failed", zap.Error(err))
			return synced, failed
		}
		for _, id := range ids {
			if _, err := w.resync.Resync(ctx, id); err != nil {
				w.log.Warn("rating sync: recompute failed",
					zap.String("business_id", id.Hex()),
					zap.Error(err))
				failed++
				continue
			}
			synced++
		}
		if len(ids) < ratingSyncPage {
			break
		}
		after = ids[len(ids)-1]
	}

	w.log.Info("rating sync pass finished", zap.Int("synced", synced), zap.Int("failed", failed))
	return synced, failed
}
