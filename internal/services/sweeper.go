package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

// ExpirySweeper periodically latches overdue open items shut. Lazy expiry on
// PlaceBid stays the authoritative mechanism; the sweep only covers items no
// bidder touches anymore.
type ExpirySweeper struct {
	cron       *cron.Cron
	engine     *AuctionEngine
	lock       domain.SweepLock
	instanceID string
	interval   time.Duration
	log        logger.Logger
}

func NewExpirySweeper(engine *AuctionEngine, lock domain.SweepLock, instanceID string, interval time.Duration, log logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		cron:       cron.New(),
		engine:     engine,
		lock:       lock,
		instanceID: instanceID,
		interval:   interval,
		log:        log,
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.log.Info("Starting expiry sweeper", "interval", s.interval)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *ExpirySweeper) Stop() error {
	s.log.Info("Stopping expiry sweeper")
	s.cron.Stop()
	return nil
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.TryAcquire(ctx, s.instanceID, s.interval)
		if err != nil {
			s.log.Error("Failed to acquire sweep lock", "error", err)
			return
		}
		if !acquired {
			return
		}
		defer func() {
			if err := s.lock.Release(ctx, s.instanceID); err != nil {
				s.log.Error("Failed to release sweep lock", "error", err)
			}
		}()
	}

	closed, err := s.engine.CloseExpired(ctx)
	if err != nil {
		s.log.Error("Expiry sweep failed", "error", err)
		return
	}
	if closed > 0 {
		s.log.Info("Expiry sweep closed items", "count", closed)
	}
}
