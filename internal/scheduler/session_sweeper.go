package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/logger"
)

const sweepTimeout = time.Minute

// IdleEvicter drops in-memory cart clients that have not been used recently
type IdleEvicter interface {
	EvictIdle(maxIdle time.Duration) int
}

// SessionSweeper periodically purges expired visitor entries from stores
// that do not expire keys on their own, and releases idle cart clients.
type SessionSweeper struct {
	cron    *cron.Cron
	spec    string
	store   kvstore.Store
	carts   IdleEvicter
	maxIdle time.Duration
}

// NewSessionSweeper runs on the given cron spec, e.g. "@every 1h"
func NewSessionSweeper(spec string, store kvstore.Store, carts IdleEvicter, maxIdle time.Duration) *SessionSweeper {
	return &SessionSweeper{
		cron:    cron.New(),
		spec:    spec,
		store:   store,
		carts:   carts,
		maxIdle: maxIdle,
	}
}

func (s *SessionSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.Sweep); err != nil {
		logger.Error("Failed to add cron job for session sweep", err, logger.Fields{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Session sweeper started", logger.Fields{"spec": s.spec})
	return nil
}

// Sweep runs one pass
func (s *SessionSweeper) Sweep() {
	fields := logger.Fields{}

	if sweeper, ok := s.store.(kvstore.Sweeper); ok {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		removed, err := sweeper.DeleteExpired(ctx)
		cancel()
		if err != nil {
			logger.Error("Failed to purge expired sessions", err)
		} else {
			fields["expired_entries"] = removed
		}
	}

	if s.carts != nil && s.maxIdle > 0 {
		fields["idle_clients"] = s.carts.EvictIdle(s.maxIdle)
	}

	logger.Info("Session sweep finished", fields)
}

// Stop waits for a running sweep to finish
func (s *SessionSweeper) Stop() {
	logger.Info("Stopping session sweeper...")
	<-s.cron.Stop().Done()
	logger.Info("Session sweeper stopped")
}
