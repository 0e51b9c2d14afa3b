// Package tasks runs the background maintenance jobs: currently a periodic
// sweep that flags credentials past their expiry so operators can rotate
// them.
package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"obser.dev/internal/obs"
	"obser.dev/internal/registry"
)

// Sweeper periodically reports expired credentials. It never mutates them;
// rotation is a human decision.
type Sweeper struct {
	credentials registry.CredentialStore
	cron        *cron.Cron
	now         func() time.Time
}

// NewSweeper constructs a Sweeper over the credential store.
func NewSweeper(credentials registry.CredentialStore) *Sweeper {
	return &Sweeper{
		credentials: credentials,
		cron:        cron.New(),
		now:         time.Now,
	}
}

// Start registers the sweep under the given cron schedule and starts the
// scheduler.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			obs.Logger().WithError(err).Error("credential sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep logs every credential whose expiry is in the past.
func (s *Sweeper) Sweep(ctx context.Context) error {
	expired, err := s.credentials.ListExpired(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	for _, c := range expired {
		obs.Logger().WithFields(logrus.Fields{
			"credential_id": c.ID,
			"project_id":    c.ProjectID,
			"kind":          c.Kind,
			"expired_at":    c.ExpiresAt,
		}).Warn("credential past expiry")
	}
	if len(expired) > 0 {
		obs.Logger().WithField("count", len(expired)).Info("credential sweep complete")
	}
	return nil
}
