package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Normalizer repairs stored timestamps into the canonical zone.
type Normalizer interface {
	NormalizeAll(ctx context.Context) (int, error)
}

// MaintenanceScheduler runs the nightly timezone repair pass on a cron
// schedule, in the canonical zone.
type MaintenanceScheduler struct {
	cronEngine *cron.Cron
	normalizer Normalizer
	logger     *logrus.Entry
	cronSpec   string
}

func NewMaintenanceScheduler(normalizer Normalizer, loc *time.Location, logger *logrus.Entry, cronSpec string) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		normalizer: normalizer,
		logger:     logger,
		cronSpec:   cronSpec,
	}
}

func (m *MaintenanceScheduler) Start() error {
	_, err := m.cronEngine.AddFunc(m.cronSpec, func() {
		m.logger.Info("Cron job triggered for timezone normalization")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		repaired, err := m.normalizer.NormalizeAll(ctx)
		if err != nil {
			m.logger.WithError(err).Error("Timezone normalization failed")
			return
		}
		m.logger.WithField("repaired", repaired).Info("Timezone normalization completed")
	})
	if err != nil {
		return err
	}
	m.cronEngine.Start()
	m.logger.Info("Maintenance scheduler started")
	return nil
}

func (m *MaintenanceScheduler) Stop() {
	m.logger.Info("Stopping maintenance scheduler...")
	ctx := m.cronEngine.Stop()
	<-ctx.Done()
	m.logger.Info("Maintenance scheduler gracefully stopped")
}
