package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/evoclabs/crm/pkg/leads"
	"github.com/evoclabs/crm/pkg/logger"
)

// CronManager schedules the silent background refresh of the lead
// list. A refresh failure never disturbs the serving session list; it
// is logged and retried on the next tick.
type CronManager struct {
	cron        *cron.Cron
	leadService *leads.Service
	spec        string
	log         logger.Logger
}

// NewCronManager creates a new cron manager. spec is a standard cron
// expression, e.g. "*/5 * * * *".
func NewCronManager(leadService *leads.Service, spec string, log logger.Logger) *CronManager {
	if log == nil {
		log = logger.Default()
	}
	return &CronManager{
		cron:        cron.New(),
		leadService: leadService,
		spec:        spec,
		log:         log,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	_, err := cm.cron.AddFunc(cm.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := cm.leadService.Fetch(ctx); err != nil {
			if errors.Is(err, leads.ErrNoLeads) {
				cm.log.Warn("scheduled refresh found no leads")
				return
			}
			cm.log.Error("scheduled refresh failed", "error", err)
			return
		}
		cm.log.Debug("scheduled refresh completed", "count", len(cm.leadService.Leads()))
	})
	if err != nil {
		return err
	}

	cm.log.Info("cron jobs configured", "refresh_spec", cm.spec)
	return nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.cron.Start()
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
}
