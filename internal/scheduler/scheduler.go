package scheduler

import (
	"context"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/services/price"
	"xsolla-tools/internal/services/tasks"
)

// Job keeps one game's prices in sync with a storefront app.
type Job struct {
	SKU   string
	AppID int
}

// ParseJobs reads a "sku=appid,sku2=appid2" list.
func ParseJobs(s string) ([]Job, error) {
	var jobs []Job
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		sku, id, ok := strings.Cut(pair, "=")
		sku = strings.TrimSpace(sku)
		if !ok || sku == "" {
			return nil, errs.Validation("invalid schedule job %q, expected sku=appid", pair)
		}
		appID, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil || appID <= 0 {
			return nil, errs.Validation("invalid app id in schedule job %q", pair)
		}
		jobs = append(jobs, Job{SKU: sku, AppID: appID})
	}
	return jobs, nil
}

// Runner is the part of tasks.Service the scheduler drives.
type Runner interface {
	UpdatePrices(ctx context.Context, form tasks.UpdatePricesForm) (price.Table, error)
}

// Scheduler periodically refreshes the prices of a fixed set of games.
type Scheduler struct {
	runner    Runner
	apiKey    string
	projectID int
	jobs      []Job
	cron      *cron.Cron
}

func New(runner Runner, apiKey string, projectID int, jobs []Job) *Scheduler {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	return &Scheduler{
		runner:    runner,
		apiKey:    apiKey,
		projectID: projectID,
		jobs:      jobs,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

// RunOnce updates every job in order and returns how many failed. A failing
// job does not stop the ones after it.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	failed := 0
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return failed + 1
		}
		_, err := s.runner.UpdatePrices(ctx, tasks.UpdatePricesForm{
			APIKey:    s.apiKey,
			ProjectID: s.projectID,
			SKU:       job.SKU,
			AppID:     job.AppID,
		})
		if err != nil {
			failed++
			logrus.WithError(err).WithFields(logrus.Fields{"sku": job.SKU, "app_id": job.AppID}).
				Error("Scheduled price update failed")
		}
	}
	logrus.WithFields(logrus.Fields{"jobs": len(s.jobs), "failed": failed}).Info("Scheduled price update finished")
	return failed
}

// Run executes RunOnce on spec until ctx is cancelled. A run still in
// progress when the next one is due is not overlapped.
func (s *Scheduler) Run(ctx context.Context, spec string) error {
	if len(s.jobs) == 0 {
		return errs.Validation("no schedule jobs configured")
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(ctx) }); err != nil {
		return errs.Validation("invalid schedule %q: %v", spec, err)
	}

	logrus.WithFields(logrus.Fields{"schedule": spec, "jobs": len(s.jobs)}).Info("Scheduler started")
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	logrus.Info("Scheduler stopped")
	return nil
}
