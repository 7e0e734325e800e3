package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/config"
	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/models"
	"xsolla-tools/internal/services/launcher"
	"xsolla-tools/internal/services/price"
	"xsolla-tools/internal/services/steam"
	"xsolla-tools/internal/services/xsolla"
)

// Task names as stored in the run journal.
const (
	TaskImport       = "import"
	TaskDelete       = "delete"
	TaskRecalculate  = "recalculate"
	TaskUpdatePrices = "update-prices"
	TaskPublish      = "publish"
	TaskKeys         = "keys"
	TaskQRCode       = "qrcode"
	TaskExportCSV    = "export-csv"
	TaskImportCSV    = "import-csv"
)

// Recorder stores the outcome of each task run. *database.Journal satisfies it.
type Recorder interface {
	StartRun(run *models.TaskRun) error
	FinishRun(run *models.TaskRun) error
	SaveSnapshots(snapshots []models.PriceSnapshot) error
}

type nopRecorder struct{}

func (nopRecorder) StartRun(*models.TaskRun) error              { return nil }
func (nopRecorder) FinishRun(*models.TaskRun) error             { return nil }
func (nopRecorder) SaveSnapshots([]models.PriceSnapshot) error { return nil }

// Options wires a Service. Only Steam is required.
type Options struct {
	Steam      *steam.SteamService
	Xsolla     xsolla.Options
	Recorder   Recorder
	Settings   *config.Settings
	Currencies []string
	Publisher  func(ctx context.Context, req launcher.PublishRequest) error
}

// Service runs store-management tasks. Tasks run sequentially inside one call;
// nothing is shared between calls apart from the storefront rate limiter.
type Service struct {
	steam      *steam.SteamService
	xsollaOpts xsolla.Options
	recorder   Recorder
	settings   *config.Settings
	currencies []string
	publish    func(ctx context.Context, req launcher.PublishRequest) error
}

func NewService(opts Options) *Service {
	s := &Service{
		steam:      opts.Steam,
		xsollaOpts: opts.Xsolla,
		recorder:   opts.Recorder,
		settings:   opts.Settings,
		currencies: opts.Currencies,
		publish:    opts.Publisher,
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if len(s.currencies) == 0 {
		s.currencies = steam.Currencies
	}
	if s.publish == nil {
		s.publish = launcher.Publish
	}
	return s
}

func (s *Service) project(apiKey string, projectID int) (*xsolla.ProjectService, error) {
	if apiKey == "" {
		return nil, errs.Validation("api key is required")
	}
	if projectID <= 0 {
		return nil, errs.Validation("project id must be a positive number")
	}
	return xsolla.NewProjectService(apiKey, projectID, s.xsollaOpts), nil
}

// track records run in the journal around fn. Journal failures are logged and
// never fail the task itself.
func (s *Service) track(ctx context.Context, task string, projectID int, target string, fn func(ctx context.Context, run *models.TaskRun) error) error {
	run := &models.TaskRun{
		ID:        uuid.NewString(),
		Task:      task,
		ProjectID: projectID,
		Target:    target,
		Status:    models.RunRunning,
		StartedAt: time.Now(),
	}
	log := logrus.WithFields(logrus.Fields{"task": task, "run_id": run.ID, "target": target})
	if err := s.recorder.StartRun(run); err != nil {
		log.WithError(err).Warn("Failed to record task run")
	}

	err := fn(ctx, run)

	finished := time.Now()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = models.RunFailed
		run.Error = err.Error()
		log.WithError(err).Error("Task failed")
	} else {
		run.Status = models.RunSucceeded
		log.WithField("elapsed", finished.Sub(run.StartedAt).Round(time.Millisecond)).Info("Task finished")
	}
	if ferr := s.recorder.FinishRun(run); ferr != nil {
		log.WithError(ferr).Warn("Failed to record task result")
	}
	return err
}

func (s *Service) saveSweep(run *models.TaskRun, appID int, prices price.Table) {
	if len(prices) == 0 {
		return
	}
	takenAt := time.Now()
	snapshots := make([]models.PriceSnapshot, 0, len(prices))
	for _, c := range prices.Currencies() {
		snapshots = append(snapshots, models.PriceSnapshot{
			RunID:    run.ID,
			AppID:    appID,
			Currency: c,
			Amount:   prices[c],
			TakenAt:  takenAt,
		})
	}
	if err := s.recorder.SaveSnapshots(snapshots); err != nil {
		logrus.WithError(err).WithField("app_id", appID).Warn("Failed to save price snapshots")
	}
}

// sweep fetches the app's price in every configured currency.
func (s *Service) sweep(ctx context.Context, run *models.TaskRun, appID int) (price.Table, error) {
	prices, err := s.steam.FetchPricesAcrossCurrencies(ctx, appID, s.currencies)
	if err != nil {
		return nil, err
	}
	s.saveSweep(run, appID, prices)
	return prices, nil
}

// BundleResult is the outcome of a bundle recalculation.
type BundleResult struct {
	SKU      string          `json:"sku"`
	Prices   price.Table     `json:"prices"`
	Warnings []price.Warning `json:"warnings,omitempty"`
	Discount decimal.Decimal `json:"discount"`
}
