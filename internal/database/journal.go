package database

import (
	"gorm.io/gorm"

	"xsolla-tools/internal/models"
)

// Journal persists task runs and storefront price sweeps.
type Journal struct {
	db *gorm.DB
}

func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) StartRun(run *models.TaskRun) error {
	return j.db.Create(run).Error
}

func (j *Journal) FinishRun(run *models.TaskRun) error {
	return j.db.Model(run).Updates(map[string]interface{}{
		"status":      run.Status,
		"error":       run.Error,
		"finished_at": run.FinishedAt,
	}).Error
}

func (j *Journal) SaveSnapshots(snapshots []models.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return j.db.Create(&snapshots).Error
}

// RecentRuns returns the latest runs, newest first.
func (j *Journal) RecentRuns(limit int) ([]models.TaskRun, error) {
	var runs []models.TaskRun
	err := j.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// LatestSnapshots returns the most recent sweep recorded for an app.
func (j *Journal) LatestSnapshots(appID int) ([]models.PriceSnapshot, error) {
	var latest models.PriceSnapshot
	err := j.db.Where("app_id = ?", appID).Order("taken_at DESC").First(&latest).Error
	if err != nil {
		return nil, err
	}

	var snapshots []models.PriceSnapshot
	err = j.db.Where("app_id = ? AND run_id = ?", appID, latest.RunID).
		Order("currency ASC").
		Find(&snapshots).Error
	return snapshots, err
}
