package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Task run states
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// TaskRun records one invocation of a store-management task
type TaskRun struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	Task       string     `json:"task" gorm:"index;not null"`
	ProjectID  int        `json:"project_id"`
	Target     string     `json:"target"` // sku, app id or output file the task acted on
	Status     string     `json:"status" gorm:"default:'running'"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// PriceSnapshot is one currency of a storefront price sweep
type PriceSnapshot struct {
	ID       uint            `json:"id" gorm:"primaryKey"`
	RunID    string          `json:"run_id" gorm:"index"`
	AppID    int             `json:"app_id" gorm:"index;not null"`
	Currency string          `json:"currency" gorm:"not null"`
	Amount   decimal.Decimal `json:"amount" gorm:"type:decimal(12,2)"`
	TakenAt  time.Time       `json:"taken_at"`
}
