package tasks

import (
	"github.com/shopspring/decimal"

	"xsolla-tools/internal/services/launcher"
)

// Form structs carry the inputs of each task, whether they come from the
// command line or the control panel.

type ImportForm struct {
	APIKey    string `json:"api_key" binding:"required"`
	ProjectID int    `json:"project_id" binding:"required"`
	AppID     int    `json:"app_id" binding:"required"`
}

type DeleteForm struct {
	APIKey    string `json:"api_key" binding:"required"`
	ProjectID int    `json:"project_id" binding:"required"`
	SKU       string `json:"sku" binding:"required"`
}

// RecalculateForm.Discount is a fraction in [0, 0.99].
type RecalculateForm struct {
	APIKey    string          `json:"api_key" binding:"required"`
	ProjectID int             `json:"project_id" binding:"required"`
	SKU       string          `json:"sku" binding:"required"`
	Discount  decimal.Decimal `json:"discount"`
}

type UpdatePricesForm struct {
	APIKey    string `json:"api_key" binding:"required"`
	ProjectID int    `json:"project_id" binding:"required"`
	SKU       string `json:"sku" binding:"required"`
	AppID     int    `json:"app_id" binding:"required"`
}

// PublishForm.LoaderPath falls back to the last loader used when empty.
type PublishForm struct {
	LauncherKey string              `json:"launcher_key" binding:"required"`
	GameFolder  string              `json:"game_folder" binding:"required"`
	LoaderPath  string              `json:"loader_path"`
	Description string              `json:"description"`
	Visibility  launcher.Visibility `json:"visibility"`
}

type KeysForm struct {
	OutputPath string `json:"output_path" binding:"required"`
	Count      int    `json:"count" binding:"required,min=1"`
}

// QRCodeForm.SKUType is "game" when empty.
type QRCodeForm struct {
	ProjectID  int    `json:"project_id" binding:"required"`
	SKU        string `json:"sku" binding:"required"`
	SKUType    string `json:"sku_type"`
	OutputPath string `json:"output_path" binding:"required"`
}

type CSVForm struct {
	APIKey    string `json:"api_key" binding:"required"`
	ProjectID int    `json:"project_id" binding:"required"`
	Path      string `json:"path" binding:"required"`
}
