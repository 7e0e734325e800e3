package tasks

import (
	"bufio"
	"context"
	"fmt"
	"image/color"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/models"
)

const (
	purchaseURL = "https://purchase.xsolla.com/pages/buy"
	// base64 of {"theme": "dark"}
	darkTheme = "eyJ0aGVtZSI6ICJkYXJrIn0"

	qrSize = 512
)

var (
	qrForeground = color.RGBA{R: 255, G: 0, B: 91, A: 255}
	qrBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// FormatKey splits a 26 character ULID into 6-6-7-7 groups.
func FormatKey(id ulid.ULID) string {
	s := id.String()
	return s[:6] + "-" + s[6:12] + "-" + s[12:19] + "-" + s[19:]
}

// GenerateKeys writes count fresh redemption keys to the output file, one per line.
func (s *Service) GenerateKeys(ctx context.Context, form KeysForm) ([]string, error) {
	var keys []string
	err := s.track(ctx, TaskKeys, 0, form.OutputPath, func(ctx context.Context, run *models.TaskRun) error {
		if form.Count < 1 {
			return errs.Validation("count must be at least 1, got %d", form.Count)
		}
		if form.OutputPath == "" {
			return errs.Validation("output path is required")
		}

		f, err := os.Create(form.OutputPath)
		if err != nil {
			return err
		}
		defer f.Close()

		w := bufio.NewWriter(f)
		keys = make([]string, 0, form.Count)
		for i := 0; i < form.Count; i++ {
			key := FormatKey(ulid.Make())
			keys = append(keys, key)
			if _, err := w.WriteString(key + "\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		logrus.WithField("path", form.OutputPath).Infof("%d keys successfully generated", form.Count)
		return f.Close()
	})
	return keys, err
}

// PurchaseURL is the checkout page that sells sku directly.
func PurchaseURL(projectID int, skuType, sku string) string {
	return fmt.Sprintf("%s?type=%s&project_id=%d&sku=%s&ui_settings=%s",
		purchaseURL, url.QueryEscape(skuType), projectID, url.QueryEscape(sku), darkTheme)
}

// GenerateQRCode renders a PNG QR code pointing at the checkout for sku and
// returns the encoded URL.
func (s *Service) GenerateQRCode(ctx context.Context, form QRCodeForm) (string, error) {
	var link string
	err := s.track(ctx, TaskQRCode, form.ProjectID, form.SKU, func(ctx context.Context, run *models.TaskRun) error {
		if form.ProjectID <= 0 {
			return errs.Validation("project id must be a positive number")
		}
		if form.SKU == "" {
			return errs.Validation("sku is required")
		}
		if form.OutputPath == "" {
			return errs.Validation("output path is required")
		}
		skuType := form.SKUType
		if skuType == "" {
			skuType = "game"
		}

		path := form.OutputPath
		if !strings.EqualFold(filepath.Ext(path), ".png") {
			path += ".png"
		}

		link = PurchaseURL(form.ProjectID, skuType, form.SKU)
		qr, err := qrcode.New(link, qrcode.Highest)
		if err != nil {
			return err
		}
		qr.ForegroundColor = qrForeground
		qr.BackgroundColor = qrBackground
		if err := qr.WriteFile(qrSize, path); err != nil {
			return err
		}

		run.Target = path
		logrus.WithFields(logrus.Fields{"sku": form.SKU, "path": path}).Info("QR code generated")
		return nil
	})
	return link, err
}
