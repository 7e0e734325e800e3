package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/services/price"
)

const (
	DefaultStoreURL   = "https://store.steampowered.com"
	DefaultWebAPIURL  = "https://api.steampowered.com"
	DefaultLocale     = "en"
	DefaultFloodDelay = 1500 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
)

// Currencies is the ordered list swept when collecting prices.
var Currencies = []string{"USD", "GBP", "EUR", "RUB", "BRL", "JPY", "MYR", "PHP", "SGD",
	"THB", "VND", "KRW", "UAH", "MXN", "CAD", "AUD", "NZD", "NOK",
	"PLN", "CHF", "CNY", "INR", "CLP", "PEN", "COP", "ZAR", "HKD",
	"TWD", "SAR", "AED", "ILS", "KZT", "KWD", "QAR", "CRC", "UYU"}

// Options configures a SteamService. A zero FloodDelay disables flood protection.
type Options struct {
	StoreURL   string
	WebAPIURL  string
	Locale     string
	Timeout    time.Duration
	FloodDelay time.Duration
	Clock      Clock
}

// SteamService reads the storefront's public catalog API. Every outbound call
// goes through one RateLimiter.
type SteamService struct {
	store   *resty.Client
	webapi  *resty.Client
	limiter *RateLimiter
	locale  string
}

func NewSteamService(opts Options) *SteamService {
	if opts.StoreURL == "" {
		opts.StoreURL = DefaultStoreURL
	}
	if opts.WebAPIURL == "" {
		opts.WebAPIURL = DefaultWebAPIURL
	}
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	newClient := func(base string) *resty.Client {
		client := resty.New()
		client.SetBaseURL(base)
		client.SetTimeout(opts.Timeout)
		client.SetHeader("User-Agent", "Xsolla-Tools/1.0")
		return client
	}

	return &SteamService{
		store:   newClient(opts.StoreURL),
		webapi:  newClient(opts.WebAPIURL),
		limiter: NewRateLimiter(opts.FloodDelay, opts.Clock),
		locale:  opts.Locale,
	}
}

type detailsEntry struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// FetchProduct returns the details of one app or package in a region.
// ok is false, with a nil error, when the product is not sold there.
func (s *SteamService) FetchProduct(ctx context.Context, id int, kind Kind, cc, locale string) (product *Product, ok bool, err error) {
	data, ok, err := s.fetchDetails(ctx, id, kind, cc, locale)
	if err != nil || !ok {
		return nil, false, err
	}

	product, err = DecodeProduct(data)
	if err != nil {
		return nil, false, err
	}
	if product.AppID == 0 {
		product.AppID = id
	}
	return product, true, nil
}

// fetchDetails returns the raw "data" object of a details call.
func (s *SteamService) fetchDetails(ctx context.Context, id int, kind Kind, cc, locale string) (json.RawMessage, bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	if locale == "" {
		locale = s.locale
	}

	idStr := strconv.Itoa(id)
	resp, err := s.store.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			string(kind) + "ids": idStr,
			"cc":                 cc,
			"l":                  locale,
		}).
		Get(fmt.Sprintf("/api/%sdetails", kind))
	if err != nil {
		return nil, false, errs.Transport(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, false, fmt.Errorf("%w: steam request at %s returned %d", errs.ErrTransport, resp.Request.URL, resp.StatusCode())
	}

	var envelope map[string]detailsEntry
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, false, errs.Format("decode steam response: %v", err)
	}
	entry, found := envelope[idStr]
	if !found || entry.Success == nil {
		return nil, false, errs.Format("invalid steam response for %s: no 'success' field", idStr)
	}
	if !*entry.Success {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// FetchPricesAcrossCurrencies polls the app once per currency and collects the
// undiscounted price. Regions where the app is not sold are skipped. A free
// app yields an empty table and stops the sweep.
func (s *SteamService) FetchPricesAcrossCurrencies(ctx context.Context, appID int, currencies []string) (price.Table, error) {
	prices := price.Table{}
	for _, currency := range currencies {
		log := logrus.WithFields(logrus.Fields{"app_id": appID, "currency": currency})
		log.Info("Getting price")

		data, ok, err := s.fetchDetails(ctx, appID, KindApp, CountryCode(currency), s.locale)
		if err != nil {
			return nil, fmt.Errorf("fetch %s price for %d: %w", currency, appID, err)
		}
		if !ok {
			log.Debug("Not sold in this region")
			continue
		}
		pricing, err := DecodePricing(data)
		if err != nil {
			return nil, fmt.Errorf("fetch %s price for %d: %w", currency, appID, err)
		}
		if pricing.IsFree {
			log.Info("Game is free - no prices needed")
			return price.Table{}, nil
		}
		if pricing.Price == nil {
			continue
		}
		prices[currency] = decimal.New(pricing.Price.Initial, -2)
	}
	return prices, nil
}

// CountryCode derives the storefront region from a currency code ("USD" -> "us").
func CountryCode(currency string) string {
	if len(currency) < 2 {
		return strings.ToLower(currency)
	}
	return strings.ToLower(currency[:2])
}

// GetAppList fetches the full app list and removes duplicate ids.
func (s *SteamService) GetAppList(ctx context.Context) ([]AppStub, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	resp, err := s.webapi.R().SetContext(ctx).Get("/ISteamApps/GetAppList/v2/")
	if err != nil {
		return nil, 0, errs.Transport(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: steam request at %s returned %d", errs.ErrTransport, resp.Request.URL, resp.StatusCode())
	}

	var result struct {
		AppList struct {
			Apps []AppStub `json:"apps"`
		} `json:"applist"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, 0, errs.Format("decode app list: %v", err)
	}

	apps, removed := DedupApps(result.AppList.Apps)
	logrus.WithField("removed", removed).Info("Removed duplicate app list entries")
	return apps, removed, nil
}

// DedupApps sorts by id and keeps the first entry of every id.
func DedupApps(apps []AppStub) ([]AppStub, int) {
	sorted := make([]AppStub, len(apps))
	copy(sorted, apps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AppID < sorted[j].AppID })

	out := sorted[:0]
	for i, a := range sorted {
		if i > 0 && a.AppID == out[len(out)-1].AppID {
			continue
		}
		out = append(out, a)
	}
	return out, len(apps) - len(out)
}
