package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xsolla-tools/internal/config"
	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/models"
	"xsolla-tools/internal/services/launcher"
	"xsolla-tools/internal/services/price"
	"xsolla-tools/internal/services/steam"
	"xsolla-tools/internal/services/xsolla"
)

const (
	testProject = 77
	testKey     = "secret"
	itemsPrefix = "/v2/project/77/admin/items/"
)

// platform is an in-memory commerce API for one project.
type platform struct {
	mu        sync.Mutex
	stores    map[string]map[string]map[string]any
	created   []map[string]any
	updates   []update
	deleted   []string
	listCalls int
	requests  int
}

type update struct {
	resource string
	sku      string
	body     map[string]any
}

func newPlatform(t *testing.T) (*platform, string) {
	t.Helper()
	p := &platform{stores: map[string]map[string]map[string]any{
		"game":                     {},
		"bundle":                   {},
		"virtual_items":            {},
		"virtual_currency/package": {},
	}}
	srv := httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(srv.Close)
	return p, srv.URL
}

func (p *platform) put(resource, doc string) {
	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		panic(err)
	}
	p.stores[resource][m["sku"].(string)] = m
}

func (p *platform) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++

	user, pass, _ := r.BasicAuth()
	if user != "77" || pass != testKey {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errorMessage": "Invalid credentials"}`)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, itemsPrefix)
	if rest == "game" {
		switch r.Method {
		case http.MethodGet:
			p.listCalls++
			skus := make([]string, 0, len(p.stores["game"]))
			for sku := range p.stores["game"] {
				skus = append(skus, sku)
			}
			sort.Strings(skus)
			items := make([]any, 0, len(skus))
			for _, sku := range skus {
				items = append(items, p.stores["game"][sku])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"has_more": false, "items": items})
		case http.MethodPost:
			body := decodeBody(r)
			p.created = append(p.created, body)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"item_id": 1001, "sku": %q}`, body["sku"])
		}
		return
	}

	idx := strings.Index(rest, "/sku/")
	if idx < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	resource, sku := rest[:idx], rest[idx+len("/sku/"):]
	store := p.stores[resource]
	doc, found := store[sku]

	switch r.Method {
	case http.MethodGet:
		if !found {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"errorMessage": "Item with SKU = %s not found"}`, sku)
			return
		}
		_ = json.NewEncoder(w).Encode(doc)
	case http.MethodPut:
		body := decodeBody(r)
		store[sku] = body
		p.updates = append(p.updates, update{resource: resource, sku: sku, body: body})
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if !found {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"errorMessage": "Item with SKU = %s not found"}`, sku)
			return
		}
		delete(store, sku)
		p.deleted = append(p.deleted, sku)
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeBody(r *http.Request) map[string]any {
	raw, _ := io.ReadAll(r.Body)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

const appDetails = `{"type": "game", "name": "Half-Life", "steam_appid": 70, "is_free": %t,
	"short_description": "Named Game of the Year by over 50 publications.",
	"header_image": "https://cdn.example/70/header.jpg",
	"price_overview": {"currency": "%s", "initial": %d, "final": %d, "discount_percent": 0}}`

// newStorefront serves app 70 priced per region; regions missing from prices
// answer "not sold".
func newStorefront(t *testing.T, prices map[string]int64, free bool) (*steam.SteamService, *int) {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		cc := r.URL.Query().Get("cc")
		cents, ok := prices[cc]
		if !ok {
			fmt.Fprint(w, `{"70": {"success": false}}`)
			return
		}
		fmt.Fprintf(w, `{"70": {"success": true, "data": `+appDetails+`}}`, free, strings.ToUpper(cc), cents, cents)
	}))
	t.Cleanup(srv.Close)
	return steam.NewSteamService(steam.Options{StoreURL: srv.URL}), &calls
}

type memoryRecorder struct {
	mu        sync.Mutex
	started   []models.TaskRun
	finished  []models.TaskRun
	snapshots []models.PriceSnapshot
}

func (m *memoryRecorder) StartRun(run *models.TaskRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, *run)
	return nil
}

func (m *memoryRecorder) FinishRun(run *models.TaskRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, *run)
	return nil
}

func (m *memoryRecorder) SaveSnapshots(s []models.PriceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s...)
	return nil
}

func (m *memoryRecorder) last(t *testing.T) models.TaskRun {
	t.Helper()
	require.NotEmpty(t, m.finished)
	return m.finished[len(m.finished)-1]
}

func newTestService(t *testing.T, sf *steam.SteamService, baseURL string) (*Service, *memoryRecorder) {
	t.Helper()
	rec := &memoryRecorder{}
	return NewService(Options{
		Steam:      sf,
		Xsolla:     xsolla.Options{BaseURL: baseURL},
		Recorder:   rec,
		Currencies: []string{"USD", "EUR", "RUB"},
	}), rec
}

func TestImportFromCatalog(t *testing.T) {
	p, baseURL := newPlatform(t)
	p.put("game", `{"sku": "70_halflife", "unit_items": []}`)
	sf, _ := newStorefront(t, map[string]int64{"us": 999, "eu": 919}, false)
	svc, rec := newTestService(t, sf, baseURL)

	created, err := svc.ImportFromCatalog(context.Background(), ImportForm{APIKey: testKey, ProjectID: testProject, AppID: 70})
	require.NoError(t, err)
	assert.Equal(t, "70_halflife_v2", created.SKU)

	require.Len(t, p.created, 1)
	body := p.created[0]
	assert.Equal(t, "70_halflife_v2", body["sku"])
	assert.Equal(t, map[string]any{"en-US": "Half-Life"}, body["name"])
	assert.Equal(t, "https://cdn.example/70/header.jpg", body["image_url"])

	units := body["unit_items"].([]any)
	require.Len(t, units, 1)
	unit := units[0].(map[string]any)
	assert.Equal(t, "70_halflife_v2_Steam", unit["sku"])
	assert.Equal(t, "Steam", unit["drm_name"])
	assert.Equal(t, "steam", unit["drm_sku"])
	assert.Equal(t, []any{
		map[string]any{"amount": 9.19, "currency": "EUR", "is_default": false, "is_enabled": true},
		map[string]any{"amount": 9.99, "currency": "USD", "is_default": true, "is_enabled": true},
	}, unit["prices"])

	run := rec.last(t)
	assert.Equal(t, models.RunSucceeded, run.Status)
	assert.Equal(t, TaskImport, run.Task)
	assert.Equal(t, "70_halflife_v2", run.Target)
	require.Len(t, rec.snapshots, 2)
	assert.Equal(t, run.ID, rec.snapshots[0].RunID)
	assert.Equal(t, "EUR", rec.snapshots[0].Currency)
	assert.True(t, decimal.RequireFromString("9.99").Equal(rec.snapshots[1].Amount))
}

func TestImportFromCatalogNotSold(t *testing.T) {
	p, baseURL := newPlatform(t)
	sf, _ := newStorefront(t, map[string]int64{"eu": 919}, false)
	svc, rec := newTestService(t, sf, baseURL)

	_, err := svc.ImportFromCatalog(context.Background(), ImportForm{APIKey: testKey, ProjectID: testProject, AppID: 70})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Empty(t, p.created)
	assert.Equal(t, models.RunFailed, rec.last(t).Status)
}

func TestImportPayloadTruncatesDescription(t *testing.T) {
	product := &steam.Product{Name: "Long", ShortDescription: strings.Repeat("é", 300)}
	payload := ImportPayload("1_long", product, price.Table{})

	short := payload["description"].(map[string]any)["en-US"].(string)
	assert.Equal(t, strings.Repeat("é", 250)+"(...)", short)
	assert.Equal(t, product.ShortDescription, payload["long_description"].(map[string]any)["en-US"])

	product.ShortDescription = strings.Repeat("a", 254)
	payload = ImportPayload("1_long", product, price.Table{})
	assert.Equal(t, product.ShortDescription, payload["description"].(map[string]any)["en-US"])
}

func TestDeleteSKU(t *testing.T) {
	p, baseURL := newPlatform(t)
	p.put("game", `{"sku": "70_halflife"}`)
	svc, rec := newTestService(t, nil, baseURL)

	require.NoError(t, svc.DeleteSKU(context.Background(), DeleteForm{APIKey: testKey, ProjectID: testProject, SKU: "70_halflife"}))
	assert.Equal(t, []string{"70_halflife"}, p.deleted)

	err := svc.DeleteSKU(context.Background(), DeleteForm{APIKey: testKey, ProjectID: testProject, SKU: "70_halflife"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	run := rec.last(t)
	assert.Equal(t, models.RunFailed, run.Status)
	assert.Contains(t, run.Error, "not found")
}

func TestTasksRejectMissingCredentials(t *testing.T) {
	p, baseURL := newPlatform(t)
	svc, _ := newTestService(t, nil, baseURL)

	err := svc.DeleteSKU(context.Background(), DeleteForm{ProjectID: testProject, SKU: "x"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	err = svc.DeleteSKU(context.Background(), DeleteForm{APIKey: testKey, SKU: "x"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	err = svc.DeleteSKU(context.Background(), DeleteForm{APIKey: "wrong", ProjectID: testProject, SKU: "x"})
	assert.ErrorIs(t, err, errs.ErrAuth)
	assert.Equal(t, 1, p.requests)
}

func seedBundle(p *platform) {
	p.put("virtual_items", `{"sku": "sword", "prices": [
		{"amount": 10, "currency": "USD", "is_default": true, "is_enabled": true},
		{"amount": 9, "currency": "EUR", "is_default": false, "is_enabled": true}]}`)
	p.put("virtual_currency/package", `{"sku": "gems_100", "prices": [
		{"amount": 1, "currency": "USD", "is_default": true, "is_enabled": true},
		{"amount": 1, "currency": "EUR", "is_default": false, "is_enabled": true}]}`)
	p.put("game", `{"sku": "70_halflife", "unit_items": [
		{"sku": "70_halflife_Steam", "prices": [{"amount": 5, "currency": "USD", "is_default": true, "is_enabled": true}]},
		{"sku": "70_halflife_Epic", "prices": [{"amount": 4, "currency": "USD", "is_default": true, "is_enabled": true}]}]}`)
	p.put("bundle", `{"sku": "starter", "periods": [], "groups": [{"external_id": "packs", "name": {"en": "Packs"}}],
		"prices": [{"amount": 1, "currency": "USD", "is_default": true, "is_enabled": true}],
		"content": [
			{"sku": "sword", "type": "virtual_good", "quantity": 1},
			{"sku": "gems_100", "type": "bundle", "bundle_type": "virtual_currency_package", "quantity": 3},
			{"sku": "70_halflife_Steam", "type": "game_key", "quantity": 2},
			{"sku": "70_halflife_Epic", "type": "game_key", "quantity": 1}]}`)
}

func TestRecalculateBundle(t *testing.T) {
	p, baseURL := newPlatform(t)
	seedBundle(p)
	svc, rec := newTestService(t, nil, baseURL)

	result, err := svc.RecalculateBundle(context.Background(), RecalculateForm{
		APIKey: testKey, ProjectID: testProject, SKU: "starter", Discount: decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)

	// (10 + 3*1 + 2*5 + 4) * 0.9
	assert.True(t, result.Prices.Equal(price.Table{"USD": decimal.RequireFromString("24.30")}), result.Prices)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, price.Warning{SKU: "70_halflife_Steam", Currency: "EUR"}, result.Warnings[0])
	assert.Equal(t, 1, p.listCalls, "games list is fetched once per recalculation")

	require.Len(t, p.updates, 1)
	sent := p.updates[0].body
	assert.Equal(t, []any{map[string]any{"amount": 24.3, "currency": "USD", "is_default": true, "is_enabled": true}}, sent["prices"])
	assert.Equal(t, []any{"packs"}, sent["groups"])
	assert.NotContains(t, sent, "periods")
	assert.Equal(t, map[string]any{"sku": "sword", "quantity": float64(1)}, sent["content"].([]any)[0])
	assert.Equal(t, models.RunSucceeded, rec.last(t).Status)
}

func TestRecalculateBundleLeavesBundleOnFailure(t *testing.T) {
	p, baseURL := newPlatform(t)
	seedBundle(p)
	delete(p.stores["virtual_items"], "sword")
	svc, _ := newTestService(t, nil, baseURL)

	_, err := svc.RecalculateBundle(context.Background(), RecalculateForm{APIKey: testKey, ProjectID: testProject, SKU: "starter"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Empty(t, p.updates)
}

func TestRecalculateBundleInvalidDiscount(t *testing.T) {
	p, baseURL := newPlatform(t)
	svc, _ := newTestService(t, nil, baseURL)

	for _, d := range []string{"-0.01", "0.995", "1"} {
		_, err := svc.RecalculateBundle(context.Background(), RecalculateForm{
			APIKey: testKey, ProjectID: testProject, SKU: "starter", Discount: decimal.RequireFromString(d),
		})
		assert.ErrorIs(t, err, errs.ErrValidation, d)
	}
	assert.Zero(t, p.requests)
}

func TestUpdatePrices(t *testing.T) {
	p, baseURL := newPlatform(t)
	p.put("game", `{"sku": "70_halflife", "periods": [], "unit_items": [
		{"sku": "70_halflife_Steam", "prices": []},
		{"sku": "70_halflife_Epic", "prices": []}]}`)
	p.put("game", `{"sku": "plain", "prices": []}`)
	sf, _ := newStorefront(t, map[string]int64{"us": 999, "ru": 24900}, false)
	svc, rec := newTestService(t, sf, baseURL)

	prices, err := svc.UpdatePrices(context.Background(), UpdatePricesForm{APIKey: testKey, ProjectID: testProject, SKU: "70_halflife", AppID: 70})
	require.NoError(t, err)
	assert.True(t, prices.Equal(price.Table{"USD": decimal.RequireFromString("9.99"), "RUB": decimal.NewFromInt(249)}))

	want := []any{
		map[string]any{"amount": 249.0, "currency": "RUB", "is_default": false, "is_enabled": true},
		map[string]any{"amount": 9.99, "currency": "USD", "is_default": true, "is_enabled": true},
	}
	require.Len(t, p.updates, 1)
	sent := p.updates[0].body
	assert.NotContains(t, sent, "periods")
	for _, u := range sent["unit_items"].([]any) {
		assert.Equal(t, want, u.(map[string]any)["prices"])
	}
	assert.Len(t, rec.snapshots, 2)

	_, err = svc.UpdatePrices(context.Background(), UpdatePricesForm{APIKey: testKey, ProjectID: testProject, SKU: "plain", AppID: 70})
	require.NoError(t, err)
	assert.Equal(t, want, p.updates[1].body["prices"])
}

func TestUpdatePricesFreeGame(t *testing.T) {
	p, baseURL := newPlatform(t)
	p.put("game", `{"sku": "free", "prices": [{"amount": 1, "currency": "USD", "is_default": true, "is_enabled": true}]}`)
	sf, calls := newStorefront(t, map[string]int64{"us": 0, "eu": 0, "ru": 0}, true)
	svc, rec := newTestService(t, sf, baseURL)

	prices, err := svc.UpdatePrices(context.Background(), UpdatePricesForm{APIKey: testKey, ProjectID: testProject, SKU: "free", AppID: 70})
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, []any{}, p.updates[0].body["prices"])
	assert.Empty(t, rec.snapshots)
}

var keyPattern = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{6}-[0-9A-HJKMNP-TV-Z]{6}-[0-9A-HJKMNP-TV-Z]{7}-[0-9A-HJKMNP-TV-Z]{7}$`)

func TestGenerateKeys(t *testing.T) {
	svc, rec := newTestService(t, nil, "")
	path := filepath.Join(t.TempDir(), "keys.txt")

	keys, err := svc.GenerateKeys(context.Background(), KeysForm{OutputPath: path, Count: 50})
	require.NoError(t, err)
	require.Len(t, keys, 50)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	assert.Equal(t, keys, lines)

	seen := map[string]bool{}
	for _, k := range keys {
		assert.Regexp(t, keyPattern, k)
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	assert.Equal(t, path, rec.last(t).Target)

	_, err = svc.GenerateKeys(context.Background(), KeysForm{OutputPath: path, Count: 0})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestGenerateQRCode(t *testing.T) {
	svc, rec := newTestService(t, nil, "")
	out := filepath.Join(t.TempDir(), "checkout")

	link, err := svc.GenerateQRCode(context.Background(), QRCodeForm{ProjectID: 12345, SKU: "70_halflife_Steam", OutputPath: out})
	require.NoError(t, err)
	assert.Equal(t, "https://purchase.xsolla.com/pages/buy?type=game&project_id=12345&sku=70_halflife_Steam&ui_settings=eyJ0aGVtZSI6ICJkYXJrIn0", link)

	raw, err := os.ReadFile(out + ".png")
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(raw[:4]))
	assert.Equal(t, out+".png", rec.last(t).Target)

	_, err = svc.GenerateQRCode(context.Background(), QRCodeForm{ProjectID: 12345, OutputPath: out})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestPurchaseURLEscapesSKU(t *testing.T) {
	assert.Equal(t,
		"https://purchase.xsolla.com/pages/buy?type=bundle&project_id=1&sku=a+b%26c&ui_settings=eyJ0aGVtZSI6ICJkYXJrIn0",
		PurchaseURL(1, "bundle", "a b&c"))
}

func seedPricedGames(p *platform) {
	p.put("game", `{"sku": "70_halflife", "periods": [], "unit_items": [
		{"sku": "70_halflife_Steam", "prices": [
			{"amount": 9.99, "currency": "USD", "is_default": true, "is_enabled": true},
			{"amount": 9.19, "currency": "EUR", "is_default": false, "is_enabled": true}]},
		{"sku": "70_halflife_Epic", "prices": []}]}`)
	p.put("game", `{"sku": "220_halflife_", "unit_items": [
		{"sku": "220_halflife__Steam", "prices": [
			{"amount": 249, "currency": "RUB", "is_default": true, "is_enabled": true}]}]}`)
}

func TestExportPricesCSV(t *testing.T) {
	p, baseURL := newPlatform(t)
	seedPricedGames(p)
	svc, _ := newTestService(t, nil, baseURL)
	path := filepath.Join(t.TempDir(), "prices.csv")

	n, err := svc.ExportPricesCSV(context.Background(), CSVForm{APIKey: testKey, ProjectID: testProject, Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffSKU,Sub-SKU,Default,EUR,RUB,USD\n"+
		"220_halflife_,220_halflife__Steam,RUB,,249,\n"+
		"70_halflife,70_halflife_Steam,USD,9.19,,9.99\n", string(raw))
}

func TestPricesCSVRoundTrip(t *testing.T) {
	p, baseURL := newPlatform(t)
	seedPricedGames(p)
	svc, _ := newTestService(t, nil, baseURL)
	path := filepath.Join(t.TempDir(), "prices.csv")

	before := map[string]any{}
	for sku, g := range p.stores["game"] {
		before[sku] = g["unit_items"]
	}

	_, err := svc.ExportPricesCSV(context.Background(), CSVForm{APIKey: testKey, ProjectID: testProject, Path: path})
	require.NoError(t, err)
	n, err := svc.ImportPricesCSV(context.Background(), CSVForm{APIKey: testKey, ProjectID: testProject, Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, p.updates, 2)

	for _, u := range p.updates {
		assert.NotContains(t, u.body, "periods")
	}
	steamUnit := p.stores["game"]["70_halflife"]["unit_items"].([]any)[0].(map[string]any)
	assert.ElementsMatch(t, before["70_halflife"].([]any)[0].(map[string]any)["prices"], steamUnit["prices"])
	assert.Equal(t, before["220_halflife_"], p.stores["game"]["220_halflife_"]["unit_items"])
}

func TestImportPricesCSVRejectsMalformedFile(t *testing.T) {
	p, baseURL := newPlatform(t)
	seedPricedGames(p)
	svc, rec := newTestService(t, nil, baseURL)
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("SKU,Sub-SKU,Default,EUR,USD\n"+
		"70_halflife,70_halflife_Steam,USD,9.19,9.99\n"+
		"220_halflife_,220_halflife__Steam,RUB,249\n"), 0o644))

	_, err := svc.ImportPricesCSV(context.Background(), CSVForm{APIKey: testKey, ProjectID: testProject, Path: path})
	assert.ErrorIs(t, err, errs.ErrFormat)
	assert.Contains(t, err.Error(), "220_halflife__Steam")
	assert.Zero(t, p.requests, "nothing is sent before the whole file parses")
	assert.Equal(t, models.RunFailed, rec.last(t).Status)
}

func TestImportPricesCSVStopsAtFirstFailure(t *testing.T) {
	p, baseURL := newPlatform(t)
	seedPricedGames(p)
	svc, _ := newTestService(t, nil, baseURL)
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("SKU,Sub-SKU,Default,USD\n"+
		"70_halflife,70_halflife_Steam,USD,19.99\n"+
		"missing,missing_Steam,USD,1\n"+
		"220_halflife_,220_halflife__Steam,USD,2\n"), 0o644))

	n, err := svc.ImportPricesCSV(context.Background(), CSVForm{APIKey: testKey, ProjectID: testProject, Path: path})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.Contains(t, err.Error(), "1 of 3 rows applied")
	assert.Equal(t, 1, n)
	require.Len(t, p.updates, 1)
	assert.Equal(t, "70_halflife", p.updates[0].sku)
}

func TestPublishBuildRemembersLoader(t *testing.T) {
	settings, err := config.LoadSettings(filepath.Join(t.TempDir(), "tools.ini"))
	require.NoError(t, err)

	var got []launcher.PublishRequest
	svc := NewService(Options{
		Settings: settings,
		Publisher: func(ctx context.Context, req launcher.PublishRequest) error {
			got = append(got, req)
			return nil
		},
	})

	err = svc.PublishBuild(context.Background(), PublishForm{LauncherKey: "k", GameFolder: "/games/hl"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, svc.PublishBuild(context.Background(), PublishForm{
		LauncherKey: "k", GameFolder: "/games/hl", LoaderPath: "/opt/loader", Visibility: launcher.VisibilityDraft,
	}))
	assert.Equal(t, "/opt/loader", settings.BuildLoader())

	require.NoError(t, svc.PublishBuild(context.Background(), PublishForm{LauncherKey: "k", GameFolder: "/games/hl"}))
	require.Len(t, got, 2)
	assert.Equal(t, "/opt/loader", got[1].LoaderPath)
	assert.Equal(t, launcher.VisibilityDraft, got[0].Visibility)
}
