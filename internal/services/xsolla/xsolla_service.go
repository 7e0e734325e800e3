package xsolla

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"xsolla-tools/internal/errs"
)

const (
	DefaultBaseURL = "https://store.xsolla.com/api"
	DefaultTimeout = 30 * time.Second
)

type Options struct {
	BaseURL string
	Timeout time.Duration
}

func newClient(user, apiKey string, opts Options) *resty.Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetBasicAuth(user, apiKey)
	client.SetHeader("User-Agent", "Xsolla-Tools/1.0")
	return client
}

// ProjectService manages the catalog of one project.
type ProjectService struct {
	projectID int
	client    *resty.Client
}

func NewProjectService(apiKey string, projectID int, opts Options) *ProjectService {
	return &ProjectService{
		projectID: projectID,
		client:    newClient(strconv.Itoa(projectID), apiKey, opts),
	}
}

func (s *ProjectService) ProjectID() int {
	return s.projectID
}

func (s *ProjectService) itemsPath(resource string) string {
	return fmt.Sprintf("/v2/project/%d/admin/items/%s", s.projectID, resource)
}

// skuPath addresses one item by SKU. The SKU is a single escaped segment.
func (s *ProjectService) skuPath(resource, sku string) string {
	return s.itemsPath(resource) + "/sku/" + url.PathEscape(sku)
}

// ListGames pages through every game of the project.
func (s *ProjectService) ListGames(ctx context.Context) ([]Payload, error) {
	return listAll[Payload](ctx, s.client, s.itemsPath("game"))
}

// CreateGame returns the new game's item id and sku.
func (s *ProjectService) CreateGame(ctx context.Context, payload Payload) (*CreatedItem, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.itemsPath("game"))
	if err != nil {
		return nil, errs.Transport(err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, upstreamError(resp)
	}

	var created CreatedItem
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, errs.Format("decode created game: %v", err)
	}
	return &created, nil
}

func (s *ProjectService) GetGameByID(ctx context.Context, id int) (Payload, error) {
	return s.get(ctx, fmt.Sprintf("%s/id/%d", s.itemsPath("game"), id))
}

func (s *ProjectService) GetGameBySKU(ctx context.Context, sku string) (Payload, error) {
	return s.get(ctx, s.skuPath("game", sku))
}

func (s *ProjectService) UpdateGameByID(ctx context.Context, id int, payload Payload) error {
	return s.put(ctx, fmt.Sprintf("%s/id/%d", s.itemsPath("game"), id), stripEmptyPeriods(payload))
}

func (s *ProjectService) UpdateGameBySKU(ctx context.Context, sku string, payload Payload) error {
	return s.put(ctx, s.skuPath("game", sku), stripEmptyPeriods(payload))
}

func (s *ProjectService) DeleteGameByID(ctx context.Context, id int) error {
	return s.delete(ctx, fmt.Sprintf("%s/id/%d", s.itemsPath("game"), id))
}

func (s *ProjectService) DeleteGameBySKU(ctx context.Context, sku string) error {
	return s.delete(ctx, s.skuPath("game", sku))
}

func (s *ProjectService) GetBundle(ctx context.Context, sku string) (Payload, error) {
	return s.get(ctx, s.skuPath("bundle", sku))
}

// UpdateBundle sends groups as bare external ids and content as {sku, quantity},
// which is the only shape the update endpoint accepts.
func (s *ProjectService) UpdateBundle(ctx context.Context, sku string, payload Payload) error {
	return s.put(ctx, s.skuPath("bundle", sku), reshapeBundle(stripEmptyPeriods(payload)))
}

func (s *ProjectService) DeleteBundle(ctx context.Context, sku string) error {
	return s.delete(ctx, s.skuPath("bundle", sku))
}

func (s *ProjectService) GetVirtualItem(ctx context.Context, sku string) (Payload, error) {
	return s.get(ctx, s.skuPath("virtual_items", sku))
}

func (s *ProjectService) GetVirtualCurrencyPackage(ctx context.Context, sku string) (Payload, error) {
	return s.get(ctx, s.skuPath("virtual_currency/package", sku))
}

func (s *ProjectService) get(ctx context.Context, path string) (Payload, error) {
	resp, err := s.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, errs.Transport(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, upstreamError(resp)
	}

	var payload Payload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, errs.Format("decode %s: %v", path, err)
	}
	return payload, nil
}

func (s *ProjectService) put(ctx context.Context, path string, payload Payload) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Put(path)
	if err != nil {
		return errs.Transport(err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		return upstreamError(resp)
	}
	return nil
}

func (s *ProjectService) delete(ctx context.Context, path string) error {
	resp, err := s.client.R().SetContext(ctx).Delete(path)
	if err != nil {
		return errs.Transport(err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		return upstreamError(resp)
	}
	return nil
}

// MerchantService covers merchant-level endpoints.
type MerchantService struct {
	merchantID int
	client     *resty.Client
}

func NewMerchantService(apiKey string, merchantID int, opts Options) *MerchantService {
	return &MerchantService{
		merchantID: merchantID,
		client:     newClient(strconv.Itoa(merchantID), apiKey, opts),
	}
}

// ListProjects returns the id of every project of the merchant.
func (s *MerchantService) ListProjects(ctx context.Context) ([]int, error) {
	type project struct {
		ProjectID int `json:"project_id"`
	}
	projects, err := listAll[project](ctx, s.client, fmt.Sprintf("/v2/merchant/%d/projects", s.merchantID))
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ProjectID)
	}
	return ids, nil
}

type page[T any] struct {
	HasMore bool `json:"has_more"`
	Items   []T  `json:"items"`
}

// listAll requests path with a growing offset until has_more is false.
func listAll[T any](ctx context.Context, client *resty.Client, path string) ([]T, error) {
	var all []T
	for {
		resp, err := client.R().
			SetContext(ctx).
			SetQueryParam("offset", strconv.Itoa(len(all))).
			Get(path)
		if err != nil {
			return nil, errs.Transport(err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, upstreamError(resp)
		}

		var p page[T]
		if err := json.Unmarshal(resp.Body(), &p); err != nil {
			return nil, errs.Format("decode %s page: %v", path, err)
		}
		all = append(all, p.Items...)
		if !p.HasMore {
			return all, nil
		}
		if len(p.Items) == 0 {
			return nil, errs.Format("%s reported more items but returned none at offset %d", path, len(all))
		}
	}
}

func upstreamError(resp *resty.Response) error {
	var body struct {
		ErrorMessage         string          `json:"errorMessage"`
		ErrorMessageExtended json.RawMessage `json:"errorMessageExtended"`
	}
	_ = json.Unmarshal(resp.Body(), &body)

	extended := ""
	if len(body.ErrorMessageExtended) > 0 && string(body.ErrorMessageExtended) != "null" {
		if err := json.Unmarshal(body.ErrorMessageExtended, &extended); err != nil {
			extended = string(body.ErrorMessageExtended)
		}
	}
	return &errs.UpstreamError{
		Status:   resp.StatusCode(),
		Kind:     errs.KindForStatus(resp.StatusCode()),
		Message:  body.ErrorMessage,
		Extended: extended,
	}
}

// stripEmptyPeriods drops an empty "periods" list, which the update endpoints reject.
func stripEmptyPeriods(payload Payload) Payload {
	out := maps.Clone(payload)
	if out == nil {
		out = Payload{}
	}
	if v, ok := out["periods"]; ok {
		if periods, isList := v.([]any); v == nil || (isList && len(periods) == 0) {
			delete(out, "periods")
		}
	}
	return out
}

func reshapeBundle(payload Payload) Payload {
	if raw, ok := payload["groups"].([]any); ok {
		groups := make([]any, 0, len(raw))
		for _, g := range raw {
			if m, ok := g.(map[string]any); ok {
				groups = append(groups, m["external_id"])
			} else {
				groups = append(groups, g)
			}
		}
		payload["groups"] = groups
	}

	if raw, ok := payload["content"].([]any); ok {
		content := make([]map[string]any, 0, len(raw))
		for _, c := range raw {
			if m, ok := c.(map[string]any); ok {
				content = append(content, map[string]any{"sku": m["sku"], "quantity": m["quantity"]})
			}
		}
		payload["content"] = content
	}
	return payload
}
