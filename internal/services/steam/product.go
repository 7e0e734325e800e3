package steam

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
)

var releaseDateLayouts = []string{"Jan 2, 2006", "2 Jan, 2006", "2 Jan 2006", "Jan 2006"}

var leadingDigits = regexp.MustCompile(`\d+`)

type rawProduct map[string]json.RawMessage

// field decodes one key of a details payload into a Product.
type field struct {
	key      string
	required bool
	decode   func(raw json.RawMessage, p *Product) error
}

// productFields is the full decoding table for a details payload.
var productFields = []field{
	{key: "steam_appid", decode: func(raw json.RawMessage, p *Product) error {
		return json.Unmarshal(raw, &p.AppID)
	}},
	{key: "name", required: true, decode: func(raw json.RawMessage, p *Product) error {
		return json.Unmarshal(raw, &p.Name)
	}},
	{key: "type", decode: func(raw json.RawMessage, p *Product) error {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		p.Type = ParseAppType(s)
		return nil
	}},
	{key: "is_free", decode: func(raw json.RawMessage, p *Product) error {
		return json.Unmarshal(raw, &p.IsFree)
	}},
	{key: "required_age", decode: decodeRequiredAge},
	{key: "short_description", decode: func(raw json.RawMessage, p *Product) error {
		return json.Unmarshal(raw, &p.ShortDescription)
	}},
	{key: "header_image", decode: func(raw json.RawMessage, p *Product) error {
		return json.Unmarshal(raw, &p.HeaderImage)
	}},
	{key: "website", decode: func(raw json.RawMessage, p *Product) error {
		return json.Unmarshal(raw, &p.Website)
	}},
	{key: "support_info", decode: func(raw json.RawMessage, p *Product) error {
		var info struct {
			URL   string `json:"url"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal(raw, &info); err != nil {
			return err
		}
		p.SupportURL, p.SupportEmail = info.URL, info.Email
		return nil
	}},
	{key: "release_date", decode: decodeReleaseDate},
	{key: "developers", decode: func(raw json.RawMessage, p *Product) error {
		return decodeCompanies(raw, &p.Developers)
	}},
	{key: "publishers", decode: func(raw json.RawMessage, p *Product) error {
		return decodeCompanies(raw, &p.Publishers)
	}},
	{key: "categories", decode: func(raw json.RawMessage, p *Product) error {
		return json.Unmarshal(raw, &p.Categories)
	}},
	{key: "genres", decode: func(raw json.RawMessage, p *Product) error {
		return json.Unmarshal(raw, &p.Genres)
	}},
	{key: "metacritic", decode: func(raw json.RawMessage, p *Product) error {
		var m struct {
			Score *int `json:"score"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
		p.Metascore = m.Score
		return nil
	}},
	{key: "recommendations", decode: func(raw json.RawMessage, p *Product) error {
		var r struct {
			Total *int `json:"total"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		p.Recommendations = r.Total
		return nil
	}},
	{key: "price_overview", decode: func(raw json.RawMessage, p *Product) error {
		p.Price = &PriceOverview{}
		return json.Unmarshal(raw, p.Price)
	}},
}

// DecodeProduct walks productFields over a details "data" object. Absent or
// null optional keys leave the zero value.
func DecodeProduct(data []byte) (*Product, error) {
	var raw rawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Format("decode product: %v", err)
	}

	p := &Product{}
	for _, f := range productFields {
		value, ok := raw[f.key]
		if !ok || string(value) == "null" {
			if f.required {
				return nil, errs.Format("product payload has no %q field", f.key)
			}
			continue
		}
		if err := f.decode(value, p); err != nil {
			return nil, errs.Format("decode product field %q: %v", f.key, err)
		}
	}
	return p, nil
}

// required_age comes either as a number or as a string such as "18+".
func decodeRequiredAge(raw json.RawMessage, p *Product) error {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		p.RequiredAge = &n
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	if m := leadingDigits.FindString(s); m != "" {
		n, _ = strconv.Atoi(m)
		p.RequiredAge = &n
	}
	return nil
}

func decodeReleaseDate(raw json.RawMessage, p *Product) error {
	var rd struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	}
	if err := json.Unmarshal(raw, &rd); err != nil {
		return err
	}
	p.Released = !rd.ComingSoon
	if rd.ComingSoon || rd.Date == "" {
		return nil
	}
	t, err := ParseReleaseDate(rd.Date)
	if err != nil {
		logrus.WithError(err).Debug("Leaving release date unset")
		return nil
	}
	p.ReleaseDate = &t
	return nil
}

// ParseReleaseDate accepts the storefront's English date forms, US ("Jan 2, 2006")
// and regional ("2 Jan, 2006"), plus month-only dates.
func ParseReleaseDate(s string) (time.Time, error) {
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errs.Format("date %q matches none of %v", s, releaseDateLayouts)
}

// Pricing is the part of a details payload a price sweep needs.
type Pricing struct {
	IsFree bool           `json:"is_free"`
	Price  *PriceOverview `json:"price_overview"`
}

// DecodePricing reads only is_free and price_overview, so regional
// differences in the rest of the payload never break a sweep.
func DecodePricing(data []byte) (*Pricing, error) {
	var p Pricing
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errs.Format("decode product pricing: %v", err)
	}
	return &p, nil
}

func decodeCompanies(raw json.RawMessage, dst *[]Company) error {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return err
	}
	companies := make([]Company, 0, len(names))
	for _, n := range names {
		companies = append(companies, Company{Name: n})
	}
	*dst = companies
	return nil
}
