package steam

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// AppType is the storefront's product category.
type AppType int

const (
	AppTypeUnknown AppType = iota
	AppTypeGame
	AppTypeDLC
	AppTypeMusic
	AppTypeVideo
	AppTypeMod
	AppTypeHardware
	AppTypeAdvertising
	AppTypeDemo
	AppTypeMovie
)

var appTypeNames = map[AppType]string{
	AppTypeUnknown:     "unknown",
	AppTypeGame:        "game",
	AppTypeDLC:         "dlc",
	AppTypeMusic:       "music",
	AppTypeVideo:       "video",
	AppTypeMod:         "mod",
	AppTypeHardware:    "hardware",
	AppTypeAdvertising: "advertising",
	AppTypeDemo:        "demo",
	AppTypeMovie:       "movie",
}

func (t AppType) String() string {
	if name, ok := appTypeNames[t]; ok {
		return name
	}
	return appTypeNames[AppTypeUnknown]
}

// ParseAppType maps a storefront type name; anything unrecognized is AppTypeUnknown.
func ParseAppType(s string) AppType {
	for t, name := range appTypeNames {
		if name == s {
			return t
		}
	}
	return AppTypeUnknown
}

// Kind selects the details endpoint: apps or packages.
type Kind string

const (
	KindApp     Kind = "app"
	KindPackage Kind = "package"
)

type Company struct {
	Name string `json:"name"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"description"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"description"`
}

// UnmarshalJSON accepts the genre id as a JSON string or number; regions
// disagree on which one they send.
func (g *Genre) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Name string          `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Name = raw.Name
	if len(raw.ID) == 0 || string(raw.ID) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.ID, &s); err == nil {
		id, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("genre id %q: %w", s, err)
		}
		g.ID = id
		return nil
	}
	return json.Unmarshal(raw.ID, &g.ID)
}

// PriceOverview amounts are in minor units (cents).
type PriceOverview struct {
	Currency        string `json:"currency"`
	Initial         int64  `json:"initial"`
	Final           int64  `json:"final"`
	DiscountPercent int    `json:"discount_percent"`
}

// AppStub is an entry of the storefront's full app list.
type AppStub struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}

func (a AppStub) String() string {
	return fmt.Sprintf("%d/%s", a.AppID, a.Name)
}

// Product is a snapshot of one storefront details response.
type Product struct {
	AppID            int
	Name             string
	Type             AppType
	IsFree           bool
	RequiredAge      *int
	ShortDescription string
	HeaderImage      string
	Website          string
	SupportURL       string
	SupportEmail     string
	Released         bool
	ReleaseDate      *time.Time
	Developers       []Company
	Publishers       []Company
	Categories       []Category
	Genres           []Genre
	Metascore        *int
	Recommendations  *int
	Price            *PriceOverview
}

func (p *Product) String() string {
	return fmt.Sprintf("%d/%s/%s", p.AppID, p.Name, p.Type)
}
