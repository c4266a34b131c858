// Package ggdeals wraps the gg.deals pricing API. Lookups are batched: one
// call covers every requested app id and the caller caches the whole set as a
// single entry, which matters under this upstream's strict rate limit.
package ggdeals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"gamezone/internal/upstream"
)

const DefaultBaseURL = "https://api.gg.deals"

// PricesTTL is the longest TTL of any resource: prices move slowly and the
// upstream rate limit is the strictest.
const PricesTTL = 30 * time.Minute

const defaultCurrency = "USD"

var pricesDesc = upstream.Descriptor{
	Resource:          "prices",
	Field:             []string{"data"},
	ForbiddenStatuses: []int{401, 403},
}

// Quote is the derived price for one app id.
type Quote struct {
	AppID         string   `json:"appId"`
	Current       float64  `json:"current"`
	Regular       float64  `json:"regular"`
	Discount      int      `json:"discount"`
	Currency      string   `json:"currency"`
	URL           string   `json:"url"`
	HistoricalLow *float64 `json:"historicalLow"`
	// Source is "keyshop" or "retail"; keyshop quotes win when both exist.
	Source string `json:"source"`
}

type pricesResponse struct {
	Success bool                 `json:"success"`
	Data    map[string]*rawEntry `json:"data"`
}

// rawEntry is one per-app record; prices arrive as decimal strings and any of
// them may be absent.
type rawEntry struct {
	Prices struct {
		CurrentRetail      *string `json:"currentRetail"`
		CurrentKeyshops    *string `json:"currentKeyshops"`
		RegularRetail      *string `json:"regularRetail"`
		RegularKeyshops    *string `json:"regularKeyshops"`
		HistoricalRetail   *string `json:"historicalRetail"`
		HistoricalKeyshops *string `json:"historicalKeyshops"`
		Currency           string  `json:"currency"`
	} `json:"prices"`
	URL string `json:"url"`
}

// Client calls the gg.deals API.
type Client struct {
	apiKey  string
	baseURL string
	region  string
	http    *resty.Client
}

type Option func(*Client)

func WithBaseURL(raw string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(raw, "/") }
}

func WithRegion(region string) Option {
	return func(c *Client) { c.region = region }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		region:  "us",
		http:    resty.New().SetTimeout(15 * time.Second),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Prices fetches quotes for the given app ids in one batched call. Apps the
// upstream has no listing for are simply absent from the result map.
func (c *Client) Prices(ctx context.Context, appIDs []string) (map[string]Quote, upstream.Kind, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(appIDs, ","))
	params.Set("key", c.apiKey)
	params.Set("region", c.region)
	u := c.baseURL + "/v1/prices/by-steam-app-id/?" + params.Encode()

	res := upstream.Fetch(ctx, c.http, u, pricesDesc)
	if res.Kind != upstream.Success {
		return nil, res.Kind, res.Err
	}

	var raw pricesResponse
	if err := json.Unmarshal(res.Body, &raw); err != nil {
		return nil, upstream.Error, fmt.Errorf("prices: decode: %w", err)
	}

	quotes := make(map[string]Quote, len(raw.Data))
	for appID, entry := range raw.Data {
		if entry == nil {
			continue
		}
		quotes[appID] = deriveQuote(appID, entry)
	}
	return quotes, upstream.Success, nil
}

func deriveQuote(appID string, e *rawEntry) Quote {
	q := Quote{
		AppID:    appID,
		Currency: e.Prices.Currency,
		URL:      e.URL,
	}
	if q.Currency == "" {
		q.Currency = defaultCurrency
	}

	keyshop := parsePrice(e.Prices.CurrentKeyshops)
	retail := parsePrice(e.Prices.CurrentRetail)
	switch {
	case keyshop != nil:
		q.Current = *keyshop
		q.Source = "keyshop"
	case retail != nil:
		q.Current = *retail
		q.Source = "retail"
	}

	if regular := parsePrice(e.Prices.RegularRetail); regular != nil {
		q.Regular = *regular
	} else if regular := parsePrice(e.Prices.RegularKeyshops); regular != nil {
		q.Regular = *regular
	}

	q.Discount = discount(q.Current, q.Regular)
	q.HistoricalLow = minPrice(
		parsePrice(e.Prices.HistoricalKeyshops),
		parsePrice(e.Prices.HistoricalRetail),
	)
	return q
}

// discount returns round((1-current/regular)*100) when both prices are
// present and regular exceeds current, else 0.
func discount(current, regular float64) int {
	if current <= 0 || regular <= 0 || regular <= current {
		return 0
	}
	pct := (1 - current/regular) * 100
	return int(pct + 0.5)
}

func parsePrice(s *string) *float64 {
	if s == nil || *s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func minPrice(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a < *b:
		return a
	default:
		return b
	}
}
