package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
	"stockfolio/internal/reference"
	"stockfolio/internal/ticker"
)

const (
	statusInvestBaseURL = "https://statusinvest.com.br"
	statusInvestUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
	feedDateLayout      = "02/01/2006"
)

type proventsResponse struct {
	AssetEarningsModels []earningModel `json:"assetEarningsModels"`
}

type earningModel struct {
	Type        string          `json:"et"`
	ExDate      string          `json:"ed"`
	PaymentDate string          `json:"pd"`
	Value       json.RawMessage `json:"v"`
}

// StatusInvest reads the public "companytickerprovents" endpoint. Results are
// cached per ticker for the configured TTL; failures are never cached.
type StatusInvest struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	catalog    reference.Catalog
	timeout    time.Duration
	cache      *cache.Cache
}

// StatusInvestOption configures a StatusInvest client.
type StatusInvestOption func(*StatusInvest)

// WithBaseURL points the client at a different host.
func WithBaseURL(u string) StatusInvestOption {
	return func(s *StatusInvest) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithCacheTTL sets how long a ticker's actions are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) StatusInvestOption {
	return func(s *StatusInvest) {
		if ttl <= 0 {
			s.cache = nil
			return
		}
		s.cache = cache.New(ttl, 2*ttl)
	}
}

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) StatusInvestOption {
	return func(s *StatusInvest) { s.timeout = d }
}

// NewStatusInvest creates a feed client. The catalog decides whether a ticker
// is looked up as a listed company or a real-estate fund.
func NewStatusInvest(httpClient *http.Client, catalog reference.Catalog, opts ...StatusInvestOption) *StatusInvest {
	s := &StatusInvest{
		httpClient: httpClient,
		baseURL:    statusInvestBaseURL,
		catalog:    catalog,
		timeout:    15 * time.Second,
		cache:      cache.New(10*time.Minute, 20*time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch implements Feed.
func (s *StatusInvest) Fetch(ctx context.Context, code string) ([]CorporateAction, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s.cache != nil {
		if cached, ok := s.cache.Get(code); ok {
			return cached.([]CorporateAction), nil
		}
	}

	actions, err := s.fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(code, actions, cache.DefaultExpiration)
	}
	return actions, nil
}

func (s *StatusInvest) category(code string) string {
	if ticker.DetectAssetType(code, s.catalog) == ticker.AssetFII {
		return "fii"
	}
	return "acao"
}

func (s *StatusInvest) fetch(ctx context.Context, code string) ([]CorporateAction, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("ticker", code)
	q.Set("chartProventsType", "2")
	endpoint := fmt.Sprintf("%s/%s/companytickerprovents?%s", s.baseURL, s.category(code), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, unavailable(code, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("User-Agent", statusInvestUA)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(code, fmt.Errorf("http request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return []CorporateAction{}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, unavailable(code, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body proventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, unavailable(code, fmt.Errorf("decoding response: %w", err))
	}

	actions := make([]CorporateAction, 0, len(body.AssetEarningsModels))
	for _, m := range body.AssetEarningsModels {
		if a, ok := m.toAction(code); ok {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

// toAction converts a feed entry, dropping entries with an unreadable ex-date
// or amount. A missing or "-" payment date falls back to the ex-date.
func (m earningModel) toAction(code string) (CorporateAction, bool) {
	ex, err := time.Parse(feedDateLayout, strings.TrimSpace(m.ExDate))
	if err != nil {
		return CorporateAction{}, false
	}
	exDate := date.FromTime(ex)

	payDate := exDate
	if pd, err := time.Parse(feedDateLayout, strings.TrimSpace(m.PaymentDate)); err == nil {
		payDate = date.FromTime(pd)
	}

	amount, ok := parseAmount(m.Value)
	if !ok {
		return CorporateAction{}, false
	}

	return CorporateAction{
		Ticker:      code,
		Type:        strings.TrimSpace(m.Type),
		ExDate:      exDate,
		PaymentDate: payDate,
		PerUnit:     amount,
	}, true
}

// parseAmount accepts a JSON number or a numeric string ("1,2340" included).
func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero, false
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, false
		}
		text = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
