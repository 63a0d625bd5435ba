package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const brapiBaseURL = "https://brapi.dev"

type brapiResponse struct {
	Results []struct {
		Symbol                     string          `json:"symbol"`
		RegularMarketPrice         decimal.Decimal `json:"regularMarketPrice"`
		RegularMarketChange        decimal.Decimal `json:"regularMarketChange"`
		RegularMarketChangePercent decimal.Decimal `json:"regularMarketChangePercent"`
	} `json:"results"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Brapi reads B3 quotes from the brapi.dev quote endpoint.
type Brapi struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	token      string
}

// NewBrapi creates a brapi source. An empty baseURL uses the public host.
func NewBrapi(httpClient *http.Client, baseURL, token string) *Brapi {
	if baseURL == "" {
		baseURL = brapiBaseURL
	}
	return &Brapi{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

// ID implements Source.
func (b *Brapi) ID() string { return "brapi" }

// Quote implements Source.
func (b *Brapi) Quote(ctx context.Context, ticker string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/api/quote/%s", b.baseURL, url.PathEscape(ticker))
	if b.token != "" {
		endpoint += "?token=" + url.QueryEscape(b.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, unavailable("building request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: http request: %w", ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, unavailable("unexpected status %d", resp.StatusCode)
	}

	var body brapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, unavailable("decoding response: %v", err)
	}
	if body.Error {
		return Quote{}, unavailable("%s", body.Message)
	}
	for _, r := range body.Results {
		if strings.EqualFold(r.Symbol, ticker) {
			return Quote{
				Price:         r.RegularMarketPrice,
				Change:        r.RegularMarketChange,
				ChangePercent: r.RegularMarketChangePercent,
			}, nil
		}
	}
	return Quote{}, unavailable("symbol %s not found in response", ticker)
}
