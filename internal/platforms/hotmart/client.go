package hotmart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lmoreira/funneltrack-backend/internal/platforms"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
)

const (
	responseBodyReadLimit int64 = 2048
	defaultPageSize             = 100
)

// Client fetches sales from the Hotmart payments API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authURL    string
	pageSize   int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the sales API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithAuthURL overrides the token exchange base URL.
func WithAuthURL(authURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(authURL)
		if trimmed != "" {
			c.authURL = trimmed
		}
	}
}

// NewClient builds a Hotmart client from config.
func NewClient(cfg config.HotmartConfig, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authURL:    strings.TrimRight(cfg.AuthURL, "/"),
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if client.pageSize <= 0 {
		client.pageSize = defaultPageSize
	}
	if client.httpClient.Timeout == 0 {
		client.httpClient.Timeout = 30 * time.Second
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Platform identifies this source.
func (c *Client) Platform() enums.PlatformType {
	return enums.PlatformHotmart
}

// Authenticate runs the client-credentials grant against the Hotmart
// security endpoint.
func (c *Client) Authenticate(ctx context.Context, creds platforms.Credentials) (*platforms.Session, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "hotmart client credentials missing")
	}

	q := url.Values{}
	q.Set("grant_type", "client_credentials")
	q.Set("client_id", creds.ClientID)
	q.Set("client_secret", creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/security/oauth/token?"+q.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build hotmart token request")
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute hotmart token request")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp, "hotmart token request"); err != nil {
		return nil, err
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode hotmart token response")
	}
	if tokenResp.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "hotmart token response missing access_token")
	}

	return &platforms.Session{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// FetchPage requests one page of the sales history. The cursor is Hotmart's
// opaque page_token; empty means the first page.
func (c *Client) FetchPage(ctx context.Context, session *platforms.Session, creds platforms.Credentials, window platforms.Window, cursor string) (*platforms.SalesPage, error) {
	if session == nil || session.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "hotmart session required")
	}

	q := url.Values{}
	q.Set("start_date", strconv.FormatInt(window.From.UnixMilli(), 10))
	q.Set("end_date", strconv.FormatInt(window.To.UnixMilli(), 10))
	q.Set("max_results", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("page_token", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/api/v1/sales/history?"+q.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build hotmart sales request")
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute hotmart sales request")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp, "hotmart sales request"); err != nil {
		return nil, err
	}

	var apiResp struct {
		Items    []saleItemDTO `json:"items"`
		PageInfo struct {
			NextPageToken  string `json:"next_page_token"`
			ResultsPerPage int    `json:"results_per_page"`
			TotalResults   int    `json:"total_results"`
		} `json:"page_info"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode hotmart sales response")
	}

	records := make([]platforms.RawSale, 0, len(apiResp.Items))
	for _, item := range apiResp.Items {
		records = append(records, item.toRaw())
	}

	next := apiResp.PageInfo.NextPageToken
	return &platforms.SalesPage{Records: records, NextCursor: next, Done: next == ""}, nil
}

type saleItemDTO struct {
	Purchase struct {
		Transaction string `json:"transaction"`
		Status      string `json:"status"`
		OrderDate   int64  `json:"order_date"`
		Price       struct {
			Value float64 `json:"value"`
		} `json:"price"`
		Payment struct {
			Method string `json:"method"`
			Type   string `json:"type"`
		} `json:"payment"`
		Tracking struct {
			Source       string `json:"source"`
			SourceSCK    string `json:"source_sck"`
			ExternalCode string `json:"external_code"`
		} `json:"tracking"`
	} `json:"purchase"`
	Product struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
	Buyer struct {
		Email string `json:"email"`
	} `json:"buyer"`
}

func (d saleItemDTO) toRaw() platforms.RawSale {
	// Hotmart reports the price in currency units without a fee breakdown,
	// so net and charge carry the same value.
	cents := int64(math.Round(d.Purchase.Price.Value * 100))
	var orderedAt time.Time
	if d.Purchase.OrderDate != 0 {
		orderedAt = time.UnixMilli(d.Purchase.OrderDate).UTC()
	}
	return platforms.RawSale{
		ExternalID:    d.Purchase.Transaction,
		ProductID:     strconv.FormatInt(d.Product.ID, 10),
		ProductName:   d.Product.Name,
		Status:        d.Purchase.Status,
		PaymentMethod: d.Purchase.Payment.Method,
		NetCents:      cents,
		ChargeCents:   cents,
		CustomerEmail: d.Buyer.Email,
		Timestamp:     orderedAt,
		UTM: platforms.UTMParams{
			Source:   d.Purchase.Tracking.Source,
			Campaign: d.Purchase.Tracking.SourceSCK,
			Content:  d.Purchase.Tracking.ExternalCode,
		},
	}
}

func classifyStatus(resp *http.Response, action string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, action+" rejected: invalid credentials")
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			action+" failed")
	}
}
