package kiwify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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

// Client fetches sales from the Kiwify public API.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a Kiwify client from config.
func NewClient(cfg config.KiwifyConfig, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
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
	return enums.PlatformKiwify
}

// Authenticate exchanges the client credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context, creds platforms.Credentials) (*platforms.Session, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "kiwify client credentials missing")
	}

	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build kiwify token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute kiwify token request")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp, "kiwify token request"); err != nil {
		return nil, err
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode kiwify token response")
	}
	if tokenResp.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "kiwify token response missing access_token")
	}

	return &platforms.Session{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// FetchPage requests one page of sales inside the window. The cursor is the
// 1-based page number; empty means the first page.
func (c *Client) FetchPage(ctx context.Context, session *platforms.Session, creds platforms.Credentials, window platforms.Window, cursor string) (*platforms.SalesPage, error) {
	if session == nil || session.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "kiwify session required")
	}

	page := 1
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid kiwify cursor %q", cursor))
		}
		page = parsed
	}

	q := url.Values{}
	q.Set("start_date", window.From.Format("2006-01-02"))
	q.Set("end_date", window.To.Format("2006-01-02"))
	q.Set("page_size", strconv.Itoa(c.pageSize))
	q.Set("page_number", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sales?"+q.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build kiwify sales request")
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	if creds.AccountID != "" {
		req.Header.Set("x-kiwify-account-id", creds.AccountID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute kiwify sales request")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp, "kiwify sales request"); err != nil {
		return nil, err
	}

	var apiResp struct {
		Pagination struct {
			Count      int `json:"count"`
			PageNumber int `json:"page_number"`
			PageSize   int `json:"page_size"`
		} `json:"pagination"`
		Data []saleDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode kiwify sales response")
	}

	records := make([]platforms.RawSale, 0, len(apiResp.Data))
	for _, dto := range apiResp.Data {
		records = append(records, dto.toRaw())
	}

	done := len(apiResp.Data) < c.pageSize
	next := ""
	if !done {
		next = strconv.Itoa(page + 1)
	}
	return &platforms.SalesPage{Records: records, NextCursor: next, Done: done}, nil
}

type saleDTO struct {
	ID      string `json:"id"`
	Product struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	NetAmount     int64  `json:"net_amount"`
	ChargeAmount  int64  `json:"charge_amount"`
	KiwifyFee     int64  `json:"kiwify_fee"`
	Customer      struct {
		Email string `json:"email"`
	} `json:"customer"`
	CreatedAt time.Time `json:"created_at"`
	Tracking  struct {
		UTMSource   string `json:"utm_source"`
		UTMMedium   string `json:"utm_medium"`
		UTMCampaign string `json:"utm_campaign"`
		UTMContent  string `json:"utm_content"`
		UTMTerm     string `json:"utm_term"`
	} `json:"tracking"`
}

func (d saleDTO) toRaw() platforms.RawSale {
	return platforms.RawSale{
		ExternalID:    d.ID,
		ProductID:     d.Product.ID,
		ProductName:   d.Product.Name,
		Status:        d.Status,
		PaymentMethod: d.PaymentMethod,
		NetCents:      d.NetAmount,
		ChargeCents:   d.ChargeAmount,
		FeeCents:      d.KiwifyFee,
		CustomerEmail: d.Customer.Email,
		Timestamp:     d.CreatedAt,
		UTM: platforms.UTMParams{
			Source:   d.Tracking.UTMSource,
			Medium:   d.Tracking.UTMMedium,
			Campaign: d.Tracking.UTMCampaign,
			Content:  d.Tracking.UTMContent,
			Term:     d.Tracking.UTMTerm,
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
