package metaads

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
	"github.com/shopspring/decimal"
)

const (
	responseBodyReadLimit int64 = 2048
	defaultPageSize             = 100

	insightFields = "campaign_id,campaign_name,adset_id,adset_name,ad_id,ad_name," +
		"spend,impressions,clicks,inline_link_clicks,reach,frequency,cpc,cpm,actions,date_start"
)

// Client fetches daily ad delivery stats from the Meta Graph API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
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

// WithBaseURL overrides the Graph API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a Meta Ads client from config.
func NewClient(cfg config.MetaAdsConfig, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion: cfg.APIVersion,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if client.pageSize <= 0 {
		client.pageSize = defaultPageSize
	}
	if client.httpClient.Timeout == 0 {
		client.httpClient.Timeout = 60 * time.Second
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
	return enums.PlatformMetaAds
}

// Authenticate validates the stored long-lived token with a cheap /me call.
// Meta tokens are issued out of band; there is no credential exchange here.
func (c *Client) Authenticate(ctx context.Context, creds platforms.Credentials) (*platforms.Session, error) {
	if creds.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "meta access token missing")
	}
	if creds.AccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "meta ad account id missing")
	}

	q := url.Values{}
	q.Set("access_token", creds.AccessToken)
	q.Set("fields", "id")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.versionedURL("me")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build meta token check request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute meta token check request")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp, "meta token check"); err != nil {
		return nil, err
	}

	return &platforms.Session{AccessToken: creds.AccessToken}, nil
}

// FetchPage requests one page of ad-level daily insights inside the window.
// The cursor is the Graph API "after" cursor; empty means the first page.
func (c *Client) FetchPage(ctx context.Context, session *platforms.Session, creds platforms.Credentials, window platforms.Window, cursor string) (*platforms.AdSpendPage, error) {
	if session == nil || session.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "meta session required")
	}

	timeRange, err := json.Marshal(map[string]string{
		"since": window.From.Format("2006-01-02"),
		"until": window.To.Format("2006-01-02"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal meta time range")
	}

	q := url.Values{}
	q.Set("access_token", session.AccessToken)
	q.Set("level", "ad")
	q.Set("time_increment", "1")
	q.Set("fields", insightFields)
	q.Set("time_range", string(timeRange))
	q.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("after", cursor)
	}

	endpoint := c.versionedURL("act_"+creds.AccountID+"/insights") + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build meta insights request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute meta insights request")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp, "meta insights request"); err != nil {
		return nil, err
	}

	var apiResp struct {
		Data   []insightDTO `json:"data"`
		Paging struct {
			Cursors struct {
				After string `json:"after"`
			} `json:"cursors"`
			Next string `json:"next"`
		} `json:"paging"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode meta insights response")
	}

	records := make([]platforms.RawAdRow, 0, len(apiResp.Data))
	for _, dto := range apiResp.Data {
		records = append(records, dto.toRaw())
	}

	page := &platforms.AdSpendPage{Records: records, Done: apiResp.Paging.Next == ""}
	if !page.Done {
		page.NextCursor = apiResp.Paging.Cursors.After
	}

	// Budgets live on the ad set, not the insight rows. Backfill every
	// page so rows carry their budget no matter which page they land on.
	if len(page.Records) > 0 {
		budgets, err := c.fetchAdSetBudgets(ctx, session.AccessToken, creds.AccountID)
		if err != nil {
			return nil, err
		}
		for i := range page.Records {
			page.Records[i].DailyBudget = budgets[page.Records[i].AdSetID]
		}
	}

	return page, nil
}

func (c *Client) fetchAdSetBudgets(ctx context.Context, token, accountID string) (map[string]decimal.Decimal, error) {
	budgets := make(map[string]decimal.Decimal)
	after := ""
	for {
		q := url.Values{}
		q.Set("access_token", token)
		q.Set("fields", "id,daily_budget")
		q.Set("limit", "500")
		if after != "" {
			q.Set("after", after)
		}

		endpoint := c.versionedURL("act_"+accountID+"/adsets") + "?" + q.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build meta adsets request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute meta adsets request")
		}

		var apiResp struct {
			Data []struct {
				ID          string `json:"id"`
				DailyBudget string `json:"daily_budget"`
			} `json:"data"`
			Paging struct {
				Cursors struct {
					After string `json:"after"`
				} `json:"cursors"`
				Next string `json:"next"`
			} `json:"paging"`
		}
		if err := classifyStatus(resp, "meta adsets request"); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
			_ = resp.Body.Close()
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode meta adsets response")
		}
		_ = resp.Body.Close()

		for _, adset := range apiResp.Data {
			// The Graph API reports budgets in minor units.
			minor, err := decimal.NewFromString(adset.DailyBudget)
			if err != nil {
				continue
			}
			budgets[adset.ID] = minor.Shift(-2)
		}

		if apiResp.Paging.Next == "" {
			return budgets, nil
		}
		after = apiResp.Paging.Cursors.After
	}
}

type insightDTO struct {
	CampaignID       string `json:"campaign_id"`
	CampaignName     string `json:"campaign_name"`
	AdSetID          string `json:"adset_id"`
	AdSetName        string `json:"adset_name"`
	AdID             string `json:"ad_id"`
	AdName           string `json:"ad_name"`
	Spend            string `json:"spend"`
	Impressions      string `json:"impressions"`
	Clicks           string `json:"clicks"`
	InlineLinkClicks string `json:"inline_link_clicks"`
	Reach            string `json:"reach"`
	Frequency        string `json:"frequency"`
	CPC              string `json:"cpc"`
	CPM              string `json:"cpm"`
	Actions          []struct {
		ActionType string `json:"action_type"`
		Value      string `json:"value"`
	} `json:"actions"`
	DateStart string `json:"date_start"`
}

func (d insightDTO) toRaw() platforms.RawAdRow {
	date, _ := time.Parse("2006-01-02", d.DateStart)
	actions := make(map[string]int64, len(d.Actions))
	for _, action := range d.Actions {
		actions[action.ActionType] = parseCount(action.Value)
	}
	return platforms.RawAdRow{
		CampaignID:   d.CampaignID,
		CampaignName: d.CampaignName,
		AdSetID:      d.AdSetID,
		AdSetName:    d.AdSetName,
		AdID:         d.AdID,
		AdName:       d.AdName,
		Date:         date,
		Spend:        parseDecimal(d.Spend),
		Impressions:  parseCount(d.Impressions),
		Clicks:       parseCount(d.Clicks),
		LinkClicks:   parseCount(d.InlineLinkClicks),
		Reach:        parseCount(d.Reach),
		Frequency:    parseDecimal(d.Frequency),
		CPC:          parseDecimal(d.CPC),
		CPM:          parseDecimal(d.CPM),
		Actions:      actions,
	}
}

// Graph API numeric fields arrive as strings; blank or malformed values
// count as zero.
func parseDecimal(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

func parseCount(value string) int64 {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func (c *Client) versionedURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, path)
}

func classifyStatus(resp *http.Response, action string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, action+" rejected: invalid token")
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			action+" failed")
	}
}
