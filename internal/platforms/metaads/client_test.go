package metaads

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lmoreira/funneltrack-backend/internal/platforms"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
	"github.com/shopspring/decimal"
)

func newTestClient(rt roundTripFunc) *Client {
	return NewClient(
		config.MetaAdsConfig{BaseURL: "http://graph.test", APIVersion: "v19.0", PageSize: 25},
		WithHTTPClient(&http.Client{Transport: rt}),
	)
}

func TestAuthenticateValidatesToken(t *testing.T) {
	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"id":"10158"}`)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	session, err := client.Authenticate(context.Background(), platforms.Credentials{
		AccessToken: "meta-tok",
		AccountID:   "120210",
	})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !strings.HasPrefix(capturedURL, "http://graph.test/v19.0/me") {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if !strings.Contains(capturedURL, "access_token=meta-tok") {
		t.Fatalf("token missing from URL %q", capturedURL)
	}
	if session.AccessToken != "meta-tok" {
		t.Fatalf("unexpected token %q", session.AccessToken)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"code":190}}`)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	_, err := client.Authenticate(context.Background(), platforms.Credentials{
		AccessToken: "stale",
		AccountID:   "120210",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !platforms.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestFetchPageMapsInsights(t *testing.T) {
	insightsBody := `{
		"data": [
			{
				"campaign_id": "c-1",
				"campaign_name": "Launch",
				"adset_id": "as-1",
				"adset_name": "Lookalike",
				"ad_id": "ad-1",
				"ad_name": "Video A",
				"spend": "150.00",
				"impressions": "10000",
				"clicks": "320",
				"inline_link_clicks": "210",
				"reach": "8500",
				"frequency": "1.18",
				"cpc": "0.47",
				"cpm": "15.00",
				"actions": [
					{"action_type": "landing_page_view", "value": "180"},
					{"action_type": "initiate_checkout", "value": "42"},
					{"action_type": "video_view", "value": "900"}
				],
				"date_start": "2025-05-03"
			}
		],
		"paging": {"cursors": {"after": ""}, "next": ""}
	}`
	adsetsBody := `{"data": [{"id": "as-1", "daily_budget": "5000"}]}`

	var insightsURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.Path, "/adsets") {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(adsetsBody)),
				Header:     http.Header{},
			}, nil
		}
		insightsURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(insightsBody)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	window := platforms.Window{
		From: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
	}
	page, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "meta-tok"},
		platforms.Credentials{AccountID: "120210"}, window, "")
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}

	if !strings.Contains(insightsURL, "act_120210%2Finsights") && !strings.Contains(insightsURL, "act_120210/insights") {
		t.Fatalf("account path missing from URL %q", insightsURL)
	}
	if !strings.Contains(insightsURL, "level=ad") || !strings.Contains(insightsURL, "time_increment=1") {
		t.Fatalf("insight params missing from URL %q", insightsURL)
	}

	if len(page.Records) != 1 {
		t.Fatalf("expected 1 record got %d", len(page.Records))
	}
	row := page.Records[0]
	if row.CampaignID != "c-1" || row.AdID != "ad-1" {
		t.Fatalf("unexpected identity %+v", row)
	}
	if !row.Spend.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("unexpected spend %s", row.Spend)
	}
	if row.Impressions != 10000 || row.LinkClicks != 210 || row.Reach != 8500 {
		t.Fatalf("unexpected counters %+v", row)
	}
	if row.Actions["landing_page_view"] != 180 || row.Actions["initiate_checkout"] != 42 {
		t.Fatalf("unexpected actions %+v", row.Actions)
	}
	if _, ok := row.Actions["thruplay"]; ok {
		t.Fatalf("absent action should be absent from map")
	}
	if row.Date != time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected date %v", row.Date)
	}
	if !row.DailyBudget.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected budget 50 from minor units, got %s", row.DailyBudget)
	}
	if !page.Done {
		t.Fatalf("empty next link should terminate")
	}
}

func TestFetchPageBackfillsBudgetsOnEveryPage(t *testing.T) {
	page1Body := `{
		"data": [
			{"campaign_id": "c-1", "adset_id": "as-1", "ad_id": "ad-1", "spend": "30.00", "date_start": "2026-08-30"}
		],
		"paging": {"cursors": {"after": "p2"}, "next": "http://graph.test/next"}
	}`
	page2Body := `{
		"data": [
			{"campaign_id": "c-1", "adset_id": "as-2", "ad_id": "ad-2", "spend": "40.00", "date_start": "2026-08-29"}
		],
		"paging": {"cursors": {"after": ""}, "next": ""}
	}`
	adsetsBody := `{"data": [{"id": "as-1", "daily_budget": "5500"}, {"id": "as-2", "daily_budget": "7000"}]}`

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		body := adsetsBody
		if strings.Contains(req.URL.Path, "/insights") {
			if req.URL.Query().Get("after") == "p2" {
				body = page2Body
			} else {
				body = page1Body
			}
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	window := platforms.Window{
		From: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	session := &platforms.Session{AccessToken: "meta-tok"}
	creds := platforms.Credentials{AccountID: "120210"}

	page1, err := client.FetchPage(context.Background(), session, creds, window, "")
	if err != nil {
		t.Fatalf("fetch page 1: %v", err)
	}
	if page1.Done || page1.NextCursor != "p2" {
		t.Fatalf("expected continuation, got done=%v cursor=%q", page1.Done, page1.NextCursor)
	}
	if !page1.Records[0].DailyBudget.Equal(decimal.RequireFromString("55")) {
		t.Fatalf("page 1 budget not backfilled, got %s", page1.Records[0].DailyBudget)
	}

	page2, err := client.FetchPage(context.Background(), session, creds, window, page1.NextCursor)
	if err != nil {
		t.Fatalf("fetch page 2: %v", err)
	}
	if !page2.Done {
		t.Fatalf("expected final page")
	}
	if !page2.Records[0].DailyBudget.Equal(decimal.RequireFromString("70")) {
		t.Fatalf("page 2 budget not backfilled, got %s", page2.Records[0].DailyBudget)
	}
}

func TestFetchAdSetBudgetsFollowsPaging(t *testing.T) {
	adsetsPage1 := `{
		"data": [{"id": "as-1", "daily_budget": "5000"}],
		"paging": {"cursors": {"after": "more"}, "next": "http://graph.test/next"}
	}`
	adsetsPage2 := `{
		"data": [{"id": "as-2", "daily_budget": "2500"}],
		"paging": {"cursors": {"after": ""}, "next": ""}
	}`

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		body := adsetsPage1
		if req.URL.Query().Get("after") == "more" {
			body = adsetsPage2
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	budgets, err := client.fetchAdSetBudgets(context.Background(), "meta-tok", "120210")
	if err != nil {
		t.Fatalf("fetch adset budgets: %v", err)
	}
	if len(budgets) != 2 {
		t.Fatalf("expected budgets from both pages, got %d", len(budgets))
	}
	if !budgets["as-1"].Equal(decimal.RequireFromString("50")) || !budgets["as-2"].Equal(decimal.RequireFromString("25")) {
		t.Fatalf("unexpected budgets %+v", budgets)
	}
}

func TestFetchPageForwardsAfterCursor(t *testing.T) {
	respBody := `{
		"data": [],
		"paging": {"cursors": {"after": "cursor-2"}, "next": "http://graph.test/next"}
	}`

	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	page, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "meta-tok"},
		platforms.Credentials{AccountID: "120210"},
		platforms.Window{From: time.Now().Add(-24 * time.Hour), To: time.Now()}, "cursor-1")
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if !strings.Contains(capturedURL, "after=cursor-1") {
		t.Fatalf("cursor not forwarded in URL %q", capturedURL)
	}
	if page.Done {
		t.Fatalf("page with next link should not be done")
	}
	if page.NextCursor != "cursor-2" {
		t.Fatalf("unexpected cursor %q", page.NextCursor)
	}
}

func TestFetchPageRateLimitedIsTransient(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"code":17}}`)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	_, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "meta-tok"},
		platforms.Credentials{AccountID: "120210"},
		platforms.Window{From: time.Now().Add(-24 * time.Hour), To: time.Now()}, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !platforms.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
