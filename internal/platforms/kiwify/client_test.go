package kiwify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lmoreira/funneltrack-backend/internal/platforms"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
)

func newTestClient(rt roundTripFunc) *Client {
	return NewClient(
		config.KiwifyConfig{BaseURL: "http://kiwify.test", PageSize: 2},
		WithHTTPClient(&http.Client{Transport: rt}),
	)
}

func TestAuthenticateExchangesCredentials(t *testing.T) {
	var capturedURL string
	var capturedBody string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		capturedBody = string(bodyBytes)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"access_token":"tok-123","expires_in":3600}`)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	session, err := client.Authenticate(context.Background(), platforms.Credentials{
		ClientID:     "cid",
		ClientSecret: "secret",
	})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if capturedURL != "http://kiwify.test/v1/oauth/token" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if !strings.Contains(capturedBody, "client_id=cid") || !strings.Contains(capturedBody, "client_secret=secret") {
		t.Fatalf("credentials missing from body %q", capturedBody)
	}
	if session.AccessToken != "tok-123" {
		t.Fatalf("unexpected token %q", session.AccessToken)
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Fatalf("expiry should be in the future, got %v", session.ExpiresAt)
	}
}

func TestAuthenticateRejectedCredentials(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Body:       io.NopCloser(strings.NewReader(`{"error":"invalid_client"}`)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	_, err := client.Authenticate(context.Background(), platforms.Credentials{
		ClientID:     "cid",
		ClientSecret: "wrong",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !platforms.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestFetchPageMapsSalesAndPaginates(t *testing.T) {
	fullPage := `{
		"pagination": {"count": 3, "page_number": 1, "page_size": 2},
		"data": [
			{
				"id": "sale-1",
				"product": {"id": "prod-1", "name": "Course A"},
				"status": "paid",
				"payment_method": "credit_card",
				"net_amount": 6624,
				"charge_amount": 9700,
				"kiwify_fee": 873,
				"customer": {"email": "buyer@example.com"},
				"created_at": "2025-05-01T12:30:00Z",
				"tracking": {"utm_source": "facebook", "utm_campaign": "launch"}
			},
			{
				"id": "sale-2",
				"product": {"id": "prod-1", "name": "Course A"},
				"status": "refunded",
				"payment_method": "pix",
				"net_amount": 2208,
				"charge_amount": 2208,
				"kiwify_fee": 0,
				"customer": {"email": "other@example.com"},
				"created_at": "2025-05-02T08:00:00Z",
				"tracking": {}
			}
		]
	}`

	var capturedURL string
	var capturedAuth string
	var capturedAccount string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		capturedAccount = req.Header.Get("x-kiwify-account-id")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(fullPage)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	window := platforms.Window{
		From: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
	}
	page, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "tok-123"},
		platforms.Credentials{AccountID: "acct-9"},
		window, "")
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}

	if !strings.Contains(capturedURL, "start_date=2025-05-01") || !strings.Contains(capturedURL, "end_date=2025-05-10") {
		t.Fatalf("window missing from URL %q", capturedURL)
	}
	if !strings.Contains(capturedURL, "page_number=1") {
		t.Fatalf("expected first page in URL %q", capturedURL)
	}
	if capturedAuth != "Bearer tok-123" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	if capturedAccount != "acct-9" {
		t.Fatalf("unexpected account header %q", capturedAccount)
	}

	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records got %d", len(page.Records))
	}
	first := page.Records[0]
	if first.ExternalID != "sale-1" || first.NetCents != 6624 || first.ChargeCents != 9700 || first.FeeCents != 873 {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.UTM.Source != "facebook" || first.UTM.Campaign != "launch" {
		t.Fatalf("unexpected tracking %+v", first.UTM)
	}
	if page.Done {
		t.Fatalf("full page should not be done")
	}
	if page.NextCursor != "2" {
		t.Fatalf("expected next cursor 2 got %q", page.NextCursor)
	}
}

func TestFetchPageShortPageTerminates(t *testing.T) {
	shortPage := `{
		"pagination": {"count": 3, "page_number": 2, "page_size": 2},
		"data": [
			{
				"id": "sale-3",
				"product": {"id": "prod-1", "name": "Course A"},
				"status": "paid",
				"net_amount": 2208,
				"charge_amount": 2208,
				"customer": {"email": "late@example.com"},
				"created_at": "2025-05-03T10:00:00Z",
				"tracking": {}
			}
		]
	}`

	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(shortPage)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	page, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "tok-123"},
		platforms.Credentials{},
		platforms.Window{From: time.Now().Add(-24 * time.Hour), To: time.Now()}, "2")
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if !strings.Contains(capturedURL, "page_number=2") {
		t.Fatalf("cursor not forwarded in URL %q", capturedURL)
	}
	if !page.Done {
		t.Fatalf("short page should terminate pagination")
	}
	if page.NextCursor != "" {
		t.Fatalf("expected empty cursor got %q", page.NextCursor)
	}
}

func TestFetchPageServerErrorIsTransient(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("upstream down")),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	_, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "tok-123"},
		platforms.Credentials{},
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
