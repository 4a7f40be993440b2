package hotmart

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
		config.HotmartConfig{
			BaseURL:  "http://hotmart.test",
			AuthURL:  "http://hotmart-auth.test",
			PageSize: 50,
		},
		WithHTTPClient(&http.Client{Transport: rt}),
	)
}

func TestAuthenticateUsesSecurityEndpoint(t *testing.T) {
	var capturedURL string
	var capturedUser string
	var capturedPass string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedUser, capturedPass, _ = req.BasicAuth()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"access_token":"hm-tok","expires_in":1800}`)),
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
	if !strings.HasPrefix(capturedURL, "http://hotmart-auth.test/security/oauth/token") {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if !strings.Contains(capturedURL, "grant_type=client_credentials") {
		t.Fatalf("grant type missing from URL %q", capturedURL)
	}
	if capturedUser != "cid" || capturedPass != "secret" {
		t.Fatalf("basic auth not set, got %q/%q", capturedUser, capturedPass)
	}
	if session.AccessToken != "hm-tok" {
		t.Fatalf("unexpected token %q", session.AccessToken)
	}
}

func TestFetchPageMapsSalesHistory(t *testing.T) {
	respBody := `{
		"items": [
			{
				"purchase": {
					"transaction": "HP12345",
					"status": "APPROVED",
					"order_date": 1746100800000,
					"price": {"value": 97.5},
					"payment": {"method": "PIX", "type": "pix"},
					"tracking": {"source": "fb", "source_sck": "spring_launch", "external_code": "ad-7"}
				},
				"product": {"id": 4242, "name": "Mentorship"},
				"buyer": {"email": "aluno@example.com"}
			}
		],
		"page_info": {"next_page_token": "tok-next", "results_per_page": 50, "total_results": 120}
	}`

	var capturedURL string
	var capturedAuth string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	window := platforms.Window{
		From: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
	}
	page, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "hm-tok"},
		platforms.Credentials{}, window, "")
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}

	if !strings.Contains(capturedURL, "/payments/api/v1/sales/history") {
		t.Fatalf("unexpected path %q", capturedURL)
	}
	if !strings.Contains(capturedURL, "start_date=1746057600000") {
		t.Fatalf("start date millis missing from URL %q", capturedURL)
	}
	if capturedAuth != "Bearer hm-tok" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}

	if len(page.Records) != 1 {
		t.Fatalf("expected 1 record got %d", len(page.Records))
	}
	record := page.Records[0]
	if record.ExternalID != "HP12345" {
		t.Fatalf("unexpected external id %q", record.ExternalID)
	}
	if record.ProductID != "4242" || record.ProductName != "Mentorship" {
		t.Fatalf("unexpected product %q %q", record.ProductID, record.ProductName)
	}
	if record.NetCents != 9750 || record.ChargeCents != 9750 {
		t.Fatalf("unexpected amounts net=%d charge=%d", record.NetCents, record.ChargeCents)
	}
	if record.Status != "APPROVED" {
		t.Fatalf("unexpected status %q", record.Status)
	}
	if record.UTM.Source != "fb" || record.UTM.Campaign != "spring_launch" {
		t.Fatalf("unexpected tracking %+v", record.UTM)
	}
	if record.Timestamp != time.UnixMilli(1746100800000).UTC() {
		t.Fatalf("unexpected timestamp %v", record.Timestamp)
	}

	if page.Done {
		t.Fatalf("page with next token should not be done")
	}
	if page.NextCursor != "tok-next" {
		t.Fatalf("unexpected cursor %q", page.NextCursor)
	}
}

func TestFetchPageMissingOrderDateStaysZero(t *testing.T) {
	respBody := `{
		"items": [
			{
				"purchase": {
					"transaction": "HP99999",
					"status": "APPROVED",
					"price": {"value": 50.0},
					"payment": {"method": "PIX", "type": "pix"},
					"tracking": {}
				},
				"product": {"id": 4242, "name": "Mentorship"},
				"buyer": {"email": "aluno@example.com"}
			}
		],
		"page_info": {"next_page_token": "", "results_per_page": 50, "total_results": 1}
	}`

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	window := platforms.Window{
		From: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
	}
	page, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "hm-tok"},
		platforms.Credentials{}, window, "")
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("expected 1 record got %d", len(page.Records))
	}
	if !page.Records[0].Timestamp.IsZero() {
		t.Fatalf("absent order_date should not become an epoch timestamp, got %v", page.Records[0].Timestamp)
	}
}

func TestFetchPageForwardsCursorAndTerminates(t *testing.T) {
	respBody := `{"items": [], "page_info": {"next_page_token": "", "results_per_page": 50, "total_results": 120}}`

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
		&platforms.Session{AccessToken: "hm-tok"},
		platforms.Credentials{},
		platforms.Window{From: time.Now().Add(-24 * time.Hour), To: time.Now()}, "tok-next")
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if !strings.Contains(capturedURL, "page_token=tok-next") {
		t.Fatalf("cursor not forwarded in URL %q", capturedURL)
	}
	if !page.Done || page.NextCursor != "" {
		t.Fatalf("empty next token should terminate, done=%v cursor=%q", page.Done, page.NextCursor)
	}
}

func TestFetchPageUnauthorized(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Body:       io.NopCloser(strings.NewReader(`{"error":"forbidden"}`)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(rt)
	_, err := client.FetchPage(context.Background(),
		&platforms.Session{AccessToken: "expired"},
		platforms.Credentials{},
		platforms.Window{From: time.Now().Add(-24 * time.Hour), To: time.Now()}, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !platforms.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
