package httpclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/lendscope/internal/httpclient"
)

func TestClient_GetDecodesResult(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weth":{"usd":3000.5}}`))
	}))
	defer srv.Close()

	c, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(srv.URL),
		httpclient.WithProviderName("coingecko"),
		httpclient.WithHeaders(map[string]string{"x-cg-demo-api-key": "secret"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out map[string]map[string]float64
	resp, err := c.NewRequestWithOptions(httpclient.WithHeadersLogConfig(true, "x-cg-demo-api-key")).
		SetQueryParam("ids", "weth,usd-coin").
		SetQueryParam("vs_currencies", "usd").
		SetResult(&out).
		Get(context.Background(), "/api/v3/simple/price")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.IsError() {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}
	if gotQuery != "ids=weth%2Cusd-coin&vs_currencies=usd" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotKey != "secret" {
		t.Errorf("expected api key header, got %q", gotKey)
	}
	if out["weth"]["usd"] != 3000.5 {
		t.Errorf("unexpected decoded result %v", out)
	}
}

func TestClient_ErrorHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := httpclient.NewInstrumentedClient(httpclient.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	limited := errors.New("limited")
	_, err = c.NewRequestWithOptions(httpclient.WithResponseErrorHandler(func(status int, _ []byte) error {
		if status == http.StatusTooManyRequests {
			return limited
		}
		return nil
	})).Get(context.Background(), "/x")

	if !errors.Is(err, limited) {
		t.Errorf("expected handler error, got %v", err)
	}
}
