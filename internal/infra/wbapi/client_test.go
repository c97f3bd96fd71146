package wbapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tariffops/tariffsync/errs"
	"github.com/tariffops/tariffsync/internal/config"
)

const sampleBody = `{
  "response": {
    "data": {
      "dtNextBox": "2026-03-01",
      "dtTillMax": "2026-02-28",
      "warehouseList": [
        {
          "warehouseName": "Коледино",
          "boxDeliveryAndStorageExpr": "160",
          "boxDeliveryBase": "48",
          "boxDeliveryLiter": "11,2",
          "boxStorageBase": "0,14",
          "boxStorageLiter": "0,07"
        },
        {
          "warehouseName": "Тула",
          "boxDeliveryAndStorageExpr": "-",
          "boxDeliveryBase": "-",
          "boxDeliveryLiter": "-",
          "boxStorageBase": "-",
          "boxStorageLiter": "-"
        }
      ]
    }
  }
}`

func newTestClient(url string) *Client {
	return NewClient(config.ProviderConfig{
		BaseURL:        url,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
	})
}

func TestFetchTariffsSuccess(t *testing.T) {
	var gotAuth, gotDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDate = r.URL.Query().Get("date")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	date := time.Date(2026, time.February, 14, 15, 4, 5, 0, time.UTC)
	records, err := client.FetchTariffs(context.Background(), date)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotDate != "2026-02-14" {
		t.Fatalf("unexpected date param %q", gotDate)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.WarehouseName != "Коледино" {
		t.Fatalf("unexpected warehouse %q", first.WarehouseName)
	}
	if !first.Date.Equal(time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected record stamped with requested day, got %v", first.Date)
	}
	if first.DeliveryLiter == nil || first.DeliveryLiter.String() != "11.2" {
		t.Fatalf("expected delivery liter 11.2, got %v", first.DeliveryLiter)
	}
	if first.ValidUntil == nil || *first.ValidUntil != "2026-02-28" {
		t.Fatalf("expected valid-until propagated, got %v", first.ValidUntil)
	}

	second := records[1]
	if second.DeliveryAndStorageExpr != nil || second.StorageLiter != nil {
		t.Fatalf("expected sentinel values normalized to nil, got %+v", second)
	}
	if second.NextBoxDate == nil || *second.NextBoxDate != "2026-03-01" {
		t.Fatalf("expected next-box date shared across records, got %v", second.NextBoxDate)
	}
}

func TestFetchTariffsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"too many requests"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchTariffs(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if errs.CodeOf(err) != errs.CodeProvider {
		t.Fatalf("expected provider code, got %q", errs.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "too many requests") {
		t.Fatalf("expected status and body fragment in error, got %v", err)
	}
}

func TestFetchTariffsMalformedShape(t *testing.T) {
	cases := map[string]string{
		"not json":      `<html>oops</html>`,
		"missing data":  `{"response":{}}`,
		"missing list":  `{"response":{"data":{"dtNextBox":"x","dtTillMax":"y"}}}`,
		"wrong nesting": `{"data":{"warehouseList":[]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).FetchTariffs(context.Background(), time.Now())
			if err == nil {
				t.Fatal("expected shape validation error")
			}
			if errs.CodeOf(err) != errs.CodeProvider {
				t.Fatalf("expected provider code, got %q", errs.CodeOf(err))
			}
		})
	}
}

func TestFetchTariffsEmptyListIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"data":{"dtNextBox":"","dtTillMax":"","warehouseList":[]}}}`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchTariffs(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("empty list must not fail: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty slice, got %d records", len(records))
	}
}

func TestFetchTariffsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // immediately closed: connection refused

	_, err := newTestClient(server.URL).FetchTariffs(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errs.CodeOf(err) != errs.CodeProvider {
		t.Fatalf("expected provider code, got %q", errs.CodeOf(err))
	}
}

func TestFetchTariffsDefaultsToToday(t *testing.T) {
	var gotDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDate = r.URL.Query().Get("date")
		_, _ = w.Write([]byte(`{"response":{"data":{"dtNextBox":"","dtTillMax":"","warehouseList":[]}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	fixed := time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)
	client.clock = func() time.Time { return fixed }

	if _, err := client.FetchTariffs(context.Background(), time.Time{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotDate != "2026-08-29" {
		t.Fatalf("expected clock-derived date, got %q", gotDate)
	}
}
