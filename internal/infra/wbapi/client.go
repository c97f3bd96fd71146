// Package wbapi implements the Wildberries box-tariff provider client.
package wbapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tariffops/tariffsync/errs"
	"github.com/tariffops/tariffsync/internal/config"
	"github.com/tariffops/tariffsync/internal/domain/tariff"
	"github.com/tariffops/tariffsync/internal/observability"
)

const (
	component        = "wbapi"
	dateLayout       = "2006-01-02"
	bodyFragmentSize = 256
)

// Client fetches one tariff snapshot per calendar date from the provider API.
// It owns request shaping and response-shape validation; retry is the
// caller's responsibility.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	clock   func() time.Time
}

// NewClient constructs a provider client from configuration.
func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		clock:   time.Now,
	}
}

type apiResponse struct {
	Response struct {
		Data *apiData `json:"data"`
	} `json:"response"`
}

type apiData struct {
	DtNextBox     string             `json:"dtNextBox"`
	DtTillMax     string             `json:"dtTillMax"`
	WarehouseList []warehouseTariffs `json:"warehouseList"`
}

type warehouseTariffs struct {
	WarehouseName             string `json:"warehouseName"`
	BoxDeliveryAndStorageExpr string `json:"boxDeliveryAndStorageExpr"`
	BoxDeliveryBase           string `json:"boxDeliveryBase"`
	BoxDeliveryLiter          string `json:"boxDeliveryLiter"`
	BoxStorageBase            string `json:"boxStorageBase"`
	BoxStorageLiter           string `json:"boxStorageLiter"`
}

// FetchTariffs retrieves tariff records for the given calendar date. A zero
// date means "today". Each returned record is stamped with the requested
// date; the two response-level date strings repeat on every record.
func (c *Client) FetchTariffs(ctx context.Context, date time.Time) ([]tariff.Record, error) {
	if date.IsZero() {
		date = c.clock()
	}
	day := tariff.Day(date)

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errs.New(component, errs.CodeProvider,
			errs.WithMessage(fmt.Sprintf("invalid base URL %q", c.baseURL)), errs.WithCause(err))
	}
	query := endpoint.Query()
	query.Set("date", day.Format(dateLayout))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, errs.New(component, errs.CodeProvider,
			errs.WithMessage("build request"), errs.WithCause(err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errs.New(component, errs.CodeProvider,
			errs.WithMessage("request tariffs"), errs.WithCause(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.New(component, errs.CodeProvider,
			errs.WithHTTP(resp.StatusCode), errs.WithMessage("read response body"), errs.WithCause(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.New(component, errs.CodeProvider,
			errs.WithHTTP(resp.StatusCode),
			errs.WithMessage(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bodyFragment(body))))
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errs.New(component, errs.CodeProvider,
			errs.WithHTTP(resp.StatusCode), errs.WithMessage("malformed response"), errs.WithCause(err))
	}
	data := decoded.Response.Data
	if data == nil || data.WarehouseList == nil {
		return nil, errs.New(component, errs.CodeProvider,
			errs.WithHTTP(resp.StatusCode), errs.WithMessage("malformed response"))
	}

	records := make([]tariff.Record, 0, len(data.WarehouseList))
	validUntil := tariff.OptionalString(data.DtTillMax)
	nextBox := tariff.OptionalString(data.DtNextBox)
	for _, warehouse := range data.WarehouseList {
		records = append(records, tariff.Record{
			Date:                   day,
			WarehouseName:          warehouse.WarehouseName,
			DeliveryAndStorageExpr: tariff.ParseNumber(warehouse.BoxDeliveryAndStorageExpr),
			DeliveryBase:           tariff.ParseNumber(warehouse.BoxDeliveryBase),
			DeliveryLiter:          tariff.ParseNumber(warehouse.BoxDeliveryLiter),
			StorageBase:            tariff.ParseNumber(warehouse.BoxStorageBase),
			StorageLiter:           tariff.ParseNumber(warehouse.BoxStorageLiter),
			ValidUntil:             validUntil,
			NextBoxDate:            nextBox,
		})
	}

	observability.Log().Debug("fetched provider tariffs",
		observability.F("date", day.Format(dateLayout)),
		observability.F("warehouses", len(records)))

	return records, nil
}

func bodyFragment(body []byte) string {
	if len(body) > bodyFragmentSize {
		body = body[:bodyFragmentSize]
	}
	return string(body)
}
