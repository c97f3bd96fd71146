// Package sheets publishes tariff snapshots to Google Sheets destinations.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/tariffops/tariffsync/errs"
	"github.com/tariffops/tariffsync/internal/config"
)

const component = "sheets"

// API is the narrow surface of the Sheets service the publisher needs.
type API interface {
	// VerifyAccess fetches minimal spreadsheet metadata to prove the sink
	// exists and the credentials can reach it.
	VerifyAccess(ctx context.Context, spreadsheetID string) error
	// Clear wipes the given range.
	Clear(ctx context.Context, spreadsheetID, valueRange string) error
	// Update writes values starting at the given range as USER_ENTERED input.
	Update(ctx context.Context, spreadsheetID, valueRange string, values [][]any) error
}

// Client wraps the generated sheets/v4 service behind the API interface.
type Client struct {
	svc *sheetsv4.Service
}

// NewClient builds a Sheets client from service-account credentials on disk.
func NewClient(ctx context.Context, cfg config.SheetsConfig) (*Client, error) {
	if strings.TrimSpace(cfg.CredentialsFile) == "" {
		return nil, errs.New(component, errs.CodeInvalid,
			errs.WithMessage("credentials file required"))
	}
	creds, err := loadCredentials(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	svc, err := sheetsv4.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, errs.New(component, errs.CodeInvalid,
			errs.WithMessage("initialise sheets service"),
			errs.WithCause(err))
	}
	return &Client{svc: svc}, nil
}

// loadCredentials reads and parses the service-account key file so a
// malformed key fails at startup rather than on the first publish.
func loadCredentials(ctx context.Context, path string) (*google.Credentials, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return nil, errs.New(component, errs.CodeInvalid,
			errs.WithMessage("read credentials file"),
			errs.WithCause(err))
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, sheetsv4.SpreadsheetsScope)
	if err != nil {
		return nil, errs.New(component, errs.CodeInvalid,
			errs.WithMessage("parse service account credentials"),
			errs.WithCause(err))
	}
	return creds, nil
}

func (c *Client) VerifyAccess(ctx context.Context, spreadsheetID string) error {
	_, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("properties.title").
		Context(ctx).Do()
	return err
}

func (c *Client) Clear(ctx context.Context, spreadsheetID, valueRange string) error {
	_, err := c.svc.Spreadsheets.Values.
		Clear(spreadsheetID, valueRange, &sheetsv4.ClearValuesRequest{}).
		Context(ctx).Do()
	return err
}

func (c *Client) Update(ctx context.Context, spreadsheetID, valueRange string, values [][]any) error {
	_, err := c.svc.Spreadsheets.Values.
		Update(spreadsheetID, valueRange, &sheetsv4.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	return err
}

// classifyAccessError maps a metadata fetch failure to a sink error code so
// callers can distinguish a mistyped ID from a sharing problem.
func classifyAccessError(spreadsheetID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return errs.New(component, errs.CodeSinkNotFound,
				errs.WithMessage(fmt.Sprintf("spreadsheet %s not found", spreadsheetID)),
				errs.WithHTTP(apiErr.Code),
				errs.WithCause(err))
		case 403:
			return errs.New(component, errs.CodeSinkPermission,
				errs.WithMessage(fmt.Sprintf("spreadsheet %s not shared with the service account", spreadsheetID)),
				errs.WithHTTP(apiErr.Code),
				errs.WithCause(err))
		}
	}
	return errs.New(component, errs.CodeSinkUnreachable,
		errs.WithMessage(fmt.Sprintf("cannot access spreadsheet %s", spreadsheetID)),
		errs.WithCause(err))
}
