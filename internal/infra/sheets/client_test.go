package sheets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tariffops/tariffsync/errs"
	"github.com/tariffops/tariffsync/internal/config"
)

func TestNewClientRequiresCredentialsFile(t *testing.T) {
	_, err := NewClient(context.Background(), config.SheetsConfig{})
	if err == nil {
		t.Fatal("expected error without credentials file")
	}
	if code := errs.CodeOf(err); code != errs.CodeInvalid {
		t.Fatalf("expected invalid code, got %q", code)
	}
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	_, err := loadCredentials(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if code := errs.CodeOf(err); code != errs.CodeInvalid {
		t.Fatalf("expected invalid code, got %q", code)
	}
}

func TestLoadCredentialsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := loadCredentials(context.Background(), path); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}
