package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/notehub/internal/apperr"
	pkgconfig "github.com/starford/notehub/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestNoteHubConfig_MissingToken(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("missing token should fail")
	}
	var cfgErr *apperr.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %T, want *apperr.ConfigError", err)
	}
	if cfgErr.Field != "notehub.token" {
		t.Errorf("field = %q", cfgErr.Field)
	}
}

func TestNoteHubConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.NoteHub.Token = "abc"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}
	if got := cfg.NoteHub.Client(); got.Token != "abc" || got.BaseURL == "" {
		t.Errorf("client config = %+v", got)
	}
}

func TestViewConfig_RequiresDebounce(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.NoteHub.Token = "abc"
	cfg.View.SearchDebounce = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero debounce should fail")
	}
}

func TestNoteHubConfig_NegativeTimeout(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.NoteHub.Token = "abc"
	cfg.NoteHub.Timeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative timeout should fail")
	}
}

func TestLoad_TokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.NoteHub.Token != "from-env" {
		t.Errorf("token = %q", cfg.NoteHub.Token)
	}
}

func TestLoad_MissingTokenFailsFast(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg := NewDefaultConfig()
	err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), cfg)
	if !errors.Is(err, apperr.ErrConfig) {
		t.Fatalf("err = %v, want config error", err)
	}
}

func TestLoad_YAMLWithExpansion(t *testing.T) {
	t.Setenv("TEST_NOTEHUB_SECRET", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9090
notehub:
  base_url: http://localhost:4000/api
  token: ${TEST_NOTEHUB_SECRET}
  timeout: 3s
view:
  search_debounce: 500ms
  stale_time: 30s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NoteHub.Token != "s3cret" {
		t.Errorf("token = %q", cfg.NoteHub.Token)
	}
	if cfg.NoteHub.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.NoteHub.Timeout)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.View.SearchDebounce != 500*time.Millisecond || cfg.View.StaleTime != 30*time.Second {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.Auth.Mode != AuthModeDisabled {
		t.Errorf("auth mode = %q", cfg.Auth.Mode)
	}
}
