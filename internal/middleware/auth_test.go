package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/models"
)

// generateAPIKey generates a valid API key of specified length
func generateAPIKey(length int) string {
	key := make([]byte, length)
	for i := range key {
		key[i] = 'a' + byte(i%26)
	}
	return string(key)
}

func newAuthApp(cfg config.AuthConfig) *fiber.App {
	app := fiber.New()
	app.Use(APIKeyAuth(logging.NewNop(), cfg))
	app.Get("/v1/stats", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	return app
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected bool
	}{
		{"exactly 32 chars", generateAPIKey(32), true},
		{"longer than 32 chars", generateAPIKey(64), true},
		{"31 chars", generateAPIKey(31), false},
		{"empty", "", false},
		{"32 spaces", "                                ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAPIKey(tt.key); got != tt.expected {
				t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := map[string]string{
		"abcdefghijklmnop": "abcd****",
		"abcde":            "abcd****",
		"abcd":             "****",
		"":                 "****",
	}
	for key, want := range tests {
		if got := maskAPIKey(key); got != want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	app := newAuthApp(config.AuthConfig{Enabled: false})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/stats", nil))
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestAPIKeyAuth_Headers(t *testing.T) {
	validKey := generateAPIKey(40)
	app := newAuthApp(config.AuthConfig{Enabled: true, APIKeys: []string{validKey}})

	tests := []struct {
		name       string
		headerName string
		headerVal  string
		wantStatus int
	}{
		{"X-API-Key header", "X-API-Key", validKey, fiber.StatusOK},
		{"Authorization Bearer header", "Authorization", "Bearer " + validKey, fiber.StatusOK},
		{"Authorization plain header", "Authorization", validKey, fiber.StatusOK},
		{"missing key", "", "", fiber.StatusUnauthorized},
		{"wrong key", "X-API-Key", validKey + "x", fiber.StatusUnauthorized},
		{"prefix of valid key", "X-API-Key", validKey[:32], fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/stats", nil)
			if tt.headerName != "" {
				req.Header.Set(tt.headerName, tt.headerVal)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to test request: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status %d, got %d, body: %s", tt.wantStatus, resp.StatusCode, string(body))
			}
		})
	}
}

func TestAPIKeyAuth_UnauthorizedBody(t *testing.T) {
	app := newAuthApp(config.AuthConfig{Enabled: true, APIKeys: []string{generateAPIKey(32)}})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/stats", nil))
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var errResp models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if errResp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("Expected code UNAUTHORIZED, got %q", errResp.Error.Code)
	}
	if errResp.Error.Path != "/v1/stats" {
		t.Errorf("Expected path /v1/stats, got %q", errResp.Error.Path)
	}
}

func TestAPIKeyAuth_WeakKeysIgnored(t *testing.T) {
	weakKeys := []string{"a", "short", generateAPIKey(31)}
	app := newAuthApp(config.AuthConfig{Enabled: true, APIKeys: weakKeys})

	for _, weakKey := range weakKeys {
		req := httptest.NewRequest("GET", "/v1/stats", nil)
		req.Header.Set("X-API-Key", weakKey)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to test request: %v", err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("Weak key %q (len=%d) should be rejected, got status %d",
				maskAPIKey(weakKey), len(weakKey), resp.StatusCode)
		}
	}
}
