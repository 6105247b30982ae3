package middleware

import (
	"net"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/salesops/internal/config"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/services"
)

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	chain := append(handlers, func(c *fiber.Ctx) error {
		v, _ := c.Locals("apiVersion").(string)
		return c.SendString(v)
	})
	app.Get("/", chain...)
	return app
}

func TestVersionMiddleware(t *testing.T) {
	app := newApp(VersionMiddleware())

	tests := []struct {
		header string
		status int
	}{
		{"", fiber.StatusOK},
		{"1.0", fiber.StatusOK},
		{"1.0.0", fiber.StatusOK},
		{"2.0.0", fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("X-Api-Version", tt.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != tt.status {
			t.Errorf("header %q: expected %d, got %d", tt.header, tt.status, resp.StatusCode)
		}
		if tt.status == fiber.StatusOK && resp.Header.Get("X-Api-Version") != APIVersion {
			t.Errorf("header %q: expected echoed version %s, got %q", tt.header, APIVersion, resp.Header.Get("X-Api-Version"))
		}
	}
}

func TestAuthApproverDisabled(t *testing.T) {
	auth := services.NewAuthService(&config.Config{}, logger.Nop())
	app := newApp(AuthApprover(auth))

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected open route without authorizer, got %d", resp.StatusCode)
	}
}

func TestAuthApproverEnabled(t *testing.T) {
	dead, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	deadURL := "http://" + dead.Addr().String()
	dead.Close()

	live, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer live.Close()

	cfg := &config.Config{AuthzURL: deadURL, AuthzClientID: "test_client"}
	app := newApp(AuthApprover(services.NewAuthService(cfg, logger.Nop())))

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("expected 503 with authorizer down, got %d", resp.StatusCode)
	}

	// the failed init is retried once the authorizer comes up
	cfg.AuthzURL = "http://" + live.Addr().String()
	resp, err = app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("expected 403 without session cookie, got %d", resp.StatusCode)
	}
}
