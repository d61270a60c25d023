package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webagency/backend/internal/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newApp(issuer *auth.Issuer) *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTAuth(issuer), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})
	app.Get("/admin", JWTAuth(issuer), AdminAuth(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestJWTAuth(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	app := newApp(issuer)

	resp := get(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = get(t, app, "/me", "not-a-token")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	other, err := auth.NewIssuer("other", time.Hour).Issue("u1", auth.RoleUser)
	require.NoError(t, err)
	resp = get(t, app, "/me", other)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := issuer.Issue("u1", auth.RoleUser)
	require.NoError(t, err)
	resp = get(t, app, "/me", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminAuth(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	app := newApp(issuer)

	user, err := issuer.Issue("u1", auth.RoleUser)
	require.NoError(t, err)
	resp := get(t, app, "/admin", user)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	admin, err := issuer.Issue("admin@example.com", auth.RoleAdmin)
	require.NoError(t, err)
	resp = get(t, app, "/admin", admin)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"transactionId":"x","status":"completed"}`)
	sig := Sign("hook-secret", body)

	assert.True(t, ValidSignature("hook-secret", body, sig))
	assert.True(t, ValidSignature("hook-secret", body, "sha256="+sig))
	assert.False(t, ValidSignature("hook-secret", []byte(`{}`), sig))
	assert.False(t, ValidSignature("other", body, sig))
	assert.False(t, ValidSignature("hook-secret", body, "zz"))
	assert.False(t, ValidSignature("", body, sig))
}

func TestPaymentSignature(t *testing.T) {
	app := fiber.New()
	app.Post("/hook", PaymentSignature("hook-secret"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	disabled := fiber.New()
	disabled.Post("/hook", PaymentSignature(""), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	body := `{"ok":true}`
	post := func(app *fiber.App, sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
		req.Header.Set(SignatureHeader, sig)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusNoContent, post(app, Sign("hook-secret", []byte(body))))
	assert.Equal(t, fiber.StatusUnauthorized, post(app, Sign("wrong", []byte(body))))
	assert.Equal(t, fiber.StatusServiceUnavailable, post(disabled, Sign("", []byte(body))))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp := get(t, app, "/ok", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = get(t, app, "/boom", "")
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request", entries[0].Message)
	assert.Equal(t, "request rejected", entries[1].Message)
	assert.Equal(t, int64(fiber.StatusTeapot), entries[1].ContextMap()["status"])
}
