package handler

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/server"
	"kmerzone/internal/features/promo/adapters"
	"kmerzone/internal/features/promo/domain"
	"kmerzone/internal/features/promo/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp() *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Use(identity.Middleware())
	NewPromoHandler(service.NewPromoService(adapters.NewMemoryStore(), nil)).Register(app)
	return app
}

func send(t *testing.T, app *fiber.App, method, path, role, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.HeaderActorID, "s1")
	req.Header.Set(identity.HeaderActorRole, role)
	req.Header.Set(identity.HeaderActorName, "Boutique Akwa")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestPromoHandler(t *testing.T) {
	app := setupApp()

	status, _ := send(t, app, "POST", "/promo-codes", "customer", `{"code":"x","kind":"fixed","value":"1"}`)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := send(t, app, "POST", "/promo-codes", "seller", `{"code":"akwa10","kind":"percentage","value":"10"}`)
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var p domain.PromoCode
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "AKWA10", p.Code)

	status, _ = send(t, app, "POST", "/promo-codes", "seller", `{"code":"AKWA10","kind":"fixed","value":"1"}`)
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = send(t, app, "POST", "/promo-codes/apply", "customer", `{"code":"Akwa10","subtotal":"10000"}`)
	require.Equal(t, fiber.StatusOK, status)
	var app1 domain.Application
	require.NoError(t, json.Unmarshal(body, &app1))
	assert.True(t, app1.Discount.Equal(decimal.NewFromInt(1000)))

	status, body = send(t, app, "POST", "/promo-codes/apply", "customer", `{"code":"nope","subtotal":"10000"}`)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	var errResp server.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "not_found", errResp.Reason)
	assert.Equal(t, "test-ray-id", errResp.RayID)

	status, body = send(t, app, "GET", "/promo-codes", "seller", "")
	require.Equal(t, fiber.StatusOK, status)
	var list []domain.PromoCode
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)
}
