package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/features/delivery/adapters"
	"kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/delivery/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp() *fiber.App {
	store := adapters.NewMemoryDirectory()
	app := fiber.New()
	app.Use(identity.Middleware())
	NewVendorHandler(service.NewVendorService(store, store)).Register(app)
	return app
}

func TestVendorHandler(t *testing.T) {
	app := setupApp()

	send := func(method, path, role, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(identity.HeaderActorID, "u1")
		req.Header.Set(identity.HeaderActorRole, role)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusForbidden, send("POST", "/vendors", "seller", `{"name":"A","city":"Douala"}`))
	assert.Equal(t, fiber.StatusBadRequest, send("POST", "/vendors", "admin", `{"name":"A"}`))
	assert.Equal(t, fiber.StatusOK, send("POST", "/vendors", "admin", `{"name":"A","city":"Douala"}`))
	assert.Equal(t, fiber.StatusNotFound, send("GET", "/vendors/B", "customer", ""))

	req := httptest.NewRequest("GET", "/vendors/A", nil)
	req.Header.Set(identity.HeaderActorID, "u1")
	req.Header.Set(identity.HeaderActorRole, "customer")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var v domain.Vendor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "Douala", v.City)
}
