package http_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/facturacion-fiscal/internal/interfaces/http"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(apphttp.RequestLogger(zerolog.New(&buf)))
	auth := apphttp.AuthMiddleware(testTokens(t))
	app.Get("/ok", auth, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/falla", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadGateway, "aguas abajo") })

	code, _ := get(t, app, "/ok", map[string]string{fiber.HeaderAuthorization: bearer(t, "consulta")})
	require.Equal(t, http.StatusNoContent, code)
	code, _ = get(t, app, "/falla", nil)
	require.Equal(t, http.StatusBadGateway, code)
	code, _ = get(t, app, "/ok", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	var lines []map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 3)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "/ok", lines[0]["path"])
	assert.EqualValues(t, 204, lines[0]["status"])
	assert.Equal(t, testCompanyID, lines[0]["company_id"])

	assert.Equal(t, "error", lines[1]["level"])
	assert.EqualValues(t, 502, lines[1]["status"])
	assert.Contains(t, lines[1]["error"], "aguas abajo")

	assert.Equal(t, "warn", lines[2]["level"])
	assert.NotContains(t, lines[2], "company_id")
}
