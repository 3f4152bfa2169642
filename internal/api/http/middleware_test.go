package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func newTestApp(t *testing.T) (*fiber.App, *observability.Metrics) {
	t.Helper()
	app := fiber.New()
	metrics := observability.NewMetrics()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	return app, metrics
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) errorEnvelope {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func TestErrorHandlingMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("domain errors map to their status and envelope", func(t *testing.T) {
		t.Parallel()
		app, _ := newTestApp(t)
		app.Get("/boom", func(c *fiber.Ctx) error {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": "t-1"})
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		envelope := decodeEnvelope(t, resp)
		require.Equal(t, "NOT_FOUND", envelope.Error.Code)
		require.Equal(t, "ticket not found", envelope.Error.Message)
		require.Equal(t, "t-1", envelope.Error.Details["ticket_id"])
	})

	t.Run("unknown errors become internal without leaking the cause", func(t *testing.T) {
		t.Parallel()
		app, _ := newTestApp(t)
		app.Get("/boom", func(c *fiber.Ctx) error {
			return io.ErrUnexpectedEOF
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		envelope := decodeEnvelope(t, resp)
		require.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
		require.Equal(t, "internal server error", envelope.Error.Message)
	})

	t.Run("panics are recovered into internal errors", func(t *testing.T) {
		t.Parallel()
		app, _ := newTestApp(t)
		app.Get("/panic", func(c *fiber.Ctx) error {
			panic("handler exploded")
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		envelope := decodeEnvelope(t, resp)
		require.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
	})

	t.Run("successful responses pass through untouched", func(t *testing.T) {
		t.Parallel()
		app, _ := newTestApp(t)
		app.Get("/ok", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"ok": true})
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
