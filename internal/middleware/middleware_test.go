package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"streammap-backend/internal/constants"
	roles "streammap-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb
}

// withUser injects a session user the way SessionStore does.
func withUser(id, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(userLocal, map[string]interface{}{"user_id": id, "role": role})
		return c.Next()
	}
}

func statusOf(t *testing.T, app *fiber.App, method, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestSessionStore_LoadsAndPersists(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	b, _ := json.Marshal(map[string]interface{}{"user": map[string]interface{}{"user_id": "u1", "role": roles.Admin}})
	require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+"abc", b, 0).Err())

	app := fiber.New()
	app.Use(SessionStore(rdb))
	app.Get("/who", func(c *fiber.Ctx) error {
		m, _ := GetUser(c).(map[string]interface{})
		if m == nil {
			return c.SendString("nobody")
		}
		return c.SendString(m["user_id"].(string))
	})
	app.Post("/login", func(c *fiber.Ctx) error {
		sid := RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: "u2", Role: roles.Viewer})
		return c.SendString(sid)
	})

	req := httptest.NewRequest("GET", "/who", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "u1", string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/who", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "nobody", string(body))

	resp, err = app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	sid, _ := io.ReadAll(resp.Body)
	stored, err := rdb.Get(ctx, SessionRedisPrefix+string(sid)).Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"user_id":"u2"`)
}

func TestCurrentUser(t *testing.T) {
	id := uuid.New()
	app := fiber.New()
	app.Get("/ok", withUser(id.String(), roles.Contributor), func(c *fiber.Ctx) error {
		got, role, ok := CurrentUser(c)
		if !ok || got != id || role != roles.Contributor {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/bad", withUser("not-a-uuid", roles.Admin), func(c *fiber.Ctx) error {
		if _, _, ok := CurrentUser(c); ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	assert.Equal(t, fiber.StatusOK, statusOf(t, app, "GET", "/ok"))
	assert.Equal(t, fiber.StatusOK, statusOf(t, app, "GET", "/bad"))
}

func TestRequireAuth(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app := fiber.New()
	app.Get("/anon", RequireAuth(), ok)
	app.Get("/user", withUser(uuid.NewString(), roles.Viewer), RequireAuth(), ok)

	assert.Equal(t, fiber.StatusUnauthorized, statusOf(t, app, "GET", "/anon"))
	assert.Equal(t, fiber.StatusOK, statusOf(t, app, "GET", "/user"))
}

func TestAuthorizePermission(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app := fiber.New()
	app.Post("/viewer", withUser("u", roles.Viewer), AuthorizePermission(constants.CreateProject), ok)
	app.Post("/contributor", withUser("u", roles.Contributor), AuthorizePermission(constants.CreateProject), ok)
	app.Delete("/contributor", withUser("u", roles.Contributor), AuthorizePermission(constants.DeleteProject), ok)
	app.Delete("/admin", withUser("u", roles.Admin), AuthorizePermission(constants.DeleteProject), ok)
	app.Get("/unknown", withUser("u", roles.Admin), AuthorizePermission("fly_drone"), ok)
	app.Get("/anon", AuthorizePermission(constants.ManageStates), ok)

	assert.Equal(t, fiber.StatusForbidden, statusOf(t, app, "POST", "/viewer"))
	assert.Equal(t, fiber.StatusOK, statusOf(t, app, "POST", "/contributor"))
	assert.Equal(t, fiber.StatusForbidden, statusOf(t, app, "DELETE", "/contributor"))
	assert.Equal(t, fiber.StatusOK, statusOf(t, app, "DELETE", "/admin"))
	assert.Equal(t, fiber.StatusInternalServerError, statusOf(t, app, "GET", "/unknown"))
	assert.Equal(t, fiber.StatusUnauthorized, statusOf(t, app, "GET", "/anon"))
}

func TestHealthMarker_CountsRequests(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	app := fiber.New()
	app.Use(HealthMarker(rdb))
	app.Get("/api/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/boom", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	statusOf(t, app, "GET", "/api/ok")
	statusOf(t, app, "GET", "/api/boom")
	statusOf(t, app, "GET", "/health/json")

	total, err := rdb.Get(ctx, KeyReqTotal).Int()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	failed, err := rdb.Get(ctx, KeyReqErrors).Int()
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	last, err := rdb.Get(ctx, KeyLastReq).Result()
	require.NoError(t, err)
	assert.Contains(t, last, "/api/boom")
}

func TestNewErrorHandler_RecordsServerErrors(t *testing.T) {
	rdb := newRedis(t)
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(rdb)})
	app.Use(Tracing())
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("database exploded") })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "nope") })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
	body, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Internal Server Error", out["error"].(map[string]interface{})["message"])

	assert.Equal(t, fiber.StatusNotFound, statusOf(t, app, "GET", "/missing"))

	entries, err := rdb.LRange(context.Background(), KeyErrorLog, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "database exploded")
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".streammap.org", DevPassword: "letmein"}))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	cases := []struct {
		name, method, origin, devPassword string
		want                              int
	}{
		{"no origin", "GET", "", "", fiber.StatusOK},
		{"suffix", "GET", "https://app.streammap.org", "", fiber.StatusOK},
		{"suffix preflight", "OPTIONS", "https://app.streammap.org", "", fiber.StatusNoContent},
		{"localhost preflight", "OPTIONS", "http://localhost:3000", "", fiber.StatusNoContent},
		{"dev password", "GET", "http://localhost:3000", "letmein", fiber.StatusOK},
		{"foreign", "GET", "https://evil.example", "", fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/x", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.devPassword != "" {
				req.Header.Set("dev-password", tc.devPassword)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
			if tc.want != fiber.StatusForbidden && tc.origin != "" {
				assert.Equal(t, tc.origin, resp.Header.Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestTracing_KeepsWellFormedIncomingID(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	incoming := uuid.NewString()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Trace-Id", incoming)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, incoming, string(body))
	assert.Equal(t, incoming, resp.Header.Get("X-Trace-Id"))

	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Trace-Id", "<script>")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_, perr := uuid.Parse(string(body))
	assert.NoError(t, perr)
}

func TestRouteLogger_StatusAndLevel(t *testing.T) {
	var buf bytes.Buffer
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	app := fiber.New()
	app.Use(Tracing(), RouteLogger())
	app.Get("/api/v1/projects", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/v1/projects/missing", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "nope") })
	app.Get("/api/v1/boom", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, p := range []string{"/api/v1/projects", "/api/v1/projects/missing", "/api/v1/boom", "/health/json"} {
		statusOf(t, app, "GET", p)
	}

	var lines []map[string]interface{}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 3, "health probes log below info")
	assert.Equal(t, "info", lines[0]["level"])
	assert.EqualValues(t, 200, lines[0]["status"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.EqualValues(t, 404, lines[1]["status"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.EqualValues(t, 500, lines[2]["status"])
	assert.NotEmpty(t, lines[2]["trace_id"])
}
