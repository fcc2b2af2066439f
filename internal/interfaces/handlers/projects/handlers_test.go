package projects

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	projectsvc "streammap-backend/internal/application/projects"
	uploadsvc "streammap-backend/internal/application/uploads"
	"streammap-backend/internal/domain"
	"streammap-backend/internal/geo"
	"streammap-backend/internal/infrastructure/database"
	"streammap-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var oregon = geo.StaticCatalog{
	{ID: 41, Name: "Oregon", Geometry: orb.Polygon{{
		{-124.6, 41.99}, {-116.46, 41.99}, {-116.46, 46.0}, {-124.6, 46.0}, {-124.6, 41.99},
	}}},
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	author uuid.UUID
}

// setupProjectsTest mounts the project routes; the X-User and X-Role headers stand in
// for the session middleware.
func setupProjectsTest(t *testing.T) *testEnv {
	t.Helper()
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"signedUrl": "https://storage.test" + r.URL.Path + "?token=t"})
	}))
	t.Cleanup(storage.Close)

	db := database.OpenTest(t)
	svc := &projectsvc.Service{
		DB:       db,
		Pipeline: projectsvc.NewPipeline(&geo.Resolver{Catalog: oregon}),
		Photos: &uploadsvc.Service{
			Client:     &uploadsvc.HTTPClient{BaseURL: storage.URL, SecretKey: "secret"},
			StorageURL: storage.URL,
			Bucket:     "project-photos",
		},
	}
	h := &Handlers{Service: svc}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-User"); id != "" {
			c.Locals("user", map[string]interface{}{"user_id": id, "role": c.Get("X-Role")})
		}
		return c.Next()
	})
	app.Get("/api/v1/projects", h.List)
	app.Get("/api/v1/projects/stats", h.Stats)
	app.Get("/api/v1/projects/markers", h.Markers)
	app.Get("/api/v1/projects/:id", h.Get)
	app.Post("/api/v1/projects", h.Create)
	app.Put("/api/v1/projects/:id", h.Update)
	app.Delete("/api/v1/projects/:id", h.Delete)
	return &testEnv{app: app, db: db, author: uuid.New()}
}

func (e *testEnv) do(t *testing.T, method, path, body string, user uuid.UUID, role string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req.Header.Set("X-User", user.String())
		req.Header.Set("X-Role", role)
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

// Bare numeric literals keep their digits; they never pass through float64.
const whychusBody = `{
	"name": "Whychus Creek Restoration",
	"stream_name": "Whychus Creek",
	"implementation_date": "2018-10-05",
	"primary_contact": "Jane Doe",
	"narrative": "Beaver dam analogs installed along the reach.",
	"structure_description": "Post-assisted log structures",
	"watershed": "Deschutes",
	"url": "https://example.org/whychus",
	"length": 15234,
	"number_of_structures": "12",
	"latitude": 44.0429694,
	"longitude": -121.3334816
}`

func (e *testEnv) create(t *testing.T) string {
	t.Helper()
	code, out := e.do(t, "POST", "/api/v1/projects", whychusBody, e.author, constants.Contributor)
	require.Equal(t, fiber.StatusCreated, code, out)
	project := out["data"].(map[string]interface{})["project"].(map[string]interface{})
	return project["project_id"].(string)
}

func errorMessages(out map[string]interface{}) map[string][]string {
	got := map[string][]string{}
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	for _, raw := range details["errors"].([]interface{}) {
		e := raw.(map[string]interface{})
		got[e["field"].(string)] = append(got[e["field"].(string)], e["message"].(string))
	}
	return got
}

func TestCreate_RoundsCoordinatesAndResolvesState(t *testing.T) {
	env := setupProjectsTest(t)
	id := env.create(t)

	code, out := env.do(t, "GET", "/api/v1/projects/"+id, "", uuid.Nil, "")
	require.Equal(t, fiber.StatusOK, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "44.042969", data["latitude"])
	assert.Equal(t, "-121.333482", data["longitude"])
	assert.Equal(t, float64(41), data["state_id"])
	assert.Equal(t, "Project on Whychus Creek", data["title"])
	assert.Equal(t, "Implemented on October 5, 2018", data["byline"])
	assert.Equal(t, env.author.String(), data["author_id"])
}

func TestCreate_RequiresUser(t *testing.T) {
	env := setupProjectsTest(t)
	code, _ := env.do(t, "POST", "/api/v1/projects", whychusBody, uuid.Nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestCreate_ValidationErrors(t *testing.T) {
	env := setupProjectsTest(t)
	code, out := env.do(t, "POST", "/api/v1/projects", `{"name":"x","length":"abc","latitude":"91","longitude":""}`, env.author, constants.Contributor)
	require.Equal(t, fiber.StatusUnprocessableEntity, code)
	msgs := errorMessages(out)
	assert.Equal(t, []string{projectsvc.MsgBlank}, msgs["stream_name"])
	assert.Equal(t, []string{projectsvc.MsgBlank}, msgs["longitude"])
	assert.NotEmpty(t, msgs["latitude"])
	assert.NotEmpty(t, msgs["length"])

	var n int64
	require.NoError(t, env.db.Model(&domain.Project{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreate_MalformedOrganizationID(t *testing.T) {
	env := setupProjectsTest(t)
	body := `{"organization_ids":["nope"]}`
	code, out := env.do(t, "POST", "/api/v1/projects", body, env.author, constants.Contributor)
	require.Equal(t, fiber.StatusUnprocessableEntity, code)
	assert.Equal(t, []string{projectsvc.MsgUnknownOrgRef}, errorMessages(out)["organization_ids"])
}

func TestCreate_WithPhotosReturnsUploadSlots(t *testing.T) {
	env := setupProjectsTest(t)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(whychusBody), &body))
	body["photos"] = []map[string]interface{}{{"file_name": "weir.png", "content_type": "image/png", "size": 2048}}
	b, _ := json.Marshal(body)

	code, out := env.do(t, "POST", "/api/v1/projects", string(b), env.author, constants.Contributor)
	require.Equal(t, fiber.StatusCreated, code, out)
	uploads := out["data"].(map[string]interface{})["uploads"].([]interface{})
	require.Len(t, uploads, 1)
	slot := uploads[0].(map[string]interface{})
	assert.Equal(t, "weir.png", slot["file_name"])
	assert.Contains(t, slot["uploadUrl"], "/storage/v1/object/upload/sign/project-photos/")
	assert.Contains(t, slot["publicUrl"], "/storage/v1/object/public/project-photos/")
}

func TestUpdate_Authorization(t *testing.T) {
	env := setupProjectsTest(t)
	id := env.create(t)
	body := `{"name":"Renamed","stream_name":"Whychus Creek","implementation_date":"2018-10-05",
		"primary_contact":"Jane Doe","narrative":"n","structure_description":"s","watershed":"Deschutes",
		"url":"https://example.org","length":"100","number_of_structures":"1","latitude":"44.5","longitude":"-121.5"}`

	code, _ := env.do(t, "PUT", "/api/v1/projects/"+id, body, uuid.New(), constants.Contributor)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, out := env.do(t, "PUT", "/api/v1/projects/"+id, body, uuid.New(), constants.Admin)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Renamed", out["data"].(map[string]interface{})["project"].(map[string]interface{})["name"])

	code, _ = env.do(t, "PUT", "/api/v1/projects/"+uuid.New().String(), body, env.author, constants.Contributor)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestListStatsMarkers(t *testing.T) {
	env := setupProjectsTest(t)
	id := env.create(t)

	code, out := env.do(t, "GET", "/api/v1/projects?search=Whychus", "", uuid.Nil, "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 1)
	assert.Equal(t, float64(1), out["metadata"].(map[string]interface{})["count"])

	code, out = env.do(t, "GET", "/api/v1/projects?search=nothing-matches", "", uuid.Nil, "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, out["data"])

	code, _ = env.do(t, "GET", "/api/v1/projects?organization_ids=bad", "", uuid.Nil, "")
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out = env.do(t, "GET", "/api/v1/projects/stats", "", uuid.Nil, "")
	require.Equal(t, fiber.StatusOK, code)
	stats := out["data"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["project_count"])
	assert.Equal(t, float64(12), stats["structure_sum"])
	assert.Equal(t, 15.2, stats["project_total_length_km"])

	code, out = env.do(t, "GET", "/api/v1/projects/markers", "", uuid.Nil, "")
	require.Equal(t, fiber.StatusOK, code)
	markers := out["data"].([]interface{})
	require.Len(t, markers, 1)
	assert.Equal(t, "/projects/"+id, markers[0].(map[string]interface{})["path"])
}

func TestDelete(t *testing.T) {
	env := setupProjectsTest(t)
	id := env.create(t)

	code, _ := env.do(t, "DELETE", "/api/v1/projects/"+id, "", env.author, constants.Admin)
	assert.Equal(t, fiber.StatusOK, code)
	code, _ = env.do(t, "GET", "/api/v1/projects/"+id, "", uuid.Nil, "")
	assert.Equal(t, fiber.StatusNotFound, code)
	code, _ = env.do(t, "DELETE", "/api/v1/projects/"+id, "", env.author, constants.Admin)
	assert.Equal(t, fiber.StatusNotFound, code)
	code, _ = env.do(t, "GET", "/api/v1/projects/not-a-uuid", "", uuid.Nil, "")
	assert.Equal(t, fiber.StatusNotFound, code)
}
