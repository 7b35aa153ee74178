package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-property-search/internal/adapter/store"
	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/filter"
	"github.com/arturoeanton/go-property-search/internal/intent"
	"github.com/arturoeanton/go-property-search/internal/listing"
	"github.com/arturoeanton/go-property-search/internal/middleware"
	"github.com/arturoeanton/go-property-search/internal/scoring"
	"github.com/arturoeanton/go-property-search/internal/service"
)

var testJWT = middleware.JWTConfig{Secret: "handler-secret", Issuer: "property-search", ExpiresIn: time.Hour}

type staticSource struct{ listings []domain.Listing }

func (s staticSource) Name() string { return "static" }

func (s staticSource) LoadListings(context.Context) ([]domain.Listing, error) {
	return s.listings, nil
}

type fixture struct {
	app   *fiber.App
	store *store.SQLiteStore
}

func sampleListings() []domain.Listing {
	var out []domain.Listing
	for i := 0; i < 8; i++ {
		out = append(out, domain.Listing{
			ID:           fmt.Sprintf("p-%d", i),
			Title:        fmt.Sprintf("Marina home %d", i),
			Price:        domain.Float(1_200_000 + float64(i)*100_000),
			Community:    "Dubai Marina",
			City:         "Dubai",
			PropertyType: "Apartment",
			Bedrooms:     2,
			SizeSqft:     domain.Float(1100),
			Status:       "Ready",
			Featured:     i < 3,
		})
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	repo := listing.NewRepository()
	repo.Replace(sampleListings(), "test")
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	recommender := service.NewRecommendService(repo, filter.NewPipeline(filter.WithLogger(quiet)), scoring.NewEngine())
	search := service.NewSearchService(intent.NewParser(), recommender, nil, time.Second)
	leads := service.NewLeadService(st, nil, nil)
	shortlists := service.NewShortlistService(st, nil, recommender)
	refresher := service.NewRefresher(staticSource{listings: sampleListings()[:5]}, nil, repo, nil, 0, time.Second)
	t.Cleanup(refresher.Wait)

	app := fiber.New()
	app.Use(middleware.TraceMiddleware())
	api := app.Group("/api")
	NewHealthHandler("test", recommender, "none").Register(api)
	NewChatHandler(search, recommender, st).Register(api)
	leadHandler := NewLeadHandler(leads, st)
	leadHandler.Register(api)
	NewShortlistHandler(shortlists, st).Register(api)

	admin := api.Group("/admin", middleware.JWTMiddleware(testJWT), middleware.RequireAdmin())
	leadHandler.RegisterAdmin(admin)
	NewRefreshHandler(refresher, recommender, st).Register(admin)
	NewAuditHandler(st).Register(admin)

	return &fixture{app: app, store: st}
}

func (f *fixture) do(t *testing.T, method, target string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func adminToken(t *testing.T) string {
	token, err := middleware.GenerateJWT("ops", "Ops", domain.RoleAdmin, testJWT)
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, float64(8), out["listings"])
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/api/chat", fiber.Map{"message": "2 bed apartment in dubai marina", "limit": 3}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out service.SearchResult
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Recommendations, 3)
	assert.Equal(t, 8, out.Pagination.Total)
	assert.True(t, out.Pagination.HasMore)
	assert.NotEmpty(t, out.Text)
	require.NotNil(t, out.Intent.Location)
	assert.Equal(t, "Dubai Marina", *out.Intent.Location)
}

func TestChat_OffsetPastEnd(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/api/chat", fiber.Map{"message": "apartment in dubai marina", "offset": math.MaxInt}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out service.SearchResult
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Empty(t, out.Recommendations)
	assert.False(t, out.Pagination.HasMore)
}

func TestChat_Validation(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/chat", fiber.Map{"message": "   "}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/chat", fiber.Map{"message": strings.Repeat("a", 501)}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/chat", fiber.Map{"message": "villa", "limit": 101}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestFeaturedAndProperty(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/featured?limit=2", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var featured []domain.Listing
	require.NoError(t, json.Unmarshal(body, &featured))
	require.Len(t, featured, 2)
	assert.Equal(t, "p-0", featured[0].ID)

	resp, body = f.do(t, http.MethodGet, "/api/properties/p-4", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var l domain.Listing
	require.NoError(t, json.Unmarshal(body, &l))
	assert.Equal(t, "Marina home 4", l.Title)

	resp, _ = f.do(t, http.MethodGet, "/api/properties/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLead(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/lead", fiber.Map{
		"name": "Aisha", "contact": "aisha@example.com", "interest": "2BR in Marina",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, service.LeadSavedMessage, out["message"])

	resp, _ = f.do(t, http.MethodPost, "/api/lead", fiber.Map{"name": "A", "contact": "x", "interest": "y"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/admin/leads", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/admin/leads", nil, adminToken(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Leads []domain.Lead `json:"leads"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "Aisha", list.Leads[0].Name)
}

func TestShortlist(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/shortlist/share", fiber.Map{"property_ids": []string{"p-5", "p-1", "gone"}}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var share service.ShareResult
	require.NoError(t, json.Unmarshal(body, &share))
	assert.Len(t, share.ShareID, 8)
	assert.Equal(t, "/compare?share_id="+share.ShareID, share.ShareURL)
	assert.Equal(t, 3, share.PropertyCount)

	resp, body = f.do(t, http.MethodGet, "/api/shortlist/share/"+share.ShareID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var props []domain.Listing
	require.NoError(t, json.Unmarshal(body, &props))
	require.Len(t, props, 2)
	assert.Equal(t, "p-5", props[0].ID)
	assert.Equal(t, "p-1", props[1].ID)

	resp, body = f.do(t, http.MethodGet, "/api/shortlist/share/unknown1", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "Shortlist not found or expired")

	resp, _ = f.do(t, http.MethodPost, "/api/shortlist/share", fiber.Map{"property_ids": []string{"a", "b", "c", "d", "e", "f"}}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAdminRefresh(t *testing.T) {
	f := newFixture(t)
	token := adminToken(t)

	resp, body := f.do(t, http.MethodPost, "/api/admin/refresh", nil, token)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var started map[string]string
	require.NoError(t, json.Unmarshal(body, &started))
	jobID := started["job_id"]
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		_, body := f.do(t, http.MethodGet, "/api/admin/refresh/"+jobID, nil, token)
		var job service.JobStatus
		return json.Unmarshal(body, &job) == nil && job.Done()
	}, 2*time.Second, 20*time.Millisecond)

	_, body = f.do(t, http.MethodGet, "/api/admin/refresh/"+jobID, nil, token)
	var job service.JobStatus
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, service.JobComplete, job.Status)
	assert.Equal(t, 5, job.Listings)
	assert.Equal(t, 8, job.Previous)

	resp, body = f.do(t, http.MethodGet, "/api/admin/refresh/"+jobID+"/stream", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "event: complete\n"))

	resp, _ = f.do(t, http.MethodGet, "/api/admin/refresh/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = f.do(t, http.MethodGet, "/api/admin/stats", nil, token)
	var stats service.RepositoryStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 5, stats.Listings)
	assert.Equal(t, "static", stats.Source)
}

func TestAdminAudit(t *testing.T) {
	f := newFixture(t)
	token := adminToken(t)

	f.do(t, http.MethodPost, "/api/shortlist/share", fiber.Map{"property_ids": []string{"p-1"}}, "")

	require.Eventually(t, func() bool {
		logs, err := f.store.ListAuditLogs(context.Background(), 10, domain.AuditActionShortlistShared)
		return err == nil && len(logs) == 1
	}, time.Second, 10*time.Millisecond)

	resp, body := f.do(t, http.MethodGet, "/api/admin/audit?action="+domain.AuditActionShortlistShared, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Logs  []domain.AuditLog `json:"logs"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "shortlist", out.Logs[0].Resource)
}
