package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"demodesk/cache"
	"demodesk/config"
	"demodesk/core/auth"
	"demodesk/core/cleanup"
	"demodesk/core/hub"
	"demodesk/core/registry"
	"demodesk/core/review"
	"demodesk/model"
	"demodesk/storage"

	"github.com/gorilla/mux"
)

const testSecret = "test-jwt-secret"

type testAPI struct {
	router *mux.Router
	store  *storage.MemStore
	kv     *cache.MemKV

	assistantToken string
	ownerToken     string
}

// newTestAPI wires the full API over in-memory backends and a real
// allow-list file, mirroring the production route table.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	allowPath := filepath.Join(t.TempDir(), "staff.allowlist")
	content := "assistant@label.example assistant\nowner@label.example owner\n"
	if err := os.WriteFile(allowPath, []byte(content), 0644); err != nil {
		t.Fatalf("write allowlist: %v", err)
	}
	allow, err := config.LoadAllowlist(allowPath)
	if err != nil {
		t.Fatalf("load allowlist: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:        testSecret,
		AllowlistPath:    allowPath,
		DemoCacheTTL:     5 * time.Minute,
		CleanupRetention: 30 * 24 * time.Hour,
		CronSecret:       "cron-secret",
	}

	store := storage.NewMemStore()
	kv := cache.NewMemKV()
	demoCache := cache.NewDemoCache(kv, cfg.DemoCacheTTL)
	flags := cache.NewFlagStore(kv)
	updates := hub.NewHub()

	reviews := review.NewService(store, demoCache, nil, updates)
	artists := registry.NewArtistRegistry(store)
	events := registry.NewEventRegistry(store)
	sweeper := cleanup.NewSweeper(store, demoCache, cfg.CleanupRetention)

	h := NewAPIHandler(cfg, reviews, artists, events, flags, sweeper, allow, updates)

	router := mux.NewRouter()
	router.HandleFunc("/api/demos", h.AuthMiddleware(h.GetDemosHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/demos/{id}/assistant-action", h.AuthMiddleware(h.AssistantActionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/demos/{id}/owner-action", h.AuthMiddleware(h.OwnerActionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/artists", h.AuthMiddleware(h.ArtistsHandler)).
		Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	router.HandleFunc("/api/events", h.AuthMiddleware(h.EventsHandler)).
		Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	router.HandleFunc("/api/settings/demo-submission-enabled", h.AuthMiddleware(h.DemoSubmissionFlagHandler)).
		Methods(http.MethodGet, http.MethodPatch)
	router.HandleFunc("/api/cron/cleanup-rejected", h.CleanupRejectedHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/validate-email", h.ValidateEmailHandler).Methods(http.MethodGet)

	assistantToken, err := auth.GenerateToken(testSecret, "assistant@label.example", time.Hour)
	if err != nil {
		t.Fatalf("assistant token: %v", err)
	}
	ownerToken, err := auth.GenerateToken(testSecret, "owner@label.example", time.Hour)
	if err != nil {
		t.Fatalf("owner token: %v", err)
	}

	return &testAPI{
		router:         router,
		store:          store,
		kv:             kv,
		assistantToken: assistantToken,
		ownerToken:     ownerToken,
	}
}

func (a *testAPI) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (a *testAPI) seedDemo(t *testing.T, status, id string) {
	t.Helper()
	audio := review.StatusFolder(status) + "/20240301_090000_" + id + "_track.mp3"
	meta := model.DemoMetadata{ID: id, Title: "T", Artist: "A", SubmittedAt: "20240301_090000"}
	raw, _ := json.Marshal(meta)
	mod := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	a.store.Put(audio, []byte("x"), mod)
	a.store.Put(audio+".metadata.json", raw, mod)
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	if rec := a.do(t, http.MethodGet, "/api/demos", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", rec.Code)
	}

	outsider, err := auth.GenerateToken(testSecret, "stranger@label.example", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if rec := a.do(t, http.MethodGet, "/api/demos", outsider, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("non-allow-listed token: status %d, want 401", rec.Code)
	}

	forged, err := auth.GenerateToken("wrong-secret", "assistant@label.example", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if rec := a.do(t, http.MethodGet, "/api/demos", forged, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("forged token: status %d, want 401", rec.Code)
	}
}

func TestGetDemos(t *testing.T) {
	a := newTestAPI(t)
	a.seedDemo(t, model.StatusSubmitted, "demo1")

	rec := a.do(t, http.MethodGet, "/api/demos", a.assistantToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var result review.ListResult
	decode(t, rec, &result)
	if len(result.Demos) != 1 || result.Demos[0].ID != "demo1" {
		t.Errorf("unexpected listing: %+v", result.Demos)
	}
	if result.Cached {
		t.Error("first listing must not be cached")
	}
}

func TestAssistantAction(t *testing.T) {
	a := newTestAPI(t)
	a.seedDemo(t, model.StatusSubmitted, "demo1")

	rec := a.do(t, http.MethodPost, "/api/demos/demo1/assistant-action", a.assistantToken,
		map[string]string{"action": "like"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var result review.TransitionResult
	decode(t, rec, &result)
	if result.From != model.StatusSubmitted || result.To != model.StatusAssistantLiked {
		t.Errorf("result = %+v", result)
	}
	if result.EmailStatus == nil || result.EmailStatus.Sent {
		t.Errorf("without a mailer the email status should report the failure, got %+v", result.EmailStatus)
	}

	moved := review.StatusFolder(model.StatusAssistantLiked) + "/20240301_090000_demo1_track.mp3"
	if !a.store.Exists(moved) {
		t.Error("audio not moved by the action")
	}
}

func TestOwnerRouteRequiresOwnerRole(t *testing.T) {
	a := newTestAPI(t)
	a.seedDemo(t, model.StatusAssistantLiked, "demo1")

	rec := a.do(t, http.MethodPost, "/api/demos/demo1/owner-action", a.assistantToken,
		map[string]string{"action": "approve"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("assistant on owner route: status %d, want 403", rec.Code)
	}

	rec = a.do(t, http.MethodPost, "/api/demos/demo1/owner-action", a.ownerToken,
		map[string]string{"action": "approve"})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner approve: status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOwnerMayUseAssistantRoute(t *testing.T) {
	a := newTestAPI(t)
	a.seedDemo(t, model.StatusSubmitted, "demo1")

	rec := a.do(t, http.MethodPost, "/api/demos/demo1/assistant-action", a.ownerToken,
		map[string]string{"action": "like"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDemoActionErrors(t *testing.T) {
	a := newTestAPI(t)
	a.seedDemo(t, model.StatusSubmitted, "demo1")

	rec := a.do(t, http.MethodPost, "/api/demos/demo1/assistant-action", a.assistantToken,
		map[string]string{"action": "approve"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid action: status %d, want 400", rec.Code)
	}

	rec = a.do(t, http.MethodPost, "/api/demos/ghost/assistant-action", a.assistantToken,
		map[string]string{"action": "like"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown demo: status %d, want 404", rec.Code)
	}
}

func TestArtistCRUDOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	in := model.Artist{
		Name:       "Nocturne",
		Instagram:  "nocturne.music",
		SoundCloud: "https://soundcloud.com/nocturne",
		Spotify:    "https://open.spotify.com/artist/abc",
		Beatport:   "https://beatport.com/artist/nocturne/1",
	}
	rec := a.do(t, http.MethodPost, "/api/artists", a.ownerToken, in)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}
	var created model.Artist
	decode(t, rec, &created)
	if created.ID == "" {
		t.Fatal("created artist carries no id")
	}

	rec = a.do(t, http.MethodGet, "/api/artists", a.assistantToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var file model.ArtistFile
	decode(t, rec, &file)
	if len(file.Artists) != 1 || file.Artists[0].ID != created.ID {
		t.Errorf("unexpected roster: %+v", file)
	}

	in.Name = "Nocturne Renamed"
	rec = a.do(t, http.MethodPut, "/api/artists?id="+created.ID, a.ownerToken, in)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", rec.Code, rec.Body.String())
	}
	var updated model.Artist
	decode(t, rec, &updated)
	if updated.Name != "Nocturne Renamed" || updated.ID != created.ID {
		t.Errorf("unexpected update: %+v", updated)
	}

	rec = a.do(t, http.MethodDelete, "/api/artists?id="+created.ID, a.ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodDelete, "/api/artists?id="+created.ID, a.ownerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", rec.Code)
	}
}

func TestArtistValidationOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	in := model.Artist{Name: "", Instagram: "x"}
	rec := a.do(t, http.MethodPost, "/api/artists", a.ownerToken, in)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if !strings.Contains(resp["error"], "artist_name") {
		t.Errorf("error should name the field: %q", resp["error"])
	}

	if rec := a.do(t, http.MethodPut, "/api/artists", a.ownerToken, in); rec.Code != http.StatusBadRequest {
		t.Errorf("update without id: status %d, want 400", rec.Code)
	}
}

func TestEventCRUDOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	in := model.Event{
		Title:    "Warehouse Night",
		Location: "Amsterdam",
		Date:     "2024-09-14",
		Times:    "23:00-06:00",
		Artists:  "Nocturne",
	}
	rec := a.do(t, http.MethodPost, "/api/events", a.ownerToken, in)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}
	var created model.Event
	decode(t, rec, &created)

	in.Date = "14 September"
	if rec := a.do(t, http.MethodPost, "/api/events", a.ownerToken, in); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status %d, want 400", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/api/events", a.assistantToken, nil)
	var file model.EventFile
	decode(t, rec, &file)
	if len(file.Events) != 1 || file.Events[0].ID != created.ID {
		t.Errorf("unexpected listing: %+v", file)
	}

	if rec := a.do(t, http.MethodDelete, "/api/events?id="+created.ID, a.ownerToken, nil); rec.Code != http.StatusOK {
		t.Errorf("delete: status %d", rec.Code)
	}
}

func TestDemoSubmissionFlagOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/settings/demo-submission-enabled", a.ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var setting demoSubmissionSetting
	decode(t, rec, &setting)
	if !setting.Enabled {
		t.Error("flag must default to enabled")
	}

	rec = a.do(t, http.MethodPatch, "/api/settings/demo-submission-enabled", a.ownerToken,
		demoSubmissionSetting{Enabled: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/api/settings/demo-submission-enabled", a.assistantToken, nil)
	decode(t, rec, &setting)
	if setting.Enabled {
		t.Error("flag should read back disabled")
	}
}

func TestCronCleanupAuth(t *testing.T) {
	a := newTestAPI(t)
	old := review.StatusFolder(model.StatusRejected) + "/old.mp3"
	a.store.Put(old, []byte("x"), time.Now().Add(-60*24*time.Hour))

	if rec := a.do(t, http.MethodGet, "/api/cron/cleanup-rejected", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no secret: status %d, want 401", rec.Code)
	}
	if rec := a.do(t, http.MethodGet, "/api/cron/cleanup-rejected", "wrong", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status %d, want 401", rec.Code)
	}

	rec := a.do(t, http.MethodGet, "/api/cron/cleanup-rejected", "cron-secret", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var report cleanup.Report
	decode(t, rec, &report)
	if report.Deleted != 1 {
		t.Errorf("report = %+v, want one deletion", report)
	}
	if a.store.Exists(old) {
		t.Error("expired file survived the cron sweep")
	}
}

func TestValidateEmail(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/validate-email?email=owner@label.example", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp map[string]interface{}
	decode(t, rec, &resp)
	if resp["valid"] != true || resp["role"] != "owner" {
		t.Errorf("unexpected response: %v", resp)
	}

	rec = a.do(t, http.MethodGet, "/api/validate-email?email=stranger@label.example", "", nil)
	decode(t, rec, &resp)
	if resp["valid"] != false {
		t.Errorf("unknown email should be invalid: %v", resp)
	}

	if rec := a.do(t, http.MethodGet, "/api/validate-email", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing email: status %d, want 400", rec.Code)
	}
}
