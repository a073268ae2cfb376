// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-go/internal/auth"
	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/markup"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/session"
	"github.com/olegiv/folio-go/internal/storage"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/testutil"
	"github.com/olegiv/folio-go/internal/upload"
	"github.com/olegiv/folio-go/internal/version"
	"github.com/olegiv/folio-go/internal/workspace"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "correct-horse-battery"
)

// testEnv is a server wired like the real one, minus CSRF.
type testEnv struct {
	server  *httptest.Server
	client  *http.Client
	queries *store.Queries
	repo    *content.Repository
	reg     *workspace.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.TestDB(t)
	q := store.New(db)
	logger := testutil.TestLoggerSilent()

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := store.Seed(context.Background(), q, testEmail, hash); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	sm := session.New(db, true)
	ident := auth.NewSessionIdentity(sm, q)
	repo := content.NewRepository(q, logger)
	bucket, err := storage.NewFSBucket(t.TempDir(), "/storage")
	if err != nil {
		t.Fatalf("NewFSBucket: %v", err)
	}

	contentHandler := NewContentHandler(repo, cache.NewMemoryCache(time.Minute, 100), time.Minute, markup.New(), logger)
	reg := workspace.NewRegistry(workspace.Deps{
		Repository: repo,
		Uploads:    upload.New(bucket, repo.Photos, nil, logger),
		Identity:   ident,
		Logger:     logger,
		OnChange:   func(model.Collection) { contentHandler.Invalidate(context.Background()) },
	})
	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{MaxFailedAttempts: 3})

	authHandler := NewAuthHandler(auth.NewAuthenticator(q, logger), ident, lp, reg, logger)
	adminHandler := NewAdminHandler(reg, logger)
	healthHandler := NewHealthHandler(db.DB, ident, nil, t.TempDir(), version.Info{Version: "test"})

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Get("/login", authHandler.LoginForm)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)
	r.Get("/api/content", contentHandler.Content)
	r.Get("/health", healthHandler.Health)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(ident))
		r.Get("/admin", adminHandler.Snapshot)
		r.Route("/admin/api", func(r chi.Router) {
			r.Put("/settings", adminHandler.UpdateSettings)
			r.Get("/crop", adminHandler.CropSession)
			r.Post("/crop", adminHandler.BeginCrop)
			r.Post("/crop/commit", adminHandler.CommitCrop)
			r.Delete("/crop", adminHandler.CancelCrop)
			r.Get("/{collection}/form", adminHandler.OpenForm)
			r.Delete("/{collection}/form", adminHandler.CloseForm)
			r.Post("/{collection}", adminHandler.Create)
			r.Put("/{collection}/{id}", adminHandler.Update)
			r.Delete("/{collection}/{id}", adminHandler.Delete)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{server: srv, client: client, queries: q, repo: repo, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) json(t *testing.T, method, path string, v any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	resp := e.do(t, method, path, body, map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
	return resp, decodeBody(t, resp)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	form := url.Values{"email": {testEmail}, "password": {testPassword}}
	resp := e.do(t, http.MethodPost, "/login", strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func section(t *testing.T, body map[string]any, key string) map[string]any {
	t.Helper()
	m, ok := body[key].(map[string]any)
	if !ok {
		t.Fatalf("response has no %q object: %v", key, body)
	}
	return m
}

func rows(t *testing.T, snapshot map[string]any, key string) []any {
	t.Helper()
	list, ok := snapshot[key].([]any)
	if !ok {
		t.Fatalf("snapshot has no %q list: %v", key, snapshot)
	}
	return list
}

func jpegImage(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height)), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestAdminRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/admin", nil, nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("GET /admin status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	resp, _ = env.json(t, http.MethodGet, "/admin/api/skills/form", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("API status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestLoginPage(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/login", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `name="password"`) {
		t.Error("login form not rendered")
	}
}

func TestLoginAndSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.json(t, http.MethodGet, "/admin", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	snap := section(t, body, "snapshot")
	settings := section(t, snap, "settings")
	if settings["id"] != float64(model.SettingsID) {
		t.Errorf("settings id = %v", settings["id"])
	}
	if len(rows(t, snap, "skills")) != 0 {
		t.Error("expected no skills")
	}
}

func TestLoginJSON(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.json(t, http.MethodPost, "/login", credentials{Email: testEmail, Password: testPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["redirect"] != "/admin" {
		t.Errorf("redirect = %v", body["redirect"])
	}

	resp, _ = env.json(t, http.MethodGet, "/admin", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("session not established: status %d", resp.StatusCode)
	}
}

func TestLoginFailuresLockAccount(t *testing.T) {
	env := newTestEnv(t)
	bad := credentials{Email: testEmail, Password: "wrong-password"}

	resp, body := env.json(t, http.MethodPost, "/login", bad)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "2 attempts remaining") {
		t.Errorf("error = %q", msg)
	}

	env.json(t, http.MethodPost, "/login", bad)
	resp, _ = env.json(t, http.MethodPost, "/login", bad)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third failure status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}

	resp, body = env.json(t, http.MethodPost, "/login", credentials{Email: testEmail, Password: testPassword})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("locked login status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "locked") {
		t.Errorf("error = %q", msg)
	}
}

func TestLoginMissingFields(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/login", strings.NewReader("email="+url.QueryEscape(testEmail)),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Email and password are required") {
		t.Error("error not rendered on the login page")
	}
	if !strings.Contains(string(body), testEmail) {
		t.Error("email not kept in the form")
	}
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.json(t, http.MethodGet, "/admin", nil)
	if env.reg.Len() != 1 {
		t.Fatalf("workspaces = %d, want 1", env.reg.Len())
	}

	resp := env.do(t, http.MethodPost, "/logout", nil, nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	if env.reg.Len() != 0 {
		t.Errorf("workspace not dropped: %d left", env.reg.Len())
	}

	resp, _ = env.json(t, http.MethodGet, "/admin/api/skills/form", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSkillLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.json(t, http.MethodPost, "/admin/api/skills", model.Skill{Name: "Go", Level: 90})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d, body %v", resp.StatusCode, body)
	}
	skills := rows(t, section(t, body, "snapshot"), "skills")
	if len(skills) != 1 {
		t.Fatalf("skills = %d, want 1", len(skills))
	}
	id, _ := skills[0].(map[string]any)["id"].(string)
	if id == "" {
		t.Fatal("created skill has no id")
	}

	resp, body = env.json(t, http.MethodPut, "/admin/api/skills/"+id, model.Skill{Name: "Go", Level: 150})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %v", resp.StatusCode, body)
	}
	skill := rows(t, section(t, body, "snapshot"), "skills")[0].(map[string]any)
	if skill["level"] != float64(100) {
		t.Errorf("level = %v, want clamped to 100", skill["level"])
	}

	resp, _ = env.json(t, http.MethodDelete, "/admin/api/skills/"+id, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unconfirmed delete status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if list, _ := env.repo.Skills.List(context.Background()); len(list) != 1 {
		t.Fatalf("unconfirmed delete removed the row")
	}

	resp, body = env.json(t, http.MethodDelete, "/admin/api/skills/"+id+"?confirm=yes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, body %v", resp.StatusCode, body)
	}
	if len(rows(t, section(t, body, "snapshot"), "skills")) != 0 {
		t.Error("skill still listed after delete")
	}
}

func TestSubmitInvalidKeepsForm(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.json(t, http.MethodPost, "/admin/api/skills", model.Skill{Level: 40})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d (body %v)", resp.StatusCode, http.StatusUnprocessableEntity, body)
	}
	form := section(t, body, "form")
	draft := section(t, form, "draft")
	if draft["level"] != float64(40) {
		t.Errorf("draft level = %v, want 40", draft["level"])
	}

	resp, body = env.json(t, http.MethodGet, "/admin/api/skills/form", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("form status = %d", resp.StatusCode)
	}
	if section(t, section(t, body, "form"), "draft")["level"] != float64(40) {
		t.Error("failed draft not kept in the open form")
	}
}

func TestOpenFormForEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exp, err := env.repo.Experiences.Upsert(ctx, model.Experience{
		Title: "Engineer", Company: "Acme", YearStart: "2020", YearEnd: "2024", Description: "Built things",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	env.login(t)

	resp, body := env.json(t, http.MethodGet, "/admin/api/experiences/form?edit="+exp.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	form := section(t, body, "form")
	if form["edit_target_id"] != exp.ID {
		t.Errorf("edit_target_id = %v", form["edit_target_id"])
	}
	if section(t, form, "draft")["company"] != "Acme" {
		t.Error("draft not filled from the row")
	}

	resp, _ = env.json(t, http.MethodGet, "/admin/api/experiences/form?edit=missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing row status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	resp, _ = env.json(t, http.MethodGet, "/admin/api/nope/form", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown collection status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	draft := model.SiteSettings{
		IntroText:   "Hello\nWorld",
		SocialLinks: []model.SocialLink{{Name: "GitHub", URL: "https://github.com/example"}},
	}
	resp, body := env.json(t, http.MethodPut, "/admin/api/settings", draft)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}

	stored, err := env.repo.Settings.List(context.Background())
	if err != nil || len(stored) != 1 {
		t.Fatalf("List = %v, %v", stored, err)
	}
	if stored[0].IntroText != "Hello\nWorld" {
		t.Errorf("IntroText = %q", stored[0].IntroText)
	}
}

func TestCropFlow(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("destination", "profile")
	_ = mw.WriteField("display_width", "400")
	part, err := mw.CreateFormFile("file", "me.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write(jpegImage(t, 400, 300))
	_ = mw.Close()

	resp := env.do(t, http.MethodPost, "/admin/api/crop", &buf, map[string]string{"Content-Type": mw.FormDataContentType()})
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("begin status = %d, body %v", resp.StatusCode, body)
	}

	resp, body = env.json(t, http.MethodGet, "/admin/api/crop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d", resp.StatusCode)
	}
	if section(t, body, "crop")["destination"] != "profile" {
		t.Errorf("crop = %v", body["crop"])
	}

	resp, body = env.json(t, http.MethodPost, "/admin/api/crop/commit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("commit status = %d, body %v", resp.StatusCode, body)
	}
	photo, _ := section(t, body, "result")["url"].(string)
	if !strings.HasPrefix(photo, "/storage/") {
		t.Errorf("url = %q", photo)
	}

	resp, _ = env.json(t, http.MethodGet, "/admin/api/crop", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("session after commit status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp, _ = env.json(t, http.MethodPost, "/admin/api/crop/commit", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second commit status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestBeginCropRejectsBadDestination(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("destination", "banner")
	_ = mw.Close()

	resp := env.do(t, http.MethodPost, "/admin/api/crop", &buf, map[string]string{"Content-Type": mw.FormDataContentType()})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestPublicContentInvalidatedByChanges(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.json(t, http.MethodGet, "/api/content", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "max-age") {
		t.Errorf("Cache-Control = %q", cc)
	}
	if n := len(body["skills"].([]any)); n != 0 {
		t.Fatalf("skills = %d, want 0", n)
	}

	// Direct repository writes bypass the workspace and stay cached.
	if _, err := env.repo.Skills.Upsert(context.Background(), model.Skill{Name: "SQL", Level: 60}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	_, body = env.json(t, http.MethodGet, "/api/content", nil)
	if n := len(body["skills"].([]any)); n != 0 {
		t.Fatalf("cached skills = %d, want 0", n)
	}

	env.login(t)
	env.json(t, http.MethodPost, "/admin/api/skills", model.Skill{Name: "Go", Level: 90})

	_, body = env.json(t, http.MethodGet, "/api/content", nil)
	if n := len(body["skills"].([]any)); n != 2 {
		t.Errorf("skills after admin change = %d, want 2", n)
	}
}

func TestHealthPublicAndAdmin(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.json(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(body) != 1 || body["status"] == nil {
		t.Errorf("public health exposes details: %v", body)
	}

	env.login(t)
	_, body = env.json(t, http.MethodGet, "/health?verbose=true", nil)
	if body["version"] != "test" {
		t.Errorf("version = %v", body["version"])
	}
	checks := section(t, body, "checks")
	if section(t, checks, "database")["status"] != "healthy" {
		t.Errorf("database check = %v", checks["database"])
	}
	if body["system"] == nil {
		t.Error("verbose health has no system info")
	}
}
