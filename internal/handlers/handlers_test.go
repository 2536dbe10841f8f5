package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/akilli-icerik/apiserver/config"
	"github.com/akilli-icerik/apiserver/internal/extract"
	"github.com/akilli-icerik/apiserver/internal/pool"
	"github.com/akilli-icerik/apiserver/internal/services"
	"github.com/akilli-icerik/apiserver/internal/store"
	"github.com/akilli-icerik/apiserver/types"
)

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractFile(ctx context.Context, filename string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, ok := extract.KindFor(filename); !ok {
		return "", fmt.Errorf("%w: %s", extract.ErrUnsupportedType, filepath.Ext(filename))
	}
	return s.text, nil
}

func (s *stubExtractor) ExtractRemoteVideo(ctx context.Context, url string) (string, error) {
	return s.text, s.err
}

type stubSummarizer struct {
	markdown string
	err      error
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.markdown, s.err
}

type stubArtifacts struct {
	locator string
	err     error
}

func (s *stubArtifacts) Store(ctx context.Context, namespace, baseName, content string) (string, error) {
	return s.locator, s.err
}

type stubRecorder struct {
	reports []types.Report
}

func (s *stubRecorder) Create(ctx context.Context, report types.Report) (types.Report, error) {
	report.ID = len(s.reports) + 1
	s.reports = append(s.reports, report)
	return report, nil
}

func (s *stubRecorder) ListByUser(ctx context.Context, userID, offset, limit int) ([]types.Report, error) {
	if offset >= len(s.reports) {
		return []types.Report{}, nil
	}
	end := offset + limit
	if end > len(s.reports) {
		end = len(s.reports)
	}
	return s.reports[offset:end], nil
}

type testApp struct {
	router      *chi.Mux
	userService *services.UserService
	extractor   *stubExtractor
	summarizer  *stubSummarizer
	artifacts   *stubArtifacts
	recorder    *stubRecorder
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fileStore, err := store.NewJSONFileStore(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	userService := services.NewUserService(fileStore, fileStore)

	app := &testApp{
		userService: userService,
		extractor:   &stubExtractor{text: "extracted"},
		summarizer:  &stubSummarizer{markdown: "# rapor"},
		artifacts:   &stubArtifacts{locator: "/reports/ali123/rapor.md"},
		recorder:    &stubRecorder{},
	}

	reportService := services.NewReportService(
		app.extractor,
		app.summarizer,
		app.artifacts,
		app.recorder,
		nil,
		pool.New(2),
		config.StoragePolicyIgnore,
		zerolog.Nop(),
	)

	authHandler := NewAuthHandler(userService)
	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRouter(router, userService)
	ReportRouter(router, reportService, authHandler.RequireAuth, 1<<20)
	app.router = router
	return app
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, handle, email, password string) string {
	t.Helper()

	body, _ := json.Marshal(RegisterRequest{UserIDStr: handle, Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	rec := a.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want bearer", resp.TokenType)
	}
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRegisterAndDuplicate(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "ali123", "ali@example.com", "s3cret")

	body, _ := json.Marshal(RegisterRequest{UserIDStr: "ali123", Email: "other@example.com", Password: "pw"})
	rec := app.do(t, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	body, _ := json.Marshal(RegisterRequest{UserIDStr: "", Email: "a@b.c", Password: "pw"})
	rec := app.do(t, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTokenEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "ali123", "ali@example.com", "s3cret")

	form := "username=ali123&password=s3cret"
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := app.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("token status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("token response = %+v", resp)
	}

	// Wrong password gets 401, never a hint about the handle.
	badForm := "username=ali123&password=wrong"
	req = httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(badForm))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = app.do(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rec.Code)
	}
}

func TestUsersMeRequiresToken(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(TokenHeader, "forged-token")
	rec = app.do(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(TokenHeader, token)
	rec = app.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var me MeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if me.UserIDStr != "ali123" || me.Email != "ali@example.com" {
		t.Fatalf("me response = %+v", me)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("me response leaks password material")
	}
}

func multipartUpload(t *testing.T, field, filename string, content []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for key, value := range extra {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeFileUpload(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	body, contentType := multipartUpload(t, "dosya", "ders.pdf", []byte("pdf bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TokenHeader, token)

	rec := app.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "ali123" {
		t.Fatalf("user_id = %q, want ali123", resp.UserID)
	}
	if resp.RaporMarkdown != "# rapor" {
		t.Fatalf("rapor_markdown = %q", resp.RaporMarkdown)
	}
	if resp.DosyaURL == nil || *resp.DosyaURL != "/reports/ali123/rapor.md" {
		t.Fatalf("dosya_url = %v", resp.DosyaURL)
	}

	if len(app.recorder.reports) != 1 {
		t.Fatalf("recorded reports = %d, want 1", len(app.recorder.reports))
	}
}

func TestAnalyzeRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartUpload(t, "dosya", "ders.pdf", []byte("x"), nil)
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)

	rec := app.do(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAnalyzeUnsupportedExtension(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	body, contentType := multipartUpload(t, "dosya", "notes.txt", []byte("plain text"), nil)
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TokenHeader, token)

	rec := app.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeNoInput(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	body, contentType := multipartUpload(t, "dosya", "", nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TokenHeader, token)

	rec := app.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeBothInputs(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	body, contentType := multipartUpload(t, "dosya", "ders.pdf", []byte("x"), map[string]string{
		"youtube_url": "https://youtube.com/watch?v=abc",
	})
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TokenHeader, token)

	rec := app.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeYouTubeURL(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	body, contentType := multipartUpload(t, "dosya", "", nil, map[string]string{
		"youtube_url": "https://youtube.com/watch?v=abc",
	})
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TokenHeader, token)

	rec := app.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	big := bytes.Repeat([]byte("x"), (1<<20)+1)
	body, contentType := multipartUpload(t, "dosya", "big.pdf", big, nil)
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TokenHeader, token)

	rec := app.do(t, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeEmptyExtraction(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")
	app.extractor.text = "   "

	body, contentType := multipartUpload(t, "dosya", "silence.mp3", []byte("x"), nil)
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TokenHeader, token)

	rec := app.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeStorageFailureStillReturnsReport(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")
	app.artifacts.locator = ""
	app.artifacts.err = fmt.Errorf("bucket gone")

	body, contentType := multipartUpload(t, "dosya", "ders.pdf", []byte("x"), nil)
	req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(TokenHeader, token)

	rec := app.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DosyaURL != nil {
		t.Fatalf("dosya_url = %v, want null", *resp.DosyaURL)
	}
	if !strings.Contains(rec.Body.String(), `"dosya_url":null`) {
		t.Fatalf("body %s does not carry an explicit null dosya_url", rec.Body.String())
	}
}

func TestMyReportsListsOwnReportsOnly(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	for i := 0; i < 3; i++ {
		body, contentType := multipartUpload(t, "dosya", fmt.Sprintf("ders%d.pdf", i), []byte("x"), nil)
		req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(TokenHeader, token)
		if rec := app.do(t, req); rec.Code != http.StatusOK {
			t.Fatalf("analyze %d status = %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/my-reports", nil)
	req.Header.Set(TokenHeader, token)
	rec := app.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var reports []types.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("decode reports: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("reports = %d, want 3", len(reports))
	}
	if strings.Contains(rec.Body.String(), `"user_id"`) {
		t.Fatal("report records leak internal user id")
	}
}

func TestMyReportsPagination(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ali123", "ali@example.com", "s3cret")

	for i := 0; i < 3; i++ {
		body, contentType := multipartUpload(t, "dosya", fmt.Sprintf("ders%d.pdf", i), []byte("x"), nil)
		req := httptest.NewRequest(http.MethodPost, "/analiz-et", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(TokenHeader, token)
		if rec := app.do(t, req); rec.Code != http.StatusOK {
			t.Fatalf("analyze %d status = %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/my-reports?skip=1&limit=1", nil)
	req.Header.Set(TokenHeader, token)
	rec := app.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var reports []types.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("decode reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}

	req = httptest.NewRequest(http.MethodGet, "/reports/my-reports?skip=-1", nil)
	req.Header.Set(TokenHeader, token)
	if rec := app.do(t, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative skip status = %d, want 400", rec.Code)
	}
}

func TestMyReportsRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/reports/my-reports", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
