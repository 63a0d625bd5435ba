package integration

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockfolio/internal/handlers"
	"stockfolio/internal/logger"
	"stockfolio/internal/middleware"
	"stockfolio/internal/quotes"
	"stockfolio/internal/reference"
	"stockfolio/internal/server"
	"stockfolio/internal/services"
	"stockfolio/internal/testutil"
	"stockfolio/internal/validator"
)

const pipelineKey = "test-pipeline-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Feed   *testutil.FakeFeed
	Quotes *testutil.FakeQuoteSource
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test", "")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite database, a fake corporate-action feed and a fake quote source.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	catalog := reference.NewDefaultCatalog()
	fakeFeed := testutil.NewFakeFeed()
	fakeQuotes := &testutil.FakeQuoteSource{Name: "brapi", Prices: map[string]string{}}
	resolver := quotes.NewResolver([]quotes.Source{fakeQuotes}, catalog, quotes.WithCacheTTL(0))

	// Services
	auditService := services.NewAuditService(db)
	distributionService := services.NewDistributionService(db, fakeFeed)
	holdingService := services.NewHoldingService(db, catalog, distributionService)
	quoteService := services.NewQuoteService(db, resolver, catalog, 0)

	router := server.NewRouter(server.Handlers{
		Holding:      handlers.NewHoldingHandler(holdingService, auditService, 1<<20),
		Distribution: handlers.NewDistributionHandler(distributionService, auditService),
		Quote:        handlers.NewQuoteHandler(quoteService, auditService),
	}, pipelineKey)

	return &testApp{DB: db, Router: router, Feed: fakeFeed, Quotes: fakeQuotes}
}

// token issues an access token for a fresh user id.
func (app *testApp) token(t *testing.T) (token, userID string) {
	t.Helper()
	userID = testutil.NewUserID()
	token, err := middleware.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token, userID
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// pipelineRequest makes an HTTP request authenticated with the pipeline API key.
func (app *testApp) pipelineRequest(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	req.Header.Set("X-API-Key", pipelineKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// upload posts content as the multipart "file" field.
func (app *testApp) upload(t *testing.T, path, filename, content, token string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// mustStatus fails the test when rec does not carry the expected status.
func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
