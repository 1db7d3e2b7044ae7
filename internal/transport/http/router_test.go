package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"auditrelay/internal/platform/metrics"
	"auditrelay/pkg/correlation"
	"auditrelay/pkg/testutil"
)

const (
	testUserID    = "c2344d70-3707-4418-a9c9-dbdb8beca796"
	testSessionID = "8085b7d3-9472-470a-b914-d70071d2b072"
	testProjectID = "3f1b8a5e-7ad4-4f3e-9a07-5f6d2c1b0e9a"
)

type recordedEmit struct {
	action string
	status int
	userID string
}

type fakeEmitter struct {
	emits []recordedEmit
}

func (f *fakeEmitter) Emit(ctx context.Context, _ *http.Request, status int) {
	f.emits = append(f.emits, recordedEmit{
		action: correlation.Get(ctx, correlation.KeyUserAction),
		status: status,
		userID: correlation.Get(ctx, correlation.KeyUserID),
	})
}

type RouterSuite struct {
	suite.Suite
	emitter *fakeEmitter
	router  http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.emitter = &fakeEmitter{}
	log := slog.New(slog.DiscardHandler)
	handler := NewHandler(log, []string{"projectId", "executionRequestId"}, "")
	s.router = NewRouter(handler, s.emitter, metrics.NewWith(prometheus.NewRegistry()))
}

func (s *RouterSuite) TestDashboardResolvesProjectFromPath() {
	req := httptest.NewRequest("GET", "/projects/"+testProjectID+"/dashboard", nil)
	req.Header.Set("Authorization", testutil.UserToken(s.T(), testUserID, testSessionID, "jdoe"))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(testProjectID, body["projectId"])
	s.Equal(testUserID, body["userId"])
}

func (s *RouterSuite) TestHeaderWinsOverPathVariable() {
	req := httptest.NewRequest("GET", "/projects/from-path/dashboard", nil)
	req.Header.Set("X-Project-Id", testProjectID)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(testProjectID, body["projectId"])
}

func (s *RouterSuite) TestStartRunEmitsTaggedAction() {
	req := httptest.NewRequest("POST", "/projects/"+testProjectID+"/runs", nil)
	req.Header.Set("Authorization", testutil.UserToken(s.T(), testUserID, testSessionID, "jdoe"))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusAccepted, rec.Code)
	s.Require().Len(s.emitter.emits, 1)
	s.Equal("Started run in project "+testProjectID, s.emitter.emits[0].action)
	s.Equal(http.StatusAccepted, s.emitter.emits[0].status)
	s.Equal(testUserID, s.emitter.emits[0].userID)
}

func (s *RouterSuite) TestOperationalEndpointsBypassThePipeline() {
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		s.Equal(http.StatusOK, rec.Code, path)
	}
	s.Empty(s.emitter.emits)
}

func (s *RouterSuite) TestRelayPropagatesScopeDownstream() {
	var seen http.Header
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer downstream.Close()

	log := slog.New(slog.DiscardHandler)
	handler := NewHandler(log, []string{"projectId"}, downstream.URL)
	router := NewRouter(handler, s.emitter, metrics.NewWith(prometheus.NewRegistry()))

	req := httptest.NewRequest("POST", "/relay", nil)
	req.Header.Set("X-Project-Id", testProjectID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal(testProjectID, seen.Get("X-Project-Id"))
}
