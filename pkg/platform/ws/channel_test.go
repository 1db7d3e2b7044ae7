package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"auditrelay/pkg/correlation"
	"auditrelay/pkg/testutil"
)

const (
	testUserID    = "c2344d70-3707-4418-a9c9-dbdb8beca796"
	testSessionID = "8085b7d3-9472-470a-b914-d70071d2b072"
)

type ChannelSuite struct {
	suite.Suite
	interceptor *ChannelInterceptor
}

func TestChannelSuite(t *testing.T) {
	suite.Run(t, new(ChannelSuite))
}

func (s *ChannelSuite) SetupTest() {
	s.interceptor = NewChannelInterceptor(
		[]string{"projectId", "executionRequestId"},
		slog.New(slog.DiscardHandler),
	)
}

func (s *ChannelSuite) TestFrameHeaderFirstValueCaseInsensitive() {
	frame := &Frame{}
	frame.SetHeader("X-Project-Id", "first", "second")

	s.Equal("first", frame.Header("x-project-id"))
	s.Equal("", frame.Header("X-Execution-Request-Id"))
}

func (s *ChannelSuite) TestPreSendCopiesBusinessHeaders() {
	frame := &Frame{}
	frame.SetHeader("X-Project-Id", "p-1")
	frame.SetHeader("X-Execution-Request-Id", "er-1")

	ctx := s.interceptor.PreSend(context.Background(), frame)

	s.Equal("p-1", correlation.Get(ctx, "projectId"))
	s.Equal("er-1", correlation.Get(ctx, "executionRequestId"))
}

func (s *ChannelSuite) TestPreSendResolvesUserFromBearer() {
	frame := &Frame{}
	frame.SetHeader("Authorization", testutil.UserToken(s.T(), testUserID, testSessionID, "jdoe"))

	ctx := s.interceptor.PreSend(context.Background(), frame)

	s.Equal(testUserID, correlation.Get(ctx, correlation.KeyUserID))
}

func (s *ChannelSuite) TestPreSendSkipsMachineCallers() {
	frame := &Frame{}
	frame.SetHeader("Authorization", testutil.M2MToken(s.T(), "batch-runner"))

	ctx := s.interceptor.PreSend(context.Background(), frame)

	s.False(correlation.Has(ctx, correlation.KeyUserID))
}

func (s *ChannelSuite) TestPreSendBrokenTokenKeepsBusinessHeaders() {
	frame := &Frame{}
	frame.SetHeader("Authorization", "Bearer not-a-jwt")
	frame.SetHeader("X-Project-Id", "p-1")

	ctx := s.interceptor.PreSend(context.Background(), frame)

	s.False(correlation.Has(ctx, correlation.KeyUserID))
	s.Equal("p-1", correlation.Get(ctx, "projectId"))
}

func (s *ChannelSuite) TestPreSendClearsStaleScope() {
	scope := correlation.NewScope()
	scope.Put("projectId", "stale")
	scope.Put(correlation.KeyUserID, testUserID)
	ctx := correlation.WithScope(context.Background(), scope)

	out := s.interceptor.PreSend(ctx, &Frame{Command: "SEND"})

	s.False(correlation.Has(out, "projectId"))
	s.False(correlation.Has(out, correlation.KeyUserID))
}

func TestSessionRoundTrip(t *testing.T) {
	interceptor := NewChannelInterceptor([]string{"projectId"}, slog.New(slog.DiscardHandler))
	seen := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := Accept(w, r, interceptor, func(ctx context.Context, frame *Frame) error {
			seen <- correlation.Get(ctx, "projectId")
			return nil
		}, slog.New(slog.DiscardHandler))
		if err != nil {
			return
		}
		_ = session.Run(r.Context())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	frame := &Frame{Command: "SEND"}
	frame.SetHeader("X-Project-Id", "p-42")
	require.NoError(t, wsjson.Write(ctx, conn, frame))

	select {
	case got := <-seen:
		assert.Equal(t, "p-42", got)
	case <-ctx.Done():
		t.Fatal("frame was not handled in time")
	}
}
