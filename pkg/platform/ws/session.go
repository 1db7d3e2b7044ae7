package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// HandlerFunc processes one inbound frame. The context carries the
// correlation scope populated by the channel interceptor.
type HandlerFunc func(ctx context.Context, frame *Frame) error

// Session owns one websocket connection and pumps its frames through the
// channel interceptor before handing them to the handler.
type Session struct {
	conn        *websocket.Conn
	interceptor *ChannelInterceptor
	handler     HandlerFunc
	logger      *slog.Logger
}

// Accept upgrades the request to a websocket and wraps it in a Session.
func Accept(w http.ResponseWriter, r *http.Request, interceptor *ChannelInterceptor, handler HandlerFunc, logger *slog.Logger) (*Session, error) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &Session{
		conn:        conn,
		interceptor: interceptor,
		handler:     handler,
		logger:      logger,
	}, nil
}

// Run reads frames until the connection or context closes. Handler errors
// are logged and do not terminate the session.
func (s *Session) Run(ctx context.Context) error {
	return s.RunWith(ctx, s.handler)
}

// RunWith is Run with a handler bound after construction, for handlers that
// need the session itself to reply.
func (s *Session) RunWith(ctx context.Context, handler HandlerFunc) error {
	defer s.conn.Close(websocket.StatusNormalClosure, "session closed")
	for {
		var frame Frame
		if err := wsjson.Read(ctx, s.conn, &frame); err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		fctx := s.interceptor.PreSend(ctx, &frame)
		if err := handler(fctx, &frame); err != nil {
			s.logger.Error("frame handler failed", "command", frame.Command, "error", err)
		}
	}
}

// Reply writes a frame back to the peer as JSON.
func (s *Session) Reply(ctx context.Context, frame *Frame) error {
	return wsjson.Write(ctx, s.conn, frame)
}
