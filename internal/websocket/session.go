package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/metrics"
	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

const handshakeTimeout = 15 * time.Second

var (
	// ErrClosed is returned by Listen when the node closes the stream.
	ErrClosed = errors.New("event stream closed")
	// ErrSubscription is returned when the node rejects a request.
	ErrSubscription = errors.New("subscription rejected")
)

// Conn is the subset of *websocket.Conn a Session needs.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Handler receives every frame that carries a result. Returning done stops
// Listen without error.
type Handler func(ctx context.Context, resp types.RPCResponse) (done bool, err error)

// Session is one event stream connection, owned by a single monitor.
type Session struct {
	conn    Conn
	name    string
	logger  *logrus.Entry
	writeMu sync.Mutex
	nextID  int
	closeMu sync.Once
}

// Dial opens the event stream at wsURL. name labels logs and metrics.
func Dial(ctx context.Context, wsURL, name string, logger *logrus.Entry) (*Session, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialer.Dial %s: %w", wsURL, err)
	}
	logger.WithField("url", wsURL).Info("connected to event stream")
	return NewSession(conn, name, logger), nil
}

// NewSession wraps an already open connection.
func NewSession(conn Conn, name string, logger *logrus.Entry) *Session {
	return &Session{
		conn:   conn,
		name:   name,
		logger: logger,
	}
}

// Subscribe sends one subscribe request and returns its request id.
func (s *Session) Subscribe(query string) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.nextID++
	req := types.NewSubscribeRequest(s.nextID, query)
	if err := s.conn.WriteJSON(req); err != nil {
		return 0, fmt.Errorf("conn.WriteJSON: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"id": req.ID, "query": query}).Info("subscribed")
	return req.ID, nil
}

// Listen reads frames until the handler is done, the handler fails, the
// stream ends or ctx is cancelled. Empty results are acknowledgements and are
// not passed on.
func (s *Session) Listen(ctx context.Context, handle Handler) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("%w: %v", ErrClosed, err)
			}
			return fmt.Errorf("conn.ReadMessage: %w", err)
		}

		var resp types.RPCResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			metrics.MessagesMalformed.WithLabelValues(s.name).Inc()
			s.logger.WithError(err).Warn("undecodable frame")
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("%w: request %d: %s", ErrSubscription, resp.ID, resp.Error)
		}
		if !resp.HasResult() {
			s.logger.WithField("id", resp.ID).Debug("subscription acknowledged")
			continue
		}

		metrics.MessagesReceived.WithLabelValues(s.name).Inc()
		done, err := handle(ctx, resp)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Close sends a close frame and releases the connection.
func (s *Session) Close() error {
	var err error
	s.closeMu.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
