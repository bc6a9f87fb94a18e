package fanout

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/brickfield/appraisal/pkg/logger"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals // standard upgrader config
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsSubscriber adapts one websocket connection to the Subscriber interface.
// Writes are serialized: gorilla connections allow a single writer.
type wsSubscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSubscriber) ID() string { return s.id }

func (s *wsSubscriber) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// Handler upgrades HTTP requests to websocket subscribers on the manager.
func Handler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.Get().Named("fanout")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn(ctx, "websocket upgrade failed", logger.Error(err))
			return
		}

		sub := &wsSubscriber{id: uuid.NewString(), conn: conn}
		m.Add(ctx, sub)
		m.SendTo(ctx, sub.ID(), ConnectionAck(m.Count()))

		// Reader loop: subscribers are write-only from our side, but the
		// read pump is what detects the peer going away.
		go func() {
			defer func() {
				m.Remove(ctx, sub.ID())
				_ = conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
