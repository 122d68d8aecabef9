package nats

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/flightwatch/flight-replay/internal/replay"
	"github.com/flightwatch/flight-replay/internal/types"
)

const (
	// SubjectFramesPrefix is the subject prefix for rendered frames.
	// Each session publishes on replay.frames.<sessionID>.
	SubjectFramesPrefix = "replay.frames."

	// SubjectSessions carries session open/close notices.
	SubjectSessions = "replay.sessions"
)

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a new NATS client
func New(url string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	// Create streams if they don't exist
	streams := []*nats.StreamConfig{
		{
			Name:     "REPLAY_FRAMES",
			Subjects: []string{SubjectFramesPrefix + ">"},
			Storage:  nats.MemoryStorage,
			MaxAge:   time.Hour,
		},
		{
			Name:     "REPLAY_SESSIONS",
			Subjects: []string{SubjectSessions},
			Storage:  nats.FileStorage,
			MaxAge:   24 * time.Hour,
		},
	}
	for _, cfg := range streams {
		_, err = js.AddStream(cfg)
		if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
		}
	}

	return &Client{
		conn: nc,
		js:   js,
	}, nil
}

// PublishFrame publishes a rendered frame on the session's subject.
func (c *Client) PublishFrame(frame *replay.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	_, err = c.js.Publish(SubjectFramesPrefix+frame.SessionID, data)
	if err != nil {
		return fmt.Errorf("failed to publish frame: %w", err)
	}

	return nil
}

// PublishSessionNotice publishes a session open/close notice.
func (c *Client) PublishSessionNotice(notice types.SessionNotice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal session notice: %w", err)
	}

	_, err = c.js.Publish(SubjectSessions, data)
	if err != nil {
		return fmt.Errorf("failed to publish session notice: %w", err)
	}

	return nil
}

// SubscribeFrames subscribes to rendered frames for a session.
func (c *Client) SubscribeFrames(sessionID string, handler func(*replay.Frame)) error {
	_, err := c.js.Subscribe(SubjectFramesPrefix+sessionID, func(msg *nats.Msg) {
		var frame replay.Frame
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			log.Printf("Error unmarshaling frame: %v", err)
			return
		}
		handler(&frame)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	return nil
}

// SubscribeSessionNotices subscribes to session open/close notices.
func (c *Client) SubscribeSessionNotices(handler func(types.SessionNotice)) error {
	_, err := c.js.Subscribe(SubjectSessions, func(msg *nats.Msg) {
		var notice types.SessionNotice
		if err := json.Unmarshal(msg.Data, &notice); err != nil {
			log.Printf("Error unmarshaling session notice: %v", err)
			return
		}
		handler(notice)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
