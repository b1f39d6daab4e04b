package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.JobUpdateFeed = (*WSFeed)(nil)

const MessageTypeJobUpdate = "job_update"

// Message is a push frame; only job_update frames carry a job.
type Message struct {
	Type string             `json:"type"`
	Job  *adapter.JobUpdate `json:"job,omitempty"`
}

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// WSFeed consumes the processing service's websocket feed and reconnects
// with exponential backoff until ctx is done.
type WSFeed struct {
	url    string
	dialer *websocket.Dialer
	logger *zerolog.Logger
}

func NewWSFeed(url string, logger *zerolog.Logger) *WSFeed {
	l := logger.With().Str("component", "WSFeed").Logger()
	return &WSFeed{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: &l,
	}
}

func (f *WSFeed) Run(ctx context.Context, handle func(adapter.JobUpdate)) error {
	backoff := minBackoff
	for {
		connected, err := f.session(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = minBackoff
		}
		f.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("job update feed disconnected")

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// session reads frames until the connection drops. connected reports whether
// the dial succeeded.
func (f *WSFeed) session(ctx context.Context, handle func(adapter.JobUpdate)) (connected bool, err error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	f.logger.Info().Str("url", f.url).Msg("job update feed connected")

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, errors.New("closed by server")
			}
			return true, err
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Debug().Err(err).Msg("skip malformed frame")
			continue
		}
		if msg.Type != MessageTypeJobUpdate || msg.Job == nil || msg.Job.JobID == "" {
			continue
		}
		handle(*msg.Job)
	}
}
