package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Subscription is a live handle to the server's push stream. A single
// reader goroutine parses the event-stream framing and delivers each
// complete data payload, raw, on Events. The channel closes when the
// transport errors out or Close is called; there is no reconnect.
type Subscription struct {
	events chan []byte
	done   chan struct{}
	body   io.ReadCloser
	cancel context.CancelFunc

	closeOnce sync.Once
}

// Subscribe opens the push stream for the current session. The caller
// owns the returned handle and must Close it when done; leaving it open
// leaks the connection.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	streamURL := c.baseURL + "/events"
	if c.token != "" {
		// The backend accepts the token either as a header or as a
		// query parameter; send both, cookie sessions ride the jar.
		streamURL += "?token=" + url.QueryEscape(c.token)
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("client.Subscribe: create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("client.Subscribe: do request: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := errorMessage(resp)
		resp.Body.Close() //nolint:errcheck
		cancel()
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("client.Subscribe: %w", &AuthError{StatusCode: resp.StatusCode, Message: msg})
		}
		return nil, fmt.Errorf("client.Subscribe: %w", &RequestError{StatusCode: resp.StatusCode, Message: msg})
	}

	sub := &Subscription{
		events: make(chan []byte, 16),
		done:   make(chan struct{}),
		body:   resp.Body,
		cancel: cancel,
	}
	go sub.read()
	return sub, nil
}

// Events delivers one raw data payload per pushed message. Closed on
// transport error and after Close.
func (s *Subscription) Events() <-chan []byte {
	return s.events
}

// Close tears the stream down. Idempotent and synchronous: after Close
// returns, no new event is ever delivered.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.body.Close() //nolint:errcheck // closing a dead stream
	})
}

// read parses event-stream framing: "data:" lines accumulate until a
// blank line terminates the message. Comment lines and other fields
// (event:, id:, retry:) carry nothing this client uses.
func (s *Subscription) read() {
	defer close(s.events)

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				payload := strings.Join(data, "\n")
				data = data[:0]
				select {
				case s.events <- []byte(payload):
				case <-s.done:
					return
				}
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// comment or unused field
		}
	}
	// Scanner error or EOF: either way the stream is over. The owner
	// observes the channel close and transitions to disconnected.
}
