// Package notify owns the live notification stream for the
// authenticated session: one subscription at a time, an in-memory list
// ordered by arrival, and the read/opened bookkeeping around it.
package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keylcop/keylcop-tui/pkg/client"
	"github.com/keylcop/keylcop-tui/pkg/domain"
)

// State is the controller's connection state.
type State int

const (
	// StateDisconnected is the initial and terminal state: no
	// subscription is open.
	StateDisconnected State = iota
	// StateConnecting is the window between requesting a subscription
	// and the transport confirming it.
	StateConnecting
	// StateReceiving is the steady state with a live subscription.
	StateReceiving
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReceiving:
		return "receiving"
	default:
		return "disconnected"
	}
}

// API is the slice of the backend client the controller needs for its
// mutation callbacks. *client.Client satisfies it.
type API interface {
	MarkNotificationAsOpened(ctx context.Context, notificationID string) error
	MarkNotificationAsRead(ctx context.Context, id string) error
	TrackNotificationOpen(ctx context.Context, notificationID string, userID int, email string) error
}

// Stream is a live push subscription. *client.Subscription satisfies it.
type Stream interface {
	Events() <-chan []byte
	Close()
}

// SubscribeFunc opens a new push stream for the current session.
type SubscribeFunc func(ctx context.Context) (Stream, error)

// ClientStream adapts the API client's Subscribe to the SubscribeFunc
// shape.
func ClientStream(c *client.Client) SubscribeFunc {
	return func(ctx context.Context) (Stream, error) {
		sub, err := c.Subscribe(ctx)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

// Controller maintains the single live subscription and the
// client-local notification list. It is owned by one goroutine (the UI
// event loop) and is not safe for concurrent use; the funcs returned by
// Open and MarkRead are the only pieces meant to run elsewhere.
type Controller struct {
	api       API
	subscribe SubscribeFunc
	viewer    domain.User
	logger    zerolog.Logger

	state State
	sub   Stream
	list  []domain.Notification
}

// New creates a controller for the given viewer. The viewer identity
// tags outgoing tracking callbacks.
func New(api API, subscribe SubscribeFunc, viewer domain.User, logger zerolog.Logger) *Controller {
	return &Controller{
		api:       api,
		subscribe: subscribe,
		viewer:    viewer,
		logger:    logger.With().Str("component", "notify").Logger(),
	}
}

// State returns the current connection state.
func (c *Controller) State() State { return c.state }

// Connect opens the push stream, closing any prior subscription first
// so at most one is ever live. It returns the raw event channel for the
// owner to drain; events are handed back in via Handle.
func (c *Controller) Connect(ctx context.Context) (<-chan []byte, error) {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.state = StateConnecting

	sub, err := c.subscribe(ctx)
	if err != nil {
		c.state = StateDisconnected
		c.logger.Error().Err(err).Msg("subscription failed")
		return nil, err
	}
	c.sub = sub
	c.state = StateReceiving
	c.logger.Info().Msg("subscription open")
	return sub.Events(), nil
}

// Handle processes one raw pushed payload: parse, classify, mutate.
// Returns whether visible state changed. Malformed payloads are dropped
// and logged; they never interrupt the stream.
func (c *Controller) Handle(raw []byte) bool {
	var event domain.StreamEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		c.logger.Error().Err(err).Str("payload", string(raw)).Msg("dropping malformed stream payload")
		return false
	}

	switch event.Type {
	case domain.EventNotification:
		if event.Data == nil {
			c.logger.Warn().Msg("notification event without data")
			return false
		}
		n := normalize(*event.Data)
		// Newest first: the list is ordered by arrival, not timestamp.
		c.list = append([]domain.Notification{n}, c.list...)
		c.logger.Debug().Str("id", n.ID).Str("type", n.Type).Msg("notification received")
		return true
	case domain.EventConnected:
		c.logger.Info().Str("message", event.Message).Msg("stream connected")
		return false
	case domain.EventPing:
		return false
	default:
		c.logger.Warn().Str("type", event.Type).Msg("dropping unknown stream event")
		return false
	}
}

// normalize repairs inbound records: every entry gets a stable local
// id, a backend-correlatable id, a type, and flags that respect
// opened ⇒ read.
func normalize(n domain.Notification) domain.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.NotificationID == "" {
		n.NotificationID = n.ID
	}
	if n.Type == "" {
		n.Type = domain.TypeInfo
	}
	if n.Opened {
		n.Read = true
	}
	return n
}

// StreamClosed records that the transport ended the subscription.
// No automatic reconnect: re-entering the authenticated transition is
// the caller's policy.
func (c *Controller) StreamClosed() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	if c.state != StateDisconnected {
		c.logger.Warn().Msg("stream closed")
	}
	c.state = StateDisconnected
}

// Disconnect closes the subscription synchronously. The list is
// retained; Reset is the explicit-logout path that also clears it.
func (c *Controller) Disconnect() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.state = StateDisconnected
}

// Reset tears down the subscription and clears the list. Used on
// explicit logout.
func (c *Controller) Reset() {
	c.Disconnect()
	c.list = nil
}

// Open marks the notification opened (and therefore read),
// optimistically and before any network. It returns a one-shot func
// that issues the backend mark-opened call and, when the sender asked
// for a receipt, exactly one tracking callback; nil when the
// notification is unknown or already opened, so a second open never
// re-fires the calls. Backend failures are logged, never rolled back:
// local state is the UI's source of truth until the next full reload.
func (c *Controller) Open(id string) func(context.Context) {
	i := c.index(id)
	if i < 0 || c.list[i].Opened {
		return nil
	}
	c.list[i].Opened = true
	c.list[i].Read = true

	n := c.list[i]
	api := c.api
	viewer := c.viewer
	logger := c.logger
	return func(ctx context.Context) {
		if err := api.MarkNotificationAsOpened(ctx, n.NotificationID); err != nil {
			logger.Error().Err(err).Str("id", n.ID).Msg("mark-opened failed")
		}
		if !n.TrackingEnabled || n.TrackingCallbackURL == "" {
			return
		}
		userID := 0
		if n.Metadata != nil && n.Metadata.TargetUser != nil {
			userID = n.Metadata.TargetUser.UserID
		}
		if err := api.TrackNotificationOpen(ctx, n.NotificationID, userID, viewer.Email); err != nil {
			logger.Error().Err(err).Str("id", n.ID).Msg("open tracking failed")
		}
	}
}

// MarkRead flips the read flag without an open action. Same one-shot
// contract as Open.
func (c *Controller) MarkRead(id string) func(context.Context) {
	i := c.index(id)
	if i < 0 || c.list[i].Read {
		return nil
	}
	c.list[i].Read = true

	n := c.list[i]
	api := c.api
	logger := c.logger
	return func(ctx context.Context) {
		if err := api.MarkNotificationAsRead(ctx, n.ID); err != nil {
			logger.Error().Err(err).Str("id", n.ID).Msg("mark-read failed")
		}
	}
}

// ClearAll empties the local list. View convenience only: nothing is
// marked read server-side.
func (c *Controller) ClearAll() {
	c.list = nil
}

// UnreadCount is derived on every call from the list.
func (c *Controller) UnreadCount() int {
	count := 0
	for _, n := range c.list {
		if !n.Read {
			count++
		}
	}
	return count
}

// Notifications returns a snapshot of the list, newest first.
func (c *Controller) Notifications() []domain.Notification {
	out := make([]domain.Notification, len(c.list))
	copy(out, c.list)
	return out
}

// Get returns the notification with the given local id.
func (c *Controller) Get(id string) (domain.Notification, bool) {
	if i := c.index(id); i >= 0 {
		return c.list[i], true
	}
	return domain.Notification{}, false
}

func (c *Controller) index(id string) int {
	for i, n := range c.list {
		if n.ID == id {
			return i
		}
	}
	return -1
}
