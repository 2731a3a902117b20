package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/keylcop/keylcop-tui/pkg/domain"
)

type trackCall struct {
	notificationID string
	userID         int
	email          string
}

type fakeAPI struct {
	openedCalls []string
	readCalls   []string
	trackCalls  []trackCall
	err         error
}

func (f *fakeAPI) MarkNotificationAsOpened(_ context.Context, notificationID string) error {
	f.openedCalls = append(f.openedCalls, notificationID)
	return f.err
}

func (f *fakeAPI) MarkNotificationAsRead(_ context.Context, id string) error {
	f.readCalls = append(f.readCalls, id)
	return f.err
}

func (f *fakeAPI) TrackNotificationOpen(_ context.Context, notificationID string, userID int, email string) error {
	f.trackCalls = append(f.trackCalls, trackCall{notificationID, userID, email})
	return f.err
}

type fakeStream struct {
	ch     chan []byte
	closed int
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan []byte, 8)}
}

func (s *fakeStream) Events() <-chan []byte { return s.ch }
func (s *fakeStream) Close()                { s.closed++ }

func newTestController(api *fakeAPI, streams ...*fakeStream) *Controller {
	i := 0
	subscribe := func(context.Context) (Stream, error) {
		if i >= len(streams) {
			return nil, errors.New("no more streams")
		}
		s := streams[i]
		i++
		return s, nil
	}
	viewer := domain.User{ID: "u1", Email: "viewer@example.com"}
	return New(api, subscribe, viewer, zerolog.Nop())
}

func notificationEvent(id string) []byte {
	return []byte(fmt.Sprintf(`{"type":"notification","data":{"id":%q,"notificationId":%q,"type":"info","title":"T","content":"C","timestamp":"2024-01-01T00:00:00Z"}}`, id, id))
}

// checkInvariant fails the test if any list entry violates opened ⇒ read.
func checkInvariant(t *testing.T, c *Controller) {
	t.Helper()
	for _, n := range c.Notifications() {
		if n.Opened && !n.Read {
			t.Errorf("notification %s: opened=true but read=false", n.ID)
		}
	}
}

func TestHandle_NewestFirstOrdering(t *testing.T) {
	c := newTestController(&fakeAPI{})

	if !c.Handle(notificationEvent("n1")) {
		t.Fatal("Handle(n1) = false, want visible change")
	}
	if !c.Handle(notificationEvent("n2")) {
		t.Fatal("Handle(n2) = false, want visible change")
	}

	list := c.Notifications()
	if len(list) != 2 {
		t.Fatalf("list length = %d, want 2", len(list))
	}
	if list[0].ID != "n2" || list[1].ID != "n1" {
		t.Errorf("order = [%s %s], want newest first [n2 n1]", list[0].ID, list[1].ID)
	}
}

func TestHandle_ControlEventsDontChangeList(t *testing.T) {
	c := newTestController(&fakeAPI{})
	c.Handle(notificationEvent("n1"))

	for _, raw := range []string{
		`{"type":"connected","message":"SSE connected"}`,
		`{"type":"ping","timestamp":1700000000}`,
	} {
		if c.Handle([]byte(raw)) {
			t.Errorf("Handle(%s) = true, want no visible change", raw)
		}
	}
	if got := len(c.Notifications()); got != 1 {
		t.Errorf("list length = %d after control events, want 1", got)
	}
}

func TestHandle_ListLengthTracksNotificationEvents(t *testing.T) {
	c := newTestController(&fakeAPI{})

	events := [][]byte{
		[]byte(`{"type":"connected"}`),
		notificationEvent("n1"),
		[]byte(`{"type":"ping"}`),
		notificationEvent("n2"),
		[]byte(`{"type":"ping"}`),
		notificationEvent("n3"),
	}
	for _, raw := range events {
		c.Handle(raw)
	}
	if got := len(c.Notifications()); got != 3 {
		t.Errorf("list length = %d, want 3 (one per notification event)", got)
	}

	c.ClearAll()
	c.Handle(notificationEvent("n4"))
	if got := len(c.Notifications()); got != 1 {
		t.Errorf("list length = %d after clear + one event, want 1", got)
	}
}

func TestHandle_MalformedPayloadDropped(t *testing.T) {
	c := newTestController(&fakeAPI{})
	c.Handle(notificationEvent("n1"))

	if c.Handle([]byte(`{not json`)) {
		t.Error("Handle(malformed) = true, want false")
	}
	if c.Handle([]byte(`{"type":"notification"}`)) {
		t.Error("Handle(notification without data) = true, want false")
	}
	if c.Handle([]byte(`{"type":"mystery"}`)) {
		t.Error("Handle(unknown type) = true, want false")
	}
	if got := len(c.Notifications()); got != 1 {
		t.Errorf("list length = %d, want 1 (bad payloads dropped)", got)
	}
}

func TestHandle_NormalizesInboundRecords(t *testing.T) {
	c := newTestController(&fakeAPI{})

	// No id, no type, opened without read.
	c.Handle([]byte(`{"type":"notification","data":{"title":"T","opened":true}}`))

	list := c.Notifications()
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}
	n := list[0]
	if n.ID == "" {
		t.Error("ID empty, want a generated fallback id")
	}
	if n.NotificationID != n.ID {
		t.Errorf("NotificationID = %q, want it defaulted to ID %q", n.NotificationID, n.ID)
	}
	if n.Type != domain.TypeInfo {
		t.Errorf("Type = %q, want default %q", n.Type, domain.TypeInfo)
	}
	if !n.Read {
		t.Error("Read = false for an opened notification, want true")
	}
	checkInvariant(t, c)
}

func TestOpenScenario(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api)

	c.Handle([]byte(`{"type":"notification","data":{"id":"n1","notificationId":"n1","type":"error","title":"T","content":"C","timestamp":"2024-01-01T00:00:00Z","read":false,"opened":false}}`))
	if got := c.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount() = %d, want 1", got)
	}

	fire := c.Open("n1")
	if fire == nil {
		t.Fatal("Open(n1) = nil, want a backend action")
	}
	// Optimistic: flags flip before the backend call runs.
	n, ok := c.Get("n1")
	if !ok || !n.Opened || !n.Read {
		t.Fatalf("after Open: opened=%v read=%v, want both true before the backend call", n.Opened, n.Read)
	}
	if got := c.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount() = %d, want 0", got)
	}
	checkInvariant(t, c)

	fire(context.Background())
	if len(api.openedCalls) != 1 || api.openedCalls[0] != "n1" {
		t.Errorf("openedCalls = %v, want exactly [n1]", api.openedCalls)
	}
	if len(api.trackCalls) != 0 {
		t.Errorf("trackCalls = %v, want none without tracking enabled", api.trackCalls)
	}

	// Second open of an already-opened notification fires nothing.
	if again := c.Open("n1"); again != nil {
		t.Error("Open(n1) twice = non-nil, want nil (no re-fire)")
	}
	if len(api.openedCalls) != 1 {
		t.Errorf("openedCalls = %v after second open, want still one call", api.openedCalls)
	}
}

func TestOpen_FiresTrackingOnce(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api)

	c.Handle([]byte(`{"type":"notification","data":{"id":"n1","notificationId":"backend-7","type":"info","title":"T","trackingEnabled":true,"trackingCallbackUrl":"https://cb.example.com/open","metadata":{"targetUser":{"userId":42}}}}`))

	fire := c.Open("n1")
	if fire == nil {
		t.Fatal("Open(n1) = nil, want a backend action")
	}
	fire(context.Background())

	if len(api.trackCalls) != 1 {
		t.Fatalf("trackCalls = %v, want exactly one", api.trackCalls)
	}
	call := api.trackCalls[0]
	if call.notificationID != "backend-7" {
		t.Errorf("tracked notificationID = %q, want %q", call.notificationID, "backend-7")
	}
	if call.userID != 42 {
		t.Errorf("tracked userID = %d, want 42", call.userID)
	}
	if call.email != "viewer@example.com" {
		t.Errorf("tracked email = %q, want the viewer's", call.email)
	}
}

func TestOpen_BackendFailureIsNotRolledBack(t *testing.T) {
	api := &fakeAPI{err: errors.New("backend down")}
	c := newTestController(api)

	c.Handle(notificationEvent("n1"))
	fire := c.Open("n1")
	if fire == nil {
		t.Fatal("Open(n1) = nil, want a backend action")
	}
	fire(context.Background())

	// Local state stays flipped: eventual consistency with the backend
	// is intentional, reconciled only on the next full reload.
	n, _ := c.Get("n1")
	if !n.Opened || !n.Read {
		t.Errorf("after failed backend call: opened=%v read=%v, want both true", n.Opened, n.Read)
	}
}

func TestOpen_UnknownID(t *testing.T) {
	c := newTestController(&fakeAPI{})
	if fire := c.Open("ghost"); fire != nil {
		t.Error("Open(unknown) = non-nil, want nil")
	}
}

func TestMarkRead_WithoutOpen(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api)
	c.Handle(notificationEvent("n1"))

	fire := c.MarkRead("n1")
	if fire == nil {
		t.Fatal("MarkRead(n1) = nil, want a backend action")
	}
	n, _ := c.Get("n1")
	if !n.Read {
		t.Error("Read = false after MarkRead, want true")
	}
	if n.Opened {
		t.Error("Opened = true after MarkRead, want false (read without open is allowed)")
	}
	checkInvariant(t, c)

	fire(context.Background())
	if len(api.readCalls) != 1 || api.readCalls[0] != "n1" {
		t.Errorf("readCalls = %v, want exactly [n1]", api.readCalls)
	}
	if again := c.MarkRead("n1"); again != nil {
		t.Error("MarkRead(n1) twice = non-nil, want nil")
	}
}

func TestUnreadCountAndClearAll(t *testing.T) {
	c := newTestController(&fakeAPI{})
	for i := 1; i <= 3; i++ {
		c.Handle(notificationEvent(fmt.Sprintf("n%d", i)))
	}
	if got := c.UnreadCount(); got != 3 {
		t.Errorf("UnreadCount() = %d, want 3", got)
	}

	c.Open("n2")
	if got := c.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount() = %d after one open, want 2", got)
	}

	c.ClearAll()
	if got := c.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount() = %d after ClearAll, want 0", got)
	}
	if got := len(c.Notifications()); got != 0 {
		t.Errorf("list length = %d after ClearAll, want 0", got)
	}
}

func TestConnect_ClosesPriorSubscription(t *testing.T) {
	first := newFakeStream()
	second := newFakeStream()
	c := newTestController(&fakeAPI{}, first, second)

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if c.State() != StateReceiving {
		t.Fatalf("State() = %v, want receiving", c.State())
	}

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error: %v", err)
	}
	if first.closed == 0 {
		t.Error("first subscription not closed before opening the second")
	}
	if second.closed != 0 {
		t.Error("second subscription closed prematurely")
	}
}

func TestConnect_FailureLandsDisconnected(t *testing.T) {
	c := newTestController(&fakeAPI{}) // no streams: subscribe fails
	if _, err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect error")
	}
	if c.State() != StateDisconnected {
		t.Errorf("State() = %v after failed connect, want disconnected", c.State())
	}
}

func TestDisconnect_ClosesStreamAndRetainsList(t *testing.T) {
	stream := newFakeStream()
	c := newTestController(&fakeAPI{}, stream)

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	c.Handle(notificationEvent("n1"))

	c.Disconnect()
	if stream.closed == 0 {
		t.Error("subscription not closed on Disconnect")
	}
	if c.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", c.State())
	}
	if got := len(c.Notifications()); got != 1 {
		t.Errorf("list length = %d after Disconnect, want 1 (retained)", got)
	}
}

func TestReset_ClearsListOnLogout(t *testing.T) {
	stream := newFakeStream()
	c := newTestController(&fakeAPI{}, stream)

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	c.Handle(notificationEvent("n1"))

	c.Reset()
	if stream.closed == 0 {
		t.Error("subscription not closed on Reset")
	}
	if got := len(c.Notifications()); got != 0 {
		t.Errorf("list length = %d after Reset, want 0", got)
	}
}

func TestStreamClosed_NoAutoReconnect(t *testing.T) {
	stream := newFakeStream()
	c := newTestController(&fakeAPI{}, stream)

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	c.StreamClosed()
	if c.State() != StateDisconnected {
		t.Errorf("State() = %v after StreamClosed, want disconnected", c.State())
	}

	// Give any would-be reconnect a moment; the controller must stay put.
	time.Sleep(10 * time.Millisecond)
	if c.State() != StateDisconnected {
		t.Error("controller reconnected on its own, want no auto-reconnect")
	}
}
