package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/keylcop/keylcop-tui/internal/credential"
	"github.com/keylcop/keylcop-tui/internal/notify"
	"github.com/keylcop/keylcop-tui/pkg/client"
	"github.com/keylcop/keylcop-tui/pkg/domain"
)

type view int

const (
	viewLogin view = iota
	viewDashboard
)

// streamOpenedMsg carries the result of opening the push stream.
type streamOpenedMsg struct {
	events <-chan []byte
	err    error
}

// streamEventMsg is one raw pushed payload from the live stream.
type streamEventMsg []byte

// streamClosedMsg signals that the transport ended the stream.
type streamClosedMsg struct{}

// loggedOutMsg signals that the best-effort server logout finished.
type loggedOutMsg struct{}

// App is the root Bubbletea model. Authentication state gates the
// stream controller's subscription lifecycle: a session brings the
// subscription up, losing it tears the subscription down.
type App struct {
	client *client.Client
	logger zerolog.Logger

	view     view
	login    loginModel
	dash     dashModel
	bell     bellModel
	bellOpen bool

	ctrl    *notify.Controller
	session *domain.Session
	events  <-chan []byte

	width  int
	height int
	frame  int // logo shimmer animation frame
}

// NewApp creates the TUI application. user is non-nil when a stored
// session was already validated; the app then starts authenticated.
func NewApp(c *client.Client, logger zerolog.Logger, user *domain.User) App {
	a := App{
		client: c,
		logger: logger.With().Str("component", "tui").Logger(),
		login:  newLoginModel(c),
		dash:   newDashModel(c, logger),
		bell:   newBellModel(logger),
	}
	if user != nil {
		a.session = &domain.Session{Token: c.Token(), User: *user}
		a.attachSession()
	}
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{shimmerTickCmd()}
	if a.ctrl != nil {
		cmds = append(cmds, connectStream(a.ctrl), a.dash.Init())
	} else {
		cmds = append(cmds, a.login.Init())
	}
	return tea.Batch(cmds...)
}

// attachSession builds a fresh controller for the current session and
// switches to the dashboard. Called once per transition into
// "authenticated".
func (a *App) attachSession() {
	a.ctrl = notify.New(a.client, notify.ClientStream(a.client), a.session.User, a.logger)
	a.bell.ctrl = a.ctrl
	a.view = viewDashboard
}

// connectStream opens the live subscription off the UI thread.
func connectStream(ctrl *notify.Controller) tea.Cmd {
	return func() tea.Msg {
		events, err := ctrl.Connect(context.Background())
		return streamOpenedMsg{events: events, err: err}
	}
}

// waitForEvent hands the next pushed payload to the update loop; the
// loop re-issues it after each message so events are processed one at
// a time, in delivery order.
func waitForEvent(events <-chan []byte) tea.Cmd {
	return func() tea.Msg {
		raw, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg(raw)
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + blank(1) + help(1)
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4}
		a.login, _ = a.login.Update(bodyMsg)
		a.dash, _ = a.dash.Update(bodyMsg)
		a.bell, _ = a.bell.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case authResultMsg:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		if msg.err != nil || msg.session == nil {
			return a, cmd
		}
		a.session = msg.session
		if msg.session.Token != "" {
			if err := credential.StoreToken(msg.session.Token); err != nil {
				a.logger.Warn().Err(err).Msg("storing session token failed")
			}
		}
		a.attachSession()
		return a, tea.Batch(cmd, connectStream(a.ctrl), a.dash.Init())

	case streamOpenedMsg:
		if msg.err != nil {
			// No auto-reconnect: the stream comes back on the next
			// transition into "authenticated" (e.g. next launch).
			a.logger.Error().Err(msg.err).Msg("push stream unavailable")
			return a, nil
		}
		a.events = msg.events
		return a, waitForEvent(a.events)

	case streamEventMsg:
		if a.ctrl != nil {
			a.ctrl.Handle(msg)
		}
		if a.session == nil || a.ctrl == nil {
			// De-authenticated while an event was in flight: stop the
			// wait loop, the subscription is already closed.
			return a, nil
		}
		return a, waitForEvent(a.events)

	case streamClosedMsg:
		if a.ctrl != nil {
			a.ctrl.StreamClosed()
		}
		return a, nil

	case loggedOutMsg:
		return a, nil

	case bellClosedMsg:
		a.bellOpen = false
		return a, nil

	case sentResultMsg, connectedUsersMsg:
		var cmd tea.Cmd
		a.dash, cmd = a.dash.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if cmd, handled := a.handleGlobalKey(msg); handled {
			return a, cmd
		}
	}

	if a.bellOpen {
		var cmd tea.Cmd
		a.bell, cmd = a.bell.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewDashboard:
		a.dash, cmd = a.dash.Update(msg)
	}
	return a, cmd
}

// handleGlobalKey routes keys that apply regardless of the focused
// view. Returns handled=false to let the active view consume the key.
func (a *App) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		a.teardown()
		return tea.Quit, true
	}

	if a.bellOpen || a.isEditing() {
		return nil, false
	}

	switch msg.String() {
	case "q":
		a.teardown()
		return tea.Quit, true
	case "b":
		if a.view == viewDashboard {
			a.bellOpen = true
			return nil, true
		}
	case "L":
		if a.view == viewDashboard {
			return a.logout(), true
		}
	}
	return nil, false
}

func (a *App) isEditing() bool {
	switch a.view {
	case viewLogin:
		return true
	case viewDashboard:
		return a.dash.editing
	}
	return false
}

// teardown releases the subscription before the program exits.
func (a *App) teardown() {
	if a.ctrl != nil {
		a.ctrl.Disconnect()
	}
}

// logout closes the stream and clears the list synchronously, then
// runs the best-effort server logout in the background. Local session
// state is gone regardless of what the server says.
func (a *App) logout() tea.Cmd {
	if a.ctrl != nil {
		a.ctrl.Reset()
	}
	a.ctrl = nil
	a.bell.ctrl = nil
	a.bellOpen = false
	a.session = nil
	a.events = nil
	a.view = viewLogin
	a.login = newLoginModel(a.client)

	c := a.client
	logger := a.logger
	serverLogout := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Logout(ctx); err != nil {
			logger.Warn().Err(err).Msg("server logout failed")
		}
		if err := credential.ClearToken(); err != nil {
			logger.Warn().Err(err).Msg("clearing stored token failed")
		}
		return loggedOutMsg{}
	}
	return tea.Batch(serverLogout, a.login.Init())
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	header := centerLine(logo, a.width)

	// User strip: viewer email + bell badge on the right
	var strip string
	if a.session != nil {
		strip = metaStyle.Render(a.session.User.Email)
		if badge := unreadBadge(a.unreadCount()); badge != "" {
			strip += " " + badge
		} else {
			strip += " " + dimStyle.Render("🔔")
		}
	}
	header += "\n" + centerLine(strip, a.width)

	var body, help string
	switch {
	case a.bellOpen && a.bell.detailID != "":
		body = a.bell.View()
		help = " " + helpEntry("c", "copy") + "  " + helpEntry("o", "open link") + "  " + helpEntry("esc", "back")
	case a.bellOpen:
		body = a.bell.View()
		help = " " + helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("r", "mark read") + "  " + helpEntry("C", "clear all") + "  " + helpEntry("esc", "close")
	case a.view == viewLogin:
		body = a.login.View()
		help = " " + helpEntry("tab", "field") + "  " + helpEntry("ctrl+t", "login/register") + "  " + helpEntry("enter", "submit") + "  " + helpEntry("ctrl+c", "quit")
	default:
		body = a.dash.View()
		if a.dash.editing {
			help = " " + helpEntry("tab", "field") + "  " + helpEntry("ctrl+t", "type") + "  " + helpEntry("enter", "send") + "  " + helpEntry("esc", "nav")
		} else {
			help = " " + helpEntry("enter", "edit") + "  " + helpEntry("b", "bell") + "  " + helpEntry("u", "autofill") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("L", "logout") + "  " + helpEntry("q", "quit")
		}
	}

	chrome := 4
	body = truncateToHeight(body, a.height-chrome)

	return fmt.Sprintf("%s\n%s\n%s", header, body, help)
}

func (a App) unreadCount() int {
	if a.ctrl == nil {
		return 0
	}
	return a.ctrl.UnreadCount()
}
