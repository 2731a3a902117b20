package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/keylcop/keylcop-tui/pkg/client"
	"github.com/keylcop/keylcop-tui/pkg/domain"
)

// notificationTypes is the cycle order for the send form's type field.
var notificationTypes = []string{
	domain.TypeInfo,
	domain.TypeSuccess,
	domain.TypeWarning,
	domain.TypeError,
	domain.TypeReleaseNotes,
}

// sentResultMsg carries the outcome of a send attempt.
type sentResultMsg struct {
	err error
}

// connectedUsersMsg carries the connected-users refresh result.
type connectedUsersMsg struct {
	users []string
	err   error
}

type dashField int

const (
	fieldTarget dashField = iota
	fieldMessage
	numDashFields
)

// dashModel is the send-notification dashboard.
type dashModel struct {
	client *client.Client
	logger zerolog.Logger

	target  textinput.Model
	message textinput.Model
	ntype   int // index into notificationTypes
	focus   dashField
	editing bool

	spin       spinner.Model
	submitting bool
	status     string
	errMsg     string

	connected     []string
	connectedIdx  int // cycle position for 'u' autofill
	width, height int
}

func newDashModel(c *client.Client, logger zerolog.Logger) dashModel {
	target := textinput.New()
	target.Placeholder = "target email"
	target.PlaceholderStyle = inputPlaceholderStyle
	target.CharLimit = 254
	target.Width = 38
	target.Focus()

	message := textinput.New()
	message.Placeholder = "message"
	message.PlaceholderStyle = inputPlaceholderStyle
	message.CharLimit = maxMessageLen
	message.Width = 58

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = accentStyle

	return dashModel{
		client:  c,
		logger:  logger,
		target:  target,
		message: message,
		spin:    spin,
		editing: true,
	}
}

func (m dashModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadConnected())
}

// loadConnected refreshes the connected-users strip. Failures are
// logged only: the strip is a convenience, never authoritative.
func (m dashModel) loadConnected() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		users, err := c.ConnectedUsers(context.Background())
		return connectedUsersMsg{users: users, err: err}
	}
}

func (m dashModel) Update(msg tea.Msg) (dashModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case connectedUsersMsg:
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Msg("connected-users refresh failed")
			return m, nil
		}
		m.connected = msg.users
		m.connectedIdx = 0
		return m, nil

	case sentResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errMsg = requestErrorText(msg.err)
			return m, nil
		}
		m.status = "notification sent"
		m.message.SetValue("")
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m dashModel) updateKeys(msg tea.KeyMsg) (dashModel, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	if !m.editing {
		switch msg.String() {
		case "enter", "i":
			m.editing = true
			return m.focusField(m.focus), nil
		case "r":
			return m, m.loadConnected()
		case "u":
			// Cycle the target field through connected users.
			if len(m.connected) > 0 {
				m.target.SetValue(m.connected[m.connectedIdx%len(m.connected)])
				m.connectedIdx++
			}
			return m, nil
		}
		return m, nil
	}

	m.status = ""
	m.errMsg = ""

	switch msg.String() {
	case "esc":
		m.editing = false
		m.target.Blur()
		m.message.Blur()
		return m, nil
	case "tab", "shift+tab":
		next := (m.focus + 1) % numDashFields
		return m.focusField(next), nil
	case "ctrl+t":
		m.ntype = (m.ntype + 1) % len(notificationTypes)
		return m, nil
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldTarget:
		m.target, cmd = m.target.Update(msg)
	case fieldMessage:
		m.message, cmd = m.message.Update(msg)
	}
	return m, cmd
}

func (m dashModel) focusField(f dashField) dashModel {
	m.focus = f
	m.target.Blur()
	m.message.Blur()
	switch f {
	case fieldTarget:
		m.target.Focus()
	case fieldMessage:
		m.message.Focus()
	}
	return m
}

func (m dashModel) submit() (dashModel, tea.Cmd) {
	target := strings.TrimSpace(m.target.Value())
	message := strings.TrimSpace(m.message.Value())
	if target == "" || message == "" {
		m.errMsg = "target email and message are required"
		return m, nil
	}

	m.submitting = true
	m.status = ""
	m.errMsg = ""

	c := m.client
	ntype := notificationTypes[m.ntype]
	request := func() tea.Msg {
		err := c.SendNotification(context.Background(), target, message, ntype)
		return sentResultMsg{err: err}
	}
	return m, tea.Batch(request, m.spin.Tick)
}

// requestErrorText keeps the backend's message for inline display.
func requestErrorText(err error) string {
	var reqErr *client.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	var authErr *client.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return err.Error()
}

func (m dashModel) View() string {
	var b strings.Builder

	b.WriteString("\n ")
	b.WriteString(selectedStyle.Render("Send notification"))
	b.WriteString("\n\n ")
	b.WriteString(dimStyle.Render("to      "))
	b.WriteString(m.target.View())
	b.WriteString("\n ")
	b.WriteString(dimStyle.Render("message "))
	b.WriteString(m.message.View())
	b.WriteString("\n ")
	b.WriteString(dimStyle.Render("type    "))
	b.WriteString(typeChip(notificationTypes[m.ntype]))
	b.WriteString(metaStyle.Render("  (ctrl+t to change)"))
	b.WriteString("\n\n ")

	switch {
	case m.submitting:
		b.WriteString(m.spin.View() + dimStyle.Render(" sending..."))
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg))
	case m.status != "":
		b.WriteString(successStyle.Render(m.status))
	default:
		b.WriteString("")
	}
	b.WriteString("\n\n ")

	b.WriteString(metaStyle.Render("connected: "))
	if len(m.connected) == 0 {
		b.WriteString(dimStyle.Render("nobody online"))
	} else {
		b.WriteString(normalStyle.Render(strings.Join(m.connected, "  ")))
	}
	b.WriteString("\n")

	return b.String()
}
