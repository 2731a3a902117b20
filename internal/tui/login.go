package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/keylcop/keylcop-tui/pkg/client"
	"github.com/keylcop/keylcop-tui/pkg/domain"
)

// authResultMsg carries the outcome of a login or register attempt.
type authResultMsg struct {
	session *domain.Session
	err     error
}

type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	numLoginFields
)

// loginModel is the Login/Register form shown while unauthenticated.
type loginModel struct {
	client *client.Client

	email    textinput.Model
	password textinput.Model
	focus    loginField
	register bool // false = login tab, true = register tab

	spin       spinner.Model
	submitting bool
	errMsg     string

	width  int
	height int
}

func newLoginModel(c *client.Client) loginModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.PlaceholderStyle = inputPlaceholderStyle
	email.CharLimit = 254
	email.Width = 38
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.PlaceholderStyle = inputPlaceholderStyle
	password.CharLimit = 128
	password.Width = 38
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = accentStyle

	return loginModel{
		client:   c,
		email:    email,
		password: password,
		spin:     spin,
	}
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
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

	case authResultMsg:
		m.submitting = false
		if msg.err != nil {
			// AuthError text is meant for inline display.
			m.errMsg = authErrorText(msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.password.SetValue("")
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil // one request at a time
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			return m.cycleFocus(), nil
		case "ctrl+t":
			m.register = !m.register
			m.errMsg = ""
			return m, nil
		case "enter":
			return m.submit()
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldEmail:
		m.email, cmd = m.email.Update(msg)
	case fieldPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m loginModel) cycleFocus() loginModel {
	if m.focus == fieldEmail {
		m.focus = fieldPassword
		m.email.Blur()
		m.password.Focus()
	} else {
		m.focus = fieldEmail
		m.password.Blur()
		m.email.Focus()
	}
	return m
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	if email == "" || password == "" {
		m.errMsg = "email and password are required"
		return m, nil
	}

	m.submitting = true
	m.errMsg = ""

	c := m.client
	register := m.register
	request := func() tea.Msg {
		var session *domain.Session
		var err error
		if register {
			session, err = c.Register(context.Background(), email, password)
		} else {
			session, err = c.Login(context.Background(), email, password)
		}
		return authResultMsg{session: session, err: err}
	}
	return m, tea.Batch(request, m.spin.Tick)
}

// authErrorText strips the wrapping noise off an auth failure for
// inline display, keeping the backend's message.
func authErrorText(err error) string {
	var authErr *client.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return err.Error()
}

func (m loginModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(centerLine(metaStyle.Render("Notification System"), m.width))
	b.WriteString("\n\n")

	loginTab := dimStyle.Render("Login")
	registerTab := dimStyle.Render("Register")
	if m.register {
		registerTab = selectedStyle.Underline(true).Render("Register")
	} else {
		loginTab = selectedStyle.Underline(true).Render("Login")
	}
	b.WriteString(centerLine(loginTab+"   "+registerTab, m.width))
	b.WriteString("\n\n")

	b.WriteString(centerLine(m.email.View(), m.width))
	b.WriteString("\n")
	b.WriteString(centerLine(m.password.View(), m.width))
	b.WriteString("\n\n")

	switch {
	case m.submitting:
		b.WriteString(centerLine(m.spin.View()+dimStyle.Render(" signing in..."), m.width))
	case m.errMsg != "":
		b.WriteString(centerLine(errorStyle.Render(m.errMsg), m.width))
	default:
		b.WriteString("\n")
	}

	return b.String()
}
