package tui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/keylcop/keylcop-tui/internal/browser"
	"github.com/keylcop/keylcop-tui/internal/notify"
	"github.com/keylcop/keylcop-tui/pkg/domain"
)

// bellModel is the notification bell: an overlay list of received
// notifications (newest first) and a detail dialog. All list state
// lives in the stream controller; this model only renders and routes
// keys.
type bellModel struct {
	ctrl   *notify.Controller
	logger zerolog.Logger

	cursor   int
	detailID string // non-empty while the detail dialog is open
	status   string

	width, height int
}

func newBellModel(logger zerolog.Logger) bellModel {
	return bellModel{logger: logger}
}

// bellClosedMsg is emitted when the bell asks to be dismissed.
type bellClosedMsg struct{}

func (m bellModel) Update(msg tea.Msg) (bellModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.detailID != "" {
			return m.updateDetailKeys(msg)
		}
		return m.updateListKeys(msg)
	}
	return m, nil
}

func (m bellModel) updateListKeys(msg tea.KeyMsg) (bellModel, tea.Cmd) {
	m.status = ""
	list := m.notifications()

	switch msg.String() {
	case "esc", "b":
		return m, func() tea.Msg { return bellClosedMsg{} }
	case "j", "down":
		if m.cursor < len(list)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if m.cursor < len(list) {
			n := list[m.cursor]
			m.detailID = n.ID
			// Optimistic flip happens here, synchronously; the
			// backend call runs as a command. A nil action means the
			// notification was already opened: nothing re-fires.
			if fire := m.ctrl.Open(n.ID); fire != nil {
				return m, func() tea.Msg {
					fire(context.Background())
					return nil
				}
			}
		}
	case "r":
		if m.cursor < len(list) {
			if fire := m.ctrl.MarkRead(list[m.cursor].ID); fire != nil {
				return m, func() tea.Msg {
					fire(context.Background())
					return nil
				}
			}
		}
	case "C":
		m.ctrl.ClearAll()
		m.cursor = 0
	}
	return m, nil
}

func (m bellModel) updateDetailKeys(msg tea.KeyMsg) (bellModel, tea.Cmd) {
	n, ok := m.ctrl.Get(m.detailID)
	switch msg.String() {
	case "esc", "q", "enter":
		m.detailID = ""
		m.status = ""
	case "c":
		if ok {
			if err := clipboard.WriteAll(n.Body()); err != nil {
				m.logger.Warn().Err(err).Msg("clipboard copy failed")
				m.status = "copy failed"
			} else {
				m.status = "copied"
			}
		}
	case "o":
		if ok && n.Metadata != nil && strings.HasPrefix(n.Metadata.JiraReleaseNotes, "http") {
			if err := browser.Open(n.Metadata.JiraReleaseNotes); err != nil {
				m.logger.Warn().Err(err).Msg("browser open failed")
			}
		}
	}
	return m, nil
}

func (m bellModel) notifications() []domain.Notification {
	if m.ctrl == nil {
		return nil
	}
	return m.ctrl.Notifications()
}

func (m bellModel) View() string {
	if m.detailID != "" {
		return m.detailView()
	}
	return m.listView()
}

func (m bellModel) listView() string {
	var b strings.Builder
	list := m.notifications()

	b.WriteString("\n ")
	b.WriteString(selectedStyle.Render("Notifications"))
	if badge := unreadBadge(m.unreadCount()); badge != "" {
		b.WriteString(" " + badge)
	}
	if len(list) > 0 {
		b.WriteString(metaStyle.Render("  C clears all"))
	}
	b.WriteString("\n\n")

	if len(list) == 0 {
		b.WriteString(" " + dimStyle.Render("No notifications"))
		b.WriteString("\n")
		return b.String()
	}

	for i, n := range list {
		prefix := "  "
		if i == m.cursor {
			prefix = accentStyle.Render("> ")
		}
		title := n.Title
		if title == "" {
			title = truncStr(firstLine(n.Body()), 40)
		}
		row := typeChip(n.Type)
		if chip := priorityChip(n.Priority); chip != "" {
			row += " " + chip
		}
		row += " "
		if n.Read {
			row += normalStyle.Render(title)
		} else {
			row += unreadRowStyle.Render(title)
		}
		if t := formatTime(n.Timestamp); t != "" {
			row += "  " + metaStyle.Render(t)
		}
		b.WriteString(" " + prefix + row + "\n")
		if body := truncStr(firstLine(n.Body()), 70); body != "" && i == m.cursor {
			b.WriteString("     " + dimStyle.Render(body) + "\n")
		}
	}
	return b.String()
}

func (m bellModel) detailView() string {
	n, ok := m.ctrl.Get(m.detailID)
	if !ok {
		return "\n " + dimStyle.Render("notification gone")
	}

	var b strings.Builder
	b.WriteString("\n ")
	b.WriteString(selectedStyle.Render(n.Title))
	b.WriteString("  " + typeChip(n.Type))
	if chip := priorityChip(n.Priority); chip != "" {
		b.WriteString(" " + chip)
	}
	b.WriteString("\n ")
	b.WriteString(metaStyle.Render(formatAbsolute(n.Timestamp)))
	if n.Metadata != nil && n.Metadata.SentBy != "" {
		b.WriteString(metaStyle.Render(" · sent by " + n.Metadata.SentBy))
	}
	b.WriteString("\n\n ")
	b.WriteString(normalStyle.Render(n.Body()))
	b.WriteString("\n")

	if md := n.Metadata; md != nil {
		b.WriteString("\n")
		if md.ApplicationName != "" {
			b.WriteString(" " + dimStyle.Render("application: ") + normalStyle.Render(md.ApplicationName) + "\n")
		}
		if md.JiraReleaseNotes != "" {
			b.WriteString(" " + dimStyle.Render("references:  ") + normalStyle.Render(md.JiraReleaseNotes) + "\n")
		}
		if len(md.Groups) > 0 {
			names := make([]string, len(md.Groups))
			for i, g := range md.Groups {
				names[i] = g.Name
			}
			b.WriteString(" " + dimStyle.Render("groups:      ") + normalStyle.Render(strings.Join(names, ", ")) + "\n")
		}
	}
	if n.Source != "" {
		b.WriteString(" " + dimStyle.Render("source:      ") + normalStyle.Render(n.Source) + "\n")
	}

	if m.status != "" {
		b.WriteString("\n " + successStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m bellModel) unreadCount() int {
	if m.ctrl == nil {
		return 0
	}
	return m.ctrl.UnreadCount()
}
