package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/keylcop/keylcop-tui/pkg/domain"
)

// Shimmer animation for the KEYLCOP wordmark.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "K E Y L C O P" as a flowing wave of steel
// blue light. Deep slate (#22303c) -> bright sky (#7dd3fc).
func renderShimmerLogo(frame int) string {
	const text = "KEYLCOP"
	n := len(text)

	var out string

	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		// One smooth wave advancing through the text
		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		// Deep slate (34, 48, 60) -> bright sky (125, 211, 252)
		r := clampByte(34 + b*(125-34))
		g := clampByte(48 + b*(211-48))
		bl := clampByte(60 + b*(252-60))

		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
		out += s.Render(string(text[i]))

		if i < n-1 {
			out += "  "
		}
	}

	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base palette
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dd3fc")).
			Bold(true)

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Inline status lines
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	// Unread badge next to the bell
	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0b0e14")).
			Background(lipgloss.Color("#f87171")).
			Bold(true)

	// Unread rows in the bell list
	unreadRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#505868")).
				Italic(true)

	// Notification type chips
	typeChipStyles = map[string]lipgloss.Style{
		domain.TypeInfo:         chip("#7dd3fc"),
		domain.TypeSuccess:      chip("#4ade80"),
		domain.TypeWarning:      chip("#facc15"),
		domain.TypeError:        chip("#f87171"),
		domain.TypeReleaseNotes: chip("#c084fc"),
	}

	// Priority chips
	priorityChipStyles = map[string]lipgloss.Style{
		domain.PriorityLow:      chip("#8890a0"),
		domain.PriorityMedium:   chip("#7dd3fc"),
		domain.PriorityHigh:     chip("#facc15"),
		domain.PriorityCritical: chip("#f87171"),
	}
)

func chip(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Bold(true)
}

// typeChip renders a [type] chip. Unrecognized types fall back to the
// info treatment rather than breaking rendering.
func typeChip(ntype string) string {
	style, ok := typeChipStyles[ntype]
	if !ok {
		style = typeChipStyles[domain.TypeInfo]
	}
	return style.Render("[" + ntype + "]")
}

// priorityChip renders a priority chip, empty when no priority is set.
func priorityChip(priority string) string {
	if priority == "" {
		return ""
	}
	style, ok := priorityChipStyles[priority]
	if !ok {
		style = priorityChipStyles[domain.PriorityLow]
	}
	return style.Render("(" + priority + ")")
}

// helpEntry renders one "key label" pair for the help bar.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// unreadBadge renders the bell's unread counter, empty at zero.
func unreadBadge(count int) string {
	if count <= 0 {
		return ""
	}
	label := fmt.Sprintf(" %d ", count)
	if count > 99 {
		label = " 99+ "
	}
	return badgeStyle.Render(label)
}

// centerLine pads s to be horizontally centered within width.
func centerLine(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
