// Package ui keeps short-lived notices shown under a terminal view.
package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Lifetime is how long a notice stays visible.
const Lifetime = 3 * time.Second

var noticeStyle = lipgloss.NewStyle().Faint(true)

// Model holds the current notice.
type Model struct {
	notice string
	seq    int
}

// NoticeMsg shows a notice.
type NoticeMsg string

type clearMsg struct{ seq int }

// Notify returns a command showing text as a notice.
func Notify(text string) tea.Cmd {
	return func() tea.Msg { return NoticeMsg(text) }
}

// Notice is the text currently shown, empty when none is.
func (m *Model) Notice() string {
	return m.notice
}

// Update handles notice messages. Clearing is scheduled per notice so a newer one is never cut short.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case NoticeMsg:
		m.notice = string(msg)
		m.seq++
		seq := m.seq
		return tea.Tick(Lifetime, func(time.Time) tea.Msg { return clearMsg{seq: seq} })
	case clearMsg:
		if msg.seq == m.seq {
			m.notice = ""
		}
	}
	return nil
}

// View appends the notice to the last line of content.
func (m *Model) View(content string) string {
	if m.notice == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	lines[len(lines)-1] += "  " + noticeStyle.Render(m.notice)
	return strings.Join(lines, "\n")
}
