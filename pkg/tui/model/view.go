package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/modoterra/redtail/pkg/core"
	"github.com/modoterra/redtail/pkg/liveness"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	bannerOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("#34d399"))
	bannerWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("#fbbf24"))

	statusConnected    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusDisconnected = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// chromeRows is the number of rows around the viewport: title, banner,
// and status bar, plus the filter line when search is enabled.
func chromeRows(search bool) int {
	if search {
		return 4
	}
	return 3
}

// View renders the TUI.
func (a App) View() string {
	if !a.ready {
		return "loading..."
	}

	rows := []string{a.renderTitle(), a.renderBanner(), a.viewport.View()}
	if a.cfg.UI.Search {
		rows = append(rows, a.renderSearch())
	}
	rows = append(rows, a.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a App) renderTitle() string {
	title := titleStyle.Render(" redtail ")
	var state string
	switch {
	case !a.sess.Live():
		state = dimStyle.Render("○ polling")
	case a.sess.Status() == core.StatusDisconnected:
		state = statusDisconnected.Render("● " + string(a.sess.Status()))
	default:
		state = statusConnected.Render("● " + string(a.sess.Status()))
	}
	return title + " " + state + " " + dimStyle.Render(a.cfg.Server)
}

func (a App) renderBanner() string {
	b := a.sess.Banner()
	switch b.Tone {
	case liveness.ToneOK:
		return bannerOK.Render(b.Text)
	case liveness.ToneWarn:
		return bannerWarn.Render(b.Text)
	default:
		return b.Text
	}
}

func (a App) renderSearch() string {
	if a.mode == ModeSearch {
		return a.search.View()
	}
	if q := a.sess.Query(); q != "" {
		return dimStyle.Render("filter: " + q + "  (esc to clear)")
	}
	return ""
}

func (a App) renderStatusBar() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d lines", a.sess.Lines()))
	if a.cfg.UI.Autoscroll {
		if a.sess.Autoscroll() {
			parts = append(parts, "follow")
		} else {
			parts = append(parts, "paused")
		}
	}
	if a.sess.Copied() {
		parts = append(parts, bannerOK.Render("copied"))
	}
	if a.statusMsg != "" {
		parts = append(parts, a.statusMsg)
	}
	left := strings.Join(parts, " · ")

	right := a.helpText()
	gap := a.width - lipgloss.Width(left) - runewidth.StringWidth(right)
	if gap < 1 {
		gap = 1
	}
	return helpStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func (a App) helpText() string {
	if a.mode == ModeSearch {
		return "enter:apply esc:clear"
	}
	keys := []string{"↑/↓:scroll"}
	if a.cfg.UI.Search {
		keys = append(keys, "/:filter")
	}
	if a.cfg.UI.Autoscroll {
		keys = append(keys, "a:follow")
	}
	if a.cfg.UI.Copy {
		keys = append(keys, "c:copy")
	}
	keys = append(keys, "q:quit")
	return strings.Join(keys, " ")
}
