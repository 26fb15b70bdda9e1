package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/roster-cli/roster/internal/application"
	"github.com/roster-cli/roster/internal/domain"
)

type RenderOptions struct {
	Now         time.Time
	MaxCapacity int
	StaleAfter  time.Duration
}

func renderView(sessions []application.SessionStatusView, proxies []application.ProxyStatusView, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Fleet Status"),
		s.header.Render(fmt.Sprintf("accounts: %d  proxies: %d", len(sessions), len(proxies))),
	}

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
	}

	for _, session := range sessions {
		lines = append(lines, s.section.Render(renderSession(session, opts, s)))
	}

	if len(proxies) > 0 {
		proxyLines := []string{s.account.Render("Proxies")}
		for _, proxy := range proxies {
			proxyLines = append(proxyLines, renderProxy(proxy, opts, s))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, proxyLines...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session application.SessionStatusView, opts RenderOptions, s styles) string {
	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.account.Render(fmt.Sprintf("[%d] %s", session.Index, session.Name)),
		" ",
		statusLabel(session.Status, s),
	)

	parts := []string{title}
	if flags := limitationFlags(session); flags != "" {
		parts = append(parts, s.warning.Render(flags))
	}

	if session.Status == domain.StatusOnline {
		parts = append(parts, friendLine(session, opts, s))
	}
	if session.LoginAttempts > 0 && session.Status != domain.StatusOnline {
		parts = append(parts, s.detail.Render(fmt.Sprintf("login attempts: %d", session.LoginAttempts)))
	}
	parts = append(parts, proxyLine(session, s))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func statusLabel(st domain.SessionStatus, s styles) string {
	switch st {
	case domain.StatusOnline:
		return s.online.Render("online")
	case domain.StatusError:
		return s.errored.Render("error")
	case domain.StatusLoggingIn, domain.StatusDisconnected:
		return s.pending.Render(string(st))
	default:
		return s.offline.Render(string(st))
	}
}

func limitationFlags(session application.SessionStatusView) string {
	flags := make([]string, 0, 2)
	if session.Limited {
		flags = append(flags, "limited")
	}
	if session.CommunityBanned {
		flags = append(flags, "community banned")
	}

	return strings.Join(flags, ", ")
}

func friendLine(session application.SessionStatusView, opts RenderOptions, s styles) string {
	if opts.MaxCapacity <= 0 {
		return s.detail.Render(fmt.Sprintf("friends: %d", session.Relationships))
	}

	usedPercent := float64(session.Relationships) / float64(opts.MaxCapacity) * 100
	bar := renderCapacityBar(usedPercent, 24, s)
	meta := s.detail.Render(fmt.Sprintf("%d/%d friends", session.Relationships, opts.MaxCapacity))

	line := lipgloss.JoinHorizontal(lipgloss.Top, bar, " ", meta)
	if opts.MaxCapacity-session.Relationships < 1 {
		line += " " + s.warning.Render("[full]")
	}

	return line
}

func proxyLine(session application.SessionStatusView, s styles) string {
	if session.Proxy == "" {
		return s.proxyMeta.Render("egress: direct")
	}

	state := "online"
	if !session.ProxyOnline {
		state = "offline"
	}

	return s.proxyMeta.Render(fmt.Sprintf("egress: %s (%s)", session.Proxy, state))
}

func renderProxy(proxy application.ProxyStatusView, opts RenderOptions, s styles) string {
	state := s.online.Render("online")
	if !proxy.Online {
		state = s.errored.Render("offline")
	}

	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.detail.Render(string(proxy.ID)),
		" ",
		state,
		" ",
		s.proxyMeta.Render(fmt.Sprintf("(%s)", formatChecked(proxy.LastCheckedAt, opts.Now))),
	)

	if len(proxy.Sessions) > 0 {
		line += " " + s.proxyMeta.Render("used by "+strings.Join(proxy.Sessions, ", "))
	}
	if isStale(proxy.LastCheckedAt, opts.Now, opts.StaleAfter) {
		line += " " + s.warning.Render("[stale]")
	}

	return line
}

func renderCapacityBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	filled := int(math.Round(float64(width) * used / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatChecked(checkedAt, now time.Time) string {
	if checkedAt.IsZero() {
		return "never checked"
	}
	if now.IsZero() {
		return "checked " + checkedAt.Format("15:04")
	}

	elapsed := now.Sub(checkedAt)
	if elapsed < time.Minute {
		return "checked just now"
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("checked %dm ago", int(elapsed.Minutes()))
	}

	return fmt.Sprintf("checked %dh ago", int(elapsed.Hours()))
}

func isStale(checkedAt, now time.Time, staleAfter time.Duration) bool {
	if checkedAt.IsZero() || now.IsZero() || staleAfter <= 0 {
		return false
	}

	return now.Sub(checkedAt) > staleAfter
}
