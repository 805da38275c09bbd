// Package ui provides terminal styling for command output.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func colorEnabled() bool {
	return termenv.EnvColorProfile() != termenv.Ascii
}

func RenderPass(s string) string {
	if !colorEnabled() {
		return s
	}
	return passStyle.Render(s)
}

func RenderWarn(s string) string {
	if !colorEnabled() {
		return s
	}
	return warnStyle.Render(s)
}

func RenderErr(s string) string {
	if !colorEnabled() {
		return s
	}
	return errStyle.Render(s)
}

func RenderAccent(s string) string {
	if !colorEnabled() {
		return s
	}
	return accentStyle.Render(s)
}

func RenderDim(s string) string {
	if !colorEnabled() {
		return s
	}
	return dimStyle.Render(s)
}
