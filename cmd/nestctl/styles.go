package main

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#8BC34A")
	muted  = lipgloss.Color("#9AA5B1")

	nameStyle    = lipgloss.NewStyle().Bold(true)
	selfStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	unreadMarker = lipgloss.NewStyle().Foreground(accent).Render("●")
)
