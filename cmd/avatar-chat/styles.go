package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	stateStyles = map[string]lipgloss.Style{
		"idle":         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		"connecting":   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"connected":    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"disconnected": lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}

	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	avatarStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	systemStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
