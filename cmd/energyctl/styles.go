package main

import (
	"github.com/charmbracelet/lipgloss"

	"energy-dashboard/internal/chart"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	anomalyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(chart.AnomalousColor))
	normalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(chart.NormalColor))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))

	timestampColumn = lipgloss.NewStyle().Width(20)
	valueColumn     = lipgloss.NewStyle().Width(14).Align(lipgloss.Right)
	nameColumn      = lipgloss.NewStyle().Width(12)
	fileColumn      = lipgloss.NewStyle().Width(38)
)
