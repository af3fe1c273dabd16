package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

var keywordStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}).
	Bold(true)

func keyword(s string) string {
	return keywordStyle.Render(s)
}

func paragraph(s string) string {
	s = wordwrap.String(s, 78)
	return strings.TrimRight(indent.String(s, 2), "\n")
}
