// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mgiraud/classbridge/internal/model"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#7C9CF5")
	// SuccessColor indicates successful operations and HIGH-tier matches.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor indicates MEDIUM-tier matches awaiting review.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor indicates errors and LOW-tier matches.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)
)

// RenderTier renders a confidence tier in its action color: HIGH maps
// automatically, MEDIUM awaits confirmation, LOW suggests a new category.
func RenderTier(tier model.ConfidenceTier) string {
	switch tier {
	case model.TierHigh:
		return SuccessStyle.Render(string(tier))
	case model.TierMedium:
		return WarningStyle.Render(string(tier))
	default:
		return ErrorStyle.Render(string(tier))
	}
}
