package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/planrun/planrun/pkg/refine"
)

// choiceOverlay renders the active Define group of a refinement
// snapshot: the prompt, its mutually exclusive options and the current
// highlight. It holds no state of its own — the refinement engine is
// the single source of truth.
type choiceOverlay struct {
	width  int
	height int
}

// View renders the overlay for the given refinement snapshot.
func (c *choiceOverlay) View(snap refine.Snapshot) string {
	contentW := c.width - 8
	if contentW < 50 {
		contentW = 50
	}

	var b strings.Builder

	title := fmt.Sprintf("Choice %d of %d", snap.CurrentGroupIndex+1, snap.GroupCount)
	b.WriteString(overlayTitle.Render(title))
	b.WriteString("\n\n")

	if snap.Prompt != "" {
		b.WriteString(runewidth.Truncate(snap.Prompt, contentW, "…"))
		b.WriteString("\n\n")
	}

	for i, opt := range snap.Options {
		highlighted := snap.HighlightedIndex != nil && *snap.HighlightedIndex == i

		prefix := "  "
		if highlighted {
			prefix = taskRunning.Render("> ")
		}
		num := fmt.Sprintf("%d.", i+1)
		line := fmt.Sprintf("%s%s %s", prefix, keyStyle.Render(num), opt.Name)
		if opt.Command != "" {
			cmd := runewidth.Truncate(opt.Command, contentW-len(opt.Name)-8, "…")
			line += " " + keyDescStyle.Render("— "+cmd)
		}
		if highlighted {
			line = taskRunning.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(keyStyle.Render("↑↓") + keyDescStyle.Render(":highlight") + "  " +
		keyStyle.Render("enter") + keyDescStyle.Render(":confirm") + "  " +
		keyStyle.Render("esc") + keyDescStyle.Render(":abort"))

	box := overlayBorder.Width(contentW).Render(b.String())
	return lipgloss.Place(c.width, c.height, lipgloss.Center, lipgloss.Center, box)
}
