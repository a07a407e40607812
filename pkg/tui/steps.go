package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/run"
)

// stepsPanel renders the task list of an execution snapshot.
type stepsPanel struct {
	width  int
	height int
}

// View renders the task list from the latest snapshot.
func (p *stepsPanel) View(tasks []run.TaskInfo) string {
	visible := p.height - 2
	if visible < 1 {
		visible = 1
	}

	if len(tasks) == 0 {
		return panelBorder.Width(p.width).Height(p.height).Render(
			panelTitle.Render("Tasks") + "\n" + taskDim.Render("  nothing to run"))
	}

	var lines []string
	for i, t := range tasks {
		if len(lines) >= visible {
			break
		}

		var glyph string
		var style lipgloss.Style
		switch t.Status {
		case executor.StatusRunning:
			glyph = GlyphRunning
			style = taskRunning
		case executor.StatusSuccess:
			glyph = GlyphSuccess
			style = taskSuccess
		case executor.StatusFailed:
			glyph = GlyphFailed
			style = taskFailed
		case executor.StatusAborted:
			glyph = GlyphAborted
			style = taskFailed
		case executor.StatusCancelled:
			glyph = GlyphCancelled
			style = taskDim
		default:
			glyph = GlyphPending
			style = taskNormal
		}

		label := t.Label
		maxLabel := p.width - 16
		if maxLabel < 4 {
			maxLabel = 4
		}
		label = runewidth.Truncate(label, maxLabel, "…")

		line := fmt.Sprintf(" %s %d. %s", glyph, i+1, label)
		if t.Status == executor.StatusRunning || t.Status.Terminal() {
			if t.Elapsed > 0 {
				line += taskDim.Render(fmt.Sprintf("  %s", t.Elapsed.Round(10*time.Millisecond)))
			}
		}
		lines = append(lines, style.Render(line))
	}

	for len(lines) < visible {
		lines = append(lines, "")
	}

	return panelBorder.Width(p.width).Height(p.height).Render(
		panelTitle.Render("Tasks") + "\n" + strings.Join(lines, "\n"))
}

// stats counts tasks by terminal status.
func stats(tasks []run.TaskInfo) (done, failed int) {
	for _, t := range tasks {
		switch t.Status {
		case executor.StatusSuccess:
			done++
		case executor.StatusFailed:
			failed++
		}
	}
	return
}
