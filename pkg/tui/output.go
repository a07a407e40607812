package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/planrun/planrun/pkg/run"
)

// outputPanel shows the live stdout/stderr of the running (or most
// recently finished) task inside a scrollable viewport.
type outputPanel struct {
	vp      viewport.Model
	follow  bool
	lastLen int
}

func newOutputPanel() outputPanel {
	return outputPanel{vp: viewport.New(0, 0), follow: true}
}

func (p *outputPanel) resize(width, height int) {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}
	innerH := height - 3
	if innerH < 1 {
		innerH = 1
	}
	p.vp.Width = innerW
	p.vp.Height = innerH
}

// setContent refreshes the viewport with the focused task's output.
// While following, the view sticks to the bottom as new lines arrive;
// a manual scroll disengages following until the user returns to the
// bottom.
func (p *outputPanel) setContent(t *run.TaskInfo) {
	if t == nil {
		p.vp.SetContent(taskDim.Render("no output yet"))
		return
	}
	var b strings.Builder
	if t.Stdout != "" {
		b.WriteString(t.Stdout)
	}
	if t.Stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(errorStyle.Render("stderr:"))
		b.WriteString("\n")
		b.WriteString(t.Stderr)
	}
	content := b.String()
	if content == "" {
		content = taskDim.Render("no output yet")
	}
	p.vp.SetContent(content)
	if p.follow && len(content) != p.lastLen {
		p.vp.GotoBottom()
	}
	p.lastLen = len(content)
}

func (p *outputPanel) scroll(lines int) {
	if lines < 0 {
		p.vp.LineUp(-lines)
	} else {
		p.vp.LineDown(lines)
	}
	p.follow = p.vp.AtBottom()
}

// View renders the framed panel with a title naming the focused task.
func (p *outputPanel) View(title string, width, height int) string {
	if title == "" {
		title = "Output"
	}
	return panelBorder.Width(width).Height(height).Render(
		panelTitle.Render(title) + "\n" + p.vp.View())
}
