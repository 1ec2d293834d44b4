package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/trace"
)

// Options control answer rendering.
type Options struct {
	// Width wraps markdown and truncates tables. Zero means 80.
	Width int
	// Markdown renders the answer body with glamour.
	Markdown bool
	// Citations lists the probes the answer relies on.
	Citations bool
	// Debug appends the per-iteration model exchange.
	Debug bool
}

func (o Options) width() int {
	if o.Width <= 0 {
		return 80
	}
	return o.Width
}

// Answer renders a FinalAnswer for the terminal.
func Answer(ans *engine.FinalAnswer, opts Options) string {
	var b strings.Builder

	header := badge(ans.Confidence) + " " + titleStyle.Render(fmt.Sprintf("overall %.2f", ans.Scores.Overall))
	if ans.IsRefusal {
		header = badge(ans.Confidence) + " " + failStyle.Render(GlyphRefusal+" refused")
	}
	b.WriteString(header + "\n\n")

	body := ans.Answer
	switch {
	case ans.IsRefusal:
		body = refusalBox.Render(body)
	case opts.Markdown:
		body = renderMarkdown(body, opts.width())
	default:
		body = bodyStyle.Render(body)
	}
	b.WriteString(body + "\n")

	if !ans.IsRefusal && ans.Source == engine.SourceLoop {
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("evidence %.2f · reasoning %.2f · coverage %.2f",
			ans.Scores.Evidence, ans.Scores.Reasoning, ans.Scores.Coverage)) + "\n")
	}

	if len(ans.Problems) > 0 && !(ans.IsRefusal && len(ans.Problems) == 1) {
		b.WriteString("\n" + labelStyle.Render("Problems") + "\n")
		for _, p := range ans.Problems {
			b.WriteString("  " + problemStyle.Render(GlyphProblem) + " " + p + "\n")
		}
	}

	if opts.Citations && len(ans.Citations) > 0 {
		b.WriteString("\n" + labelStyle.Render("Evidence") + "\n")
		b.WriteString(citationTable(ans.Citations, opts.width()))
	}

	b.WriteString("\n" + dimStyle.Render(footer(ans)) + "\n")

	if opts.Debug && ans.Debug != nil {
		b.WriteString("\n" + Debug(ans.Debug, opts.width()))
	}
	return b.String()
}

func footer(ans *engine.FinalAnswer) string {
	parts := []string{string(ans.Source)}
	if ans.Source == engine.SourceLoop {
		parts = append(parts, fmt.Sprintf("%d iteration(s)", ans.LoopIterations))
	}
	if ans.Verdict != "" {
		parts = append(parts, string(ans.Verdict))
	}
	if ans.Duration > 0 {
		parts = append(parts, ans.Duration.Round(time.Millisecond).String())
	}
	return strings.Join(parts, " · ")
}

func citationTable(ev []probe.Evidence, width int) string {
	idw := 0
	for _, e := range ev {
		if w := runewidth.StringWidth(e.ProbeID); w > idw {
			idw = w
		}
	}
	var b strings.Builder
	for _, e := range ev {
		glyph := okStyle.Render(GlyphOK)
		detail := e.Command
		if !e.OK() {
			glyph = failStyle.Render(GlyphFailed)
			detail = e.Error
		}
		line := "  " + glyph + " " + runewidth.FillRight(e.ProbeID, idw) + "  "
		room := width - runewidth.StringWidth(line)
		if room > 4 {
			detail = runewidth.Truncate(detail, room, "…")
		}
		b.WriteString(line + dimStyle.Render(detail) + "\n")
	}
	return b.String()
}

// Probes renders the catalog as an aligned table.
func Probes(c *probe.Catalog, width int) string {
	if width <= 0 {
		width = 80
	}
	ps := c.Probes()
	idw, lw := 0, 0
	for _, p := range ps {
		idw = max(idw, runewidth.StringWidth(p.ID))
		lw = max(lw, runewidth.StringWidth(p.Label))
	}
	var b strings.Builder
	for _, p := range ps {
		line := GlyphProbe + " " + labelStyle.Render(runewidth.FillRight(p.ID, idw)) + "  " + runewidth.FillRight(p.Label, lw) + "  "
		room := width - (2 + idw + 2 + lw + 2)
		cmd := p.CommandText()
		if room > 4 {
			cmd = runewidth.Truncate(cmd, room, "…")
		}
		b.WriteString(line + dimStyle.Render(cmd) + "\n")
	}
	return b.String()
}

// Debug renders a debug trace.
func Debug(t *trace.DebugTrace, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Debug trace "+t.RunID) + "\n")
	rule := dimStyle.Render(strings.Repeat("─", min(width, 60)))
	for _, it := range t.Iterations {
		b.WriteString(rule + "\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("#%d %s", it.Iteration, it.Role)) + "\n")
		b.WriteString(labelStyle.Render("prompt:") + "\n" + it.Prompt + "\n")
		b.WriteString(labelStyle.Render("response:") + "\n" + it.RawResponse + "\n")
		if it.ParsedSummary != "" {
			b.WriteString(labelStyle.Render("parsed: ") + dimStyle.Render(it.ParsedSummary) + "\n")
		}
	}
	return b.String()
}
