package ui

import (
	"fmt"
	"strings"

	"cseek/internal/domain"
	"cseek/internal/results"
)

// fixed vertical space around the result list: header, input line, preview,
// status and help lines
const chromeHeight = 6

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder

	title := m.styles.Title.Render("cseek")
	dbNote := m.styles.Dim.Render(" " + m.db.Path)
	b.WriteString(title + dbNote + "\n")

	prompt := m.styles.Prompt.Render(fmt.Sprintf("[%s] ", m.searchType.Name()))
	line := prompt + m.input.View()
	if m.running {
		line += " " + m.styles.Searching.Render(m.spin.View())
	}
	b.WriteString(line + "\n")

	b.WriteString(m.renderList())

	if m.config.UI.ShowPreview {
		if preview := m.renderPreview(); preview != "" {
			b.WriteString(preview + "\n")
		}
	}

	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.helpView.View(m.keys))

	return b.String()
}

// listHeight is the number of rows available for results
func (m *Model) listHeight() int {
	h := m.height - chromeHeight
	if m.config.UI.ShowPreview {
		h -= m.previewHeight()
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) previewHeight() int {
	return m.config.UI.PreviewContext + 2 // context plus box border
}

// renderList renders candidates grouped by file, windowed around the cursor
func (m *Model) renderList() string {
	visible := m.visible()
	if len(visible) == 0 {
		if m.running {
			return m.styles.Dim.Render("  searching...") + "\n"
		}
		return m.styles.Dim.Render("  no results") + "\n"
	}

	// Flatten groups into display rows, remembering which row the cursor
	// occupies. Group headers carry the full file path; candidate rows show
	// only the remainder.
	var rows []string
	selectedRow := 0
	index := 0
	for _, group := range results.GroupInOrder(visible) {
		rows = append(rows, m.styles.GroupHeader.Render(group.Key))
		for _, c := range group.Candidates {
			row := m.renderRow(c, index == m.selected)
			if index == m.selected {
				selectedRow = len(rows)
			}
			rows = append(rows, row)
			index++
		}
	}

	height := m.listHeight()
	offset := 0
	if selectedRow >= height {
		offset = selectedRow - height + 1
	}
	end := offset + height
	if end > len(rows) {
		end = len(rows)
	}

	var b strings.Builder
	for _, row := range rows[offset:end] {
		b.WriteString(row + "\n")
	}
	if end < len(rows) {
		b.WriteString(m.styles.Dim.Render(fmt.Sprintf("  … %d more", len(rows)-end)) + "\n")
	}
	return b.String()
}

// renderRow renders one candidate line (the visible, non-group portion)
func (m *Model) renderRow(c domain.Candidate, selected bool) string {
	marker := "  "
	if selected {
		marker = "> "
	}

	row := marker +
		m.styles.Function.Render(c.Function) +
		m.styles.LineNumber.Render(fmt.Sprintf("[%d]", c.Line)) +
		": " +
		m.renderContent(c.Content, c.Highlights)

	if selected {
		return m.styles.SelectedBg.Render(row)
	}
	return row
}

// renderContent emphasizes the highlight spans within content
func (m *Model) renderContent(content string, spans []domain.Span) string {
	if len(spans) == 0 {
		return content
	}

	var b strings.Builder
	pos := 0
	for _, s := range spans {
		if s.Start < pos || s.End > len(content) {
			continue // overlapping or out-of-range span, skip it
		}
		b.WriteString(content[pos:s.Start])
		b.WriteString(m.styles.Highlight.Render(content[s.Start:s.End]))
		pos = s.End
	}
	b.WriteString(content[pos:])
	return b.String()
}

// renderPreview renders context lines around the selected candidate
func (m *Model) renderPreview() string {
	c, ok := m.selectedCandidate()
	if !ok {
		return ""
	}
	buf, ok := m.resolver.Buffer(c)
	if !ok {
		return ""
	}

	context := m.config.UI.PreviewContext
	hit := c.Line - 1 // buffer lines are 0-based
	from := hit - context/2
	if from < 0 {
		from = 0
	}
	lines := buf.Slice(from, from+context)

	var b strings.Builder
	for i, line := range lines {
		n := from + i + 1
		text := fmt.Sprintf("%5d %s", n, line)
		if n == c.Line {
			text = m.styles.PreviewHit.Render(text)
		}
		b.WriteString(text)
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}

	box := m.styles.PreviewBox.Width(max(20, m.width-4))
	return box.Render(b.String())
}

func (m *Model) renderStatus() string {
	if m.statusErr {
		return m.styles.StatusError.Render(m.status)
	}

	var parts []string
	if m.status != "" {
		parts = append(parts, m.status)
	}
	visible := len(m.visible())
	if m.running {
		parts = append(parts, fmt.Sprintf("%d so far", visible))
	} else {
		parts = append(parts, fmt.Sprintf("%d results", visible))
	}
	if hidden := len(m.candidates) - visible; hidden > 0 {
		parts = append(parts, fmt.Sprintf("%d filtered out", hidden))
	}
	return m.styles.Status.Render(strings.Join(parts, " · "))
}
