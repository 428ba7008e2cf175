package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/noborus/ov/oviewer"
)

// HelpRenderer handles help content rendering
type HelpRenderer struct{}

// NewHelpRenderer creates a new help renderer
func NewHelpRenderer() *HelpRenderer {
	return &HelpRenderer{}
}

// renderHelpContent renders the full key listing shown in the pager
func (r *HelpRenderer) renderHelpContent() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("220"))

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	var help strings.Builder

	help.WriteString(titleStyle.Render("cseek Help"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Query"))
	help.WriteString("\n")
	help.WriteString(fmt.Sprintf("  %s      %s\n", keyStyle.Render("#pattern"), descStyle.Render("Primary search pattern")))
	help.WriteString(fmt.Sprintf("  %s  %s\n", keyStyle.Render("#pattern#term"), descStyle.Render("Narrow results with filter terms")))
	help.WriteString(fmt.Sprintf("  %s     %s\n", keyStyle.Render("... -- -C"), descStyle.Render("Pass flags straight to the indexer (-C: ignore case)")))
	help.WriteString(fmt.Sprintf("  %s         %s\n", keyStyle.Render("Tab"), descStyle.Render("Cycle the search type (symbol, definition, calling, ...)")))
	help.WriteString(fmt.Sprintf("  %s      %s\n", keyStyle.Render("Ctrl+Y"), descStyle.Render("Recall the query given on the command line")))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Results"))
	help.WriteString("\n")
	help.WriteString(fmt.Sprintf("  %s         %s\n", keyStyle.Render("↑/↓"), descStyle.Render("Move selection; the preview pane follows")))
	help.WriteString(fmt.Sprintf("  %s   %s\n", keyStyle.Render("PgUp/PgDn"), descStyle.Render("Page through results")))
	help.WriteString(fmt.Sprintf("  %s       %s\n", keyStyle.Render("Enter"), descStyle.Render("Jump to the selected location and exit")))
	help.WriteString(fmt.Sprintf("  %s      %s\n", keyStyle.Render("Ctrl+O"), descStyle.Render("View the selected file in the pager")))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Other"))
	help.WriteString("\n")
	help.WriteString(fmt.Sprintf("  %s          %s\n", keyStyle.Render("F1"), descStyle.Render("This help")))
	help.WriteString(fmt.Sprintf("  %s         %s", keyStyle.Render("Esc"), descStyle.Render("Abort without jumping")))

	return help.String()
}

// HelpOps runs the external pager for help text and file views
type HelpOps struct {
	program *tea.Program // reference to Bubble Tea program for terminal management
}

// NewHelpOps creates a new help operations instance
func NewHelpOps() *HelpOps {
	return &HelpOps{}
}

// SetProgram hands over the running program
func (h *HelpOps) SetProgram(p *tea.Program) {
	h.program = p
}

// ShowHelpInPager shows help content using the ov pager
func (h *HelpOps) ShowHelpInPager(helpContent string) error {
	return h.showReader(strings.NewReader(helpContent))
}

// ShowFileInPager shows a source file at full length using the ov pager
func (h *HelpOps) ShowFileInPager(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return h.showReader(file)
}

// showReader releases the terminal, runs ov over the reader and restores the
// terminal afterwards.
func (h *HelpOps) showReader(reader io.Reader) error {
	if h.program == nil {
		return fmt.Errorf("program not set")
	}

	if err := h.program.ReleaseTerminal(); err != nil {
		return err
	}

	defer func() {
		// Small delay to ensure ov has fully exited before restoring the terminal
		time.Sleep(100 * time.Millisecond)
		_ = h.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(reader)
	if err != nil {
		return err
	}

	// Configure ov to not write on exit (to avoid messing with our screen)
	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}

// showInPager returns a command that pages the given file
func (m *Model) showInPager(path string) tea.Cmd {
	return func() tea.Msg {
		return pagerMsg{path: path, err: m.helpOps.ShowFileInPager(path)}
	}
}

// showHelp returns a command that pages the help text
func (m *Model) showHelp() tea.Cmd {
	return func() tea.Msg {
		content := NewHelpRenderer().renderHelpContent()
		return helpPagerMsg{err: m.helpOps.ShowHelpInPager(content)}
	}
}
