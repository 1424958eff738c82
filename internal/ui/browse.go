// Package ui is the interactive diagram browser.
package ui

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/mermaidchart/mmdsync/internal/keyword"
	"github.com/mermaidchart/mmdsync/internal/scan"
)

// ============================================================================
// Diagram Item
// ============================================================================

// diagramItem wraps a scan entry with display metadata
type diagramItem struct {
	entry scan.Entry
	label string // path relative to the browse root, with line
	kind  string // canonical diagram type
}

func newDiagramItem(e scan.Entry, root string) diagramItem {
	rel := e.Path
	if r, err := filepath.Rel(root, e.Path); err == nil {
		rel = r
	}
	return diagramItem{
		entry: e,
		label: rel + ":" + strconv.Itoa(e.Line),
		kind:  keyword.TypeOf(e.Keyword),
	}
}

// key identifies the diagram for the keyword tracker
func (item *diagramItem) key() string {
	if item.entry.ID != "" {
		return item.entry.ID
	}
	return item.label
}

// matchesQuery checks every search word against path, keyword, type and id.
// Words are expected lower-cased.
func (item *diagramItem) matchesQuery(words []string) bool {
	for _, word := range words {
		if !item.containsWord(word) {
			return false
		}
	}
	return true
}

func (item *diagramItem) containsWord(word string) bool {
	switch {
	case word == "linked":
		return item.entry.Connected()
	case word == "unlinked":
		return !item.entry.Connected()
	}
	return strings.Contains(strings.ToLower(item.label), word) ||
		strings.Contains(item.entry.Keyword, word) ||
		strings.Contains(item.kind, word) ||
		strings.Contains(string(item.entry.Format), word) ||
		strings.Contains(item.entry.ID, word)
}

// ============================================================================
// Debounce
// ============================================================================

// filterMsg triggers filtering after debounce
type filterMsg struct{}

func debounceFilter() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return filterMsg{}
	})
}

// ============================================================================
// Browse Model
// ============================================================================

const previewLines = 8

// browseModel lists diagrams with a filter line and a preview of the selection
type browseModel struct {
	width     int
	height    int
	textInput textinput.Model
	quitting  bool

	items    []diagramItem
	filtered []diagramItem
	cursor   int
	offset   int
	selected *scan.Entry

	tracker *keyword.Tracker
}

func newBrowseModel(entries []scan.Entry, root string, tracker *keyword.Tracker) browseModel {
	ti := textinput.New()
	ti.Placeholder = "Filter by path, keyword, linked/unlinked..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	items := make([]diagramItem, len(entries))
	for i, e := range entries {
		items[i] = newDiagramItem(e, root)
	}

	return browseModel{
		items:     items,
		filtered:  items,
		textInput: ti,
		tracker:   tracker,
	}
}

// Init implements tea.Model
func (m browseModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 4
	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}
	case filterMsg:
		m.filterItems()
		return m, nil
	case editorFinishedMsg:
		// the file may have changed under the cached keyword
		if m.tracker != nil {
			m.tracker.Forget(msg.key)
		}
		if msg.err != nil {
			logrus.WithError(msg.err).WithField("doc", msg.key).Debug("editor exited with an error")
		}
		return m, nil
	}

	prevQuery := m.textInput.Value()
	var tiCmd tea.Cmd
	m.textInput, tiCmd = m.textInput.Update(msg)
	cmds = append(cmds, tiCmd)

	if m.textInput.Value() != prevQuery {
		cmds = append(cmds, debounceFilter())
	}
	return m, tea.Batch(cmds...)
}

func (m *browseModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return tea.Quit
	case "enter":
		if m.cursor < len(m.filtered) {
			entry := m.filtered[m.cursor].entry
			m.selected = &entry
			return tea.Quit
		}
	case "up", "ctrl+p":
		m.moveCursor(-1)
	case "down", "ctrl+n":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-10)
	case "pgdown":
		m.moveCursor(10)
	case "home", "ctrl+a":
		m.cursor = 0
		m.adjustOffset()
	case "end", "ctrl+e":
		m.cursor = max(0, len(m.filtered)-1)
		m.adjustOffset()
	case "ctrl+o":
		if m.cursor < len(m.filtered) {
			item := m.filtered[m.cursor]
			return openInEditor(item.entry, item.key())
		}
	}
	return nil
}

func (m *browseModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(0, len(m.filtered)-1))
	m.adjustOffset()
}

// adjustOffset keeps the cursor inside the approximate list viewport
func (m *browseModel) adjustOffset() {
	viewHeight := max(m.height-previewLines-5, 3)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+viewHeight {
		m.offset = m.cursor - viewHeight + 1
	}
	m.offset = clamp(m.offset, 0, max(0, len(m.filtered)-viewHeight))
}

func (m *browseModel) filterItems() {
	query := strings.TrimSpace(m.textInput.Value())
	if query == "" {
		m.filtered = m.items
	} else {
		words := strings.Fields(strings.ToLower(query))
		m.filtered = make([]diagramItem, 0, len(m.items))
		for i := range m.items {
			if m.items[i].matchesQuery(words) {
				m.filtered = append(m.filtered, m.items[i])
			}
		}
	}
	m.cursor = clamp(m.cursor, 0, max(0, len(m.filtered)-1))
	m.adjustOffset()
}

// ============================================================================
// Rendering
// ============================================================================

// View implements tea.Model
func (m browseModel) View() string {
	if m.quitting && m.selected == nil {
		return ""
	}
	width := max(m.width, 80)
	height := max(m.height, 24)

	preview := m.renderPreview(width)
	inputLines := 3 // divider + info + input
	listHeight := max(height-countLines(preview)-inputLines, 3)
	list := m.renderList(listHeight)
	padding := max(height-countLines(preview)-countLines(list)-inputLines, 0)

	var b strings.Builder
	b.WriteString(preview)
	b.WriteString(list)
	b.WriteString(strings.Repeat("\n", padding))
	b.WriteString(m.renderInput(width))
	return b.String()
}

func (m browseModel) renderPreview(width int) string {
	var b strings.Builder
	lines := 0

	if m.cursor < len(m.filtered) {
		item := m.filtered[m.cursor]
		kw := item.entry.Keyword
		if m.tracker != nil {
			var changed bool
			if kw, changed = m.tracker.Observe(item.key(), item.entry.Body); changed {
				logrus.WithFields(logrus.Fields{"doc": item.key(), "keyword": kw}).Debug("keyword changed")
			}
		}

		header := item.label + "  " + string(item.entry.Format)
		if item.entry.Connected() {
			header += "  id " + item.entry.ID
		}
		b.WriteString(styles.PreviewHeader.Render(truncateString(header, width)))
		b.WriteString("\n")
		b.WriteString(styles.PreviewLink.Render(keyword.DocsURL(kw)))
		b.WriteString("\n")
		lines += 2

		body := truncateLines(strings.TrimRight(item.entry.Body, "\n"), previewLines-lines)
		b.WriteString(styles.PreviewBody.Render(body))
		b.WriteString("\n")
		lines += countLines(body)
	}

	for lines < previewLines {
		b.WriteString("\n")
		lines++
	}
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	return b.String()
}

func (m *browseModel) renderList(maxHeight int) string {
	if len(m.filtered) == 0 {
		return ""
	}
	start, end := scrollWindow(m.cursor, len(m.filtered), maxHeight, &m.offset)

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderListItem(m.filtered[i], i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m browseModel) renderListItem(item diagramItem, selected bool) string {
	pathStyle, kwStyle := styles.Path, styles.Keyword
	state, stateStyle := "○", styles.Unlinked
	if item.entry.Connected() {
		state, stateStyle = "●", styles.Linked
	}
	if selected {
		pathStyle = styles.WithSelection(pathStyle)
		kwStyle = styles.WithSelection(kwStyle)
		stateStyle = styles.WithSelection(stateStyle)
	}

	gap := "  "
	if selected {
		gap = styles.Selected.Render(gap)
	}
	line := stateStyle.Render(state) + gap +
		pathStyle.Render(fmt.Sprintf("%-40s", truncateString(item.label, 40))) + gap +
		kwStyle.Render(item.entry.Title())

	if selected {
		return styles.Cursor.Render("▶ ") + line
	}
	return "  " + line
}

func (m browseModel) renderInput(width int) string {
	var b strings.Builder
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(styles.Dim.Render(fmt.Sprintf("  %d/%d", len(m.filtered), len(m.items))))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("Enter print"))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("Ctrl+O open"))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("ESC exit"))
	b.WriteString("\n")
	b.WriteString(m.textInput.View())
	return b.String()
}

// ============================================================================
// Run
// ============================================================================

// getTTY returns file handles for TUI input/output, using /dev/tty when
// stdout is captured so the chosen diagram can still be piped
func getTTY() (in *os.File, out *os.File, cleanup func()) {
	var closers []func()

	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		out, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			out = os.Stderr
		} else {
			closers = append(closers, func() { out.Close() })
		}

		in, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			in = os.Stdin
		} else {
			closers = append(closers, func() { in.Close() })
		}

		lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(out))

		return in, out, func() {
			for _, c := range closers {
				c()
			}
		}
	}
	return os.Stdin, os.Stdout, func() {}
}

// RunBrowse shows the diagram browser and returns the chosen entry, or nil
// when the user quits without choosing
func RunBrowse(entries []scan.Entry, root, initialQuery string, tracker *keyword.Tracker) (*scan.Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no diagrams found under %s", root)
	}

	m := newBrowseModel(entries, root, tracker)
	if initialQuery != "" {
		m.textInput.SetValue(initialQuery)
		m.filterItems()
	}

	ttyIn, ttyOut, cleanup := getTTY()
	RefreshStyles()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(ttyOut), tea.WithInput(ttyIn))
	finalModel, err := p.Run()
	cleanup()
	if err != nil {
		return nil, err
	}

	return finalModel.(browseModel).selected, nil
}

// editorFinishedMsg reports that the editor opened with ctrl+o has exited
type editorFinishedMsg struct {
	key string
	err error
}

// openInEditor opens the file at the diagram's line. $EDITOR takes over the
// terminal until it exits; without it the system default viewer is started
// in the background.
func openInEditor(e scan.Entry, key string) tea.Cmd {
	if editor := os.Getenv("EDITOR"); editor != "" {
		c := exec.Command(editor, "+"+strconv.Itoa(e.Line), e.Path)
		return tea.ExecProcess(c, func(err error) tea.Msg {
			return editorFinishedMsg{key: key, err: err}
		})
	}

	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", e.Path)
	case "windows":
		c = exec.Command("cmd", "/c", "start", "", e.Path)
	default:
		c = exec.Command("xdg-open", e.Path)
	}
	if err := c.Start(); err != nil {
		logrus.WithError(err).WithField("file", e.Path).Debug("opening viewer failed")
	}
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func clamp(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// scrollWindow calculates the visible range for a scrollable list
func scrollWindow(cursor, total, height int, offset *int) (start, end int) {
	if cursor < *offset {
		*offset = cursor
	}
	if cursor >= *offset+height {
		*offset = cursor - height + 1
	}
	*offset = clamp(*offset, 0, max(0, total-height))

	start = *offset
	end = min(start+height, total)
	return
}

func truncateString(s string, maxLen int) string {
	if maxLen <= 3 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func truncateLines(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		return strings.Join(lines[:maxLines], "\n") + "..."
	}
	return text
}
