package ui

import (
	"log"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"cseek/internal/config"
	"cseek/internal/domain"
	"cseek/internal/eventbus"
	"cseek/internal/position"
	"cseek/internal/query"
	"cseek/internal/results"
)

// KeyMap defines the key bindings for the search interaction
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Commit     key.Binding
	Abort      key.Binding
	CycleType  key.Binding
	Pager      key.Binding
	Help       key.Binding
	RecallSeed key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:         key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "previous")),
		Down:       key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next")),
		PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Commit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "jump")),
		Abort:      key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "abort")),
		CycleType:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "search type")),
		Pager:      key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open in pager")),
		Help:       key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		RecallSeed: key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "recall query")),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Commit, k.CycleType, k.Pager, k.Help, k.Abort}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Commit, k.Abort, k.CycleType, k.RecallSeed},
		{k.Pager, k.Help},
	}
}

// Model represents the UI state for one search interaction
type Model struct {
	bus      eventbus.EventBus
	config   *config.Config
	styles   *Styles
	keys     KeyMap
	splitter *query.Splitter
	resolver *position.Resolver
	db       domain.DatabaseLocation

	input    textinput.Model
	spin     spinner.Model
	helpView help.Model
	helpOps  *HelpOps

	searchType     domain.SearchType
	withAssignment bool

	session     uint64             // newest session id seen by the UI
	candidates  []domain.Candidate // emission-ordered, current session only
	filterTerms []string
	selected    int // index into visible()
	running     bool
	total       int

	status    string
	statusErr bool

	seed      string // query text offered via the recall key
	committed *domain.PositionMarker

	width  int
	height int

	terminate func() // kills the orchestrator on interaction exit
}

// NewModel creates a new UI model
func NewModel(
	bus eventbus.EventBus,
	cfg *config.Config,
	splitter *query.Splitter,
	resolver *position.Resolver,
	db domain.DatabaseLocation,
	withAssignment bool,
	initialType domain.SearchType,
	seed string,
	terminate func(),
) *Model {
	ti := textinput.New()
	ti.Prompt = "" // rendered separately so the prompt can carry the search type
	ti.Placeholder = "#pattern#filter -- flags"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := &Model{
		bus:            bus,
		config:         cfg,
		styles:         NewStyles(),
		keys:           DefaultKeyMap(),
		splitter:       splitter,
		resolver:       resolver,
		db:             db,
		input:          ti,
		spin:           sp,
		helpView:       help.New(),
		helpOps:        NewHelpOps(),
		searchType:     initialType,
		withAssignment: withAssignment,
		seed:           seed,
		terminate:      terminate,
		width:          80,
		height:         24,
	}

	if seed != "" && cfg.Query.PrefillQuery {
		m.input.SetValue(seed)
		m.input.CursorEnd()
		m.seed = ""
	}

	return m
}

// SetProgram hands the model its running program, needed to release the
// terminal around the external pager.
func (m *Model) SetProgram(p *tea.Program) {
	m.helpOps.SetProgram(p)
}

// Committed returns the final jump target, if the user committed to one
func (m *Model) Committed() *domain.PositionMarker {
	return m.committed
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spin.Tick}
	if m.input.Value() != "" {
		m.publishQuery()
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.helpView.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, nil

	case pagerMsg:
		if msg.err != nil {
			m.setError("pager: " + msg.err.Error())
		}
		return m, nil

	case helpPagerMsg:
		if msg.err != nil {
			m.setError("help: " + msg.err.Error())
		}
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Abort):
		return m.abort()

	case key.Matches(msg, m.keys.Commit):
		return m.commit()

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.moveSelection(-m.listHeight())
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.moveSelection(m.listHeight())
		return m, nil

	case key.Matches(msg, m.keys.CycleType):
		m.searchType = m.searchType.Next(m.withAssignment)
		m.publishQuery()
		return m, nil

	case key.Matches(msg, m.keys.Pager):
		if c, ok := m.selectedCandidate(); ok {
			return m, m.showInPager(m.resolver.Path(c))
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		return m, m.showHelp()

	case key.Matches(msg, m.keys.RecallSeed):
		if m.seed != "" {
			m.input.SetValue(m.seed)
			m.input.CursorEnd()
			m.seed = ""
			m.publishQuery()
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.publishQuery()
	}
	return m, cmd
}

// publishQuery announces the current input so the orchestrator can
// supersede the running search. Filter terms narrow locally without a
// relaunch only when the subprocess-relevant parts are unchanged; the
// orchestrator compiles the same pattern either way, so republishing is
// harmless and keeps the flow single-path.
func (m *Model) publishQuery() {
	raw := m.input.Value()
	split := m.splitter.Split(raw)
	m.filterTerms = split.FilterTerms
	m.selected = 0
	m.bus.Publish(eventbus.QueryChangedEvent{Raw: raw, SearchType: m.searchType})
}

// handleEvent folds a domain event into the UI state. Candidate batches from
// superseded sessions are dropped here as well; the orchestrator's gate and
// this one together guarantee no stale output is ever displayed.
func (m *Model) handleEvent(event eventbus.DomainEvent) {
	switch e := event.(type) {
	case eventbus.SearchStartedEvent:
		if e.Session < m.session {
			return
		}
		m.beginSession(e.Session)
		m.running = true
		m.clearStatus()

	case eventbus.CandidatesFoundEvent:
		if e.Session < m.session {
			return // stale session, discard
		}
		if e.Session > m.session {
			m.beginSession(e.Session)
		}
		m.candidates = append(m.candidates, e.Candidates...)
		m.clampSelection()

	case eventbus.SearchFinishedEvent:
		if e.Session < m.session {
			return
		}
		if e.Session > m.session {
			m.beginSession(e.Session)
		}
		m.running = false
		m.total = e.Total

	case eventbus.SearchFailedEvent:
		if e.Session < m.session {
			return
		}
		m.beginSession(e.Session)
		m.running = false
		m.setError(e.Reason)

	case eventbus.IndexRebuiltEvent:
		m.status = "index rebuilt, refreshing results"
		m.statusErr = false

	case eventbus.ErrorEvent:
		m.setError(e.Message)
	}
}

// beginSession resets per-session result state
func (m *Model) beginSession(id uint64) {
	if id > m.session {
		m.session = id
	}
	m.candidates = nil
	m.selected = 0
	m.total = 0
}

// visible returns the candidates surviving the secondary filter terms, in
// emission order.
func (m *Model) visible() []domain.Candidate {
	if len(m.filterTerms) == 0 {
		return m.candidates
	}
	filtered := make([]domain.Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		if results.MatchesFilter(c, m.filterTerms) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// selectedCandidate returns the candidate under the cursor
func (m *Model) selectedCandidate() (domain.Candidate, bool) {
	visible := m.visible()
	if len(visible) == 0 || m.selected < 0 || m.selected >= len(visible) {
		return domain.Candidate{}, false
	}
	return visible[m.selected], true
}

// moveSelection moves the cursor and previews the newly selected candidate
func (m *Model) moveSelection(delta int) {
	visible := m.visible()
	if len(visible) == 0 {
		return
	}
	m.selected += delta
	m.clampSelection()

	c := visible[m.selected]
	if _, err := m.resolver.Resolve(c, true); err != nil {
		log.Printf("ui: preview failed: %v", err)
		m.setError("cannot preview " + c.File)
	}
}

func (m *Model) clampSelection() {
	n := len(m.visible())
	if n == 0 {
		m.selected = 0
		return
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected >= n {
		m.selected = n - 1
	}
}

// commit resolves the selected candidate through the permanent path, closes
// every preview-only buffer and ends the interaction.
func (m *Model) commit() (tea.Model, tea.Cmd) {
	c, ok := m.selectedCandidate()
	if !ok {
		return m, nil
	}

	marker, err := m.resolver.Resolve(c, false)
	if err != nil {
		m.setError("cannot open " + c.File)
		return m, nil
	}
	m.committed = &marker

	m.resolver.ClosePreview()
	if m.terminate != nil {
		m.terminate()
	}
	return m, tea.Quit
}

// abort ends the interaction without a jump target
func (m *Model) abort() (tea.Model, tea.Cmd) {
	m.resolver.ClosePreview()
	if m.terminate != nil {
		m.terminate()
	}
	return m, tea.Quit
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusErr = true
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusErr = false
}
