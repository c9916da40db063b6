package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dami4lola/Ea-script/internal/autofill"
	"github.com/Dami4lola/Ea-script/internal/locks"
	"github.com/Dami4lola/Ea-script/internal/packs"
	"github.com/Dami4lola/Ea-script/internal/session"
	"github.com/Dami4lola/Ea-script/internal/surface"
	"github.com/Dami4lola/Ea-script/internal/templates"
)

type tab int

const (
	tabSBC tab = iota
	tabPacks
	tabLocks
)

var tabNames = []string{"SBC Mode", "Pack Mode", "Locks"}

// statusRefresh matches the readiness probe cadence.
const statusRefresh = 900 * time.Millisecond

type tickMsg time.Time

type captureMsg struct {
	tpl templates.Template
	err error
}

type runMsg struct {
	res autofill.Result
	err error
}

type packsMsg struct {
	rep packs.Report
	err error
}

type clubMsg struct {
	items []surface.Item
	err   error
}

type templateItem struct {
	summary  templates.Summary
	selected bool
}

func (i templateItem) Title() string {
	if i.selected {
		return "● " + i.summary.ChallengeID
	}
	return "  " + i.summary.ChallengeID
}
func (i templateItem) Description() string { return fmt.Sprintf("%d slots", i.summary.SlotCount) }
func (i templateItem) FilterValue() string { return i.summary.ChallengeID }

type lockItem struct {
	id     string
	meta   locks.Meta
	label  string
	locked bool
}

func (i lockItem) Title() string {
	if i.locked {
		return "🔒 " + i.label
	}
	return "🔓 " + i.label
}
func (i lockItem) Description() string { return i.id }
func (i lockItem) FilterValue() string { return i.label }

// Model is the dock.
type Model struct {
	ctx    context.Context
	s      *session.Session
	styles Styles
	keys   keyMap
	help   help.Model

	tab       tab
	templates list.Model
	locks     list.Model
	spinner   spinner.Model

	club     []surface.Item
	running  string
	lastPack *packs.Report
	message  string
	isError  bool

	width  int
	height int
}

func newList(title string, styles Styles) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = styles.Header
	return l
}

// New creates the dock over s. Automations started from the dock run with ctx.
func New(ctx context.Context, s *session.Session) Model {
	styles := DefaultStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Counter

	m := Model{
		ctx:       ctx,
		s:         s,
		styles:    styles,
		keys:      defaultKeyMap(),
		help:      help.New(),
		templates: newList("Templates", styles),
		locks:     newList("Locked players", styles),
		spinner:   sp,
	}
	m.refreshTemplates()
	m.refreshLocks()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(statusRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the status refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func (m *Model) refreshTemplates() {
	selected := m.s.Selected()
	summaries := m.s.Templates.List()
	items := make([]list.Item, 0, len(summaries))
	cursor := 0
	for i, sum := range summaries {
		if sum.ChallengeID == selected {
			cursor = i
		}
		items = append(items, templateItem{summary: sum, selected: sum.ChallengeID == selected})
	}
	m.templates.SetItems(items)
	m.templates.Select(cursor)
}

func (m *Model) refreshLocks() {
	entries := m.s.Locks.List()
	items := make([]list.Item, 0, len(entries)+len(m.club))
	for _, e := range entries {
		items = append(items, lockItem{id: e.ID, label: e.Format(), locked: true})
	}
	for _, it := range m.club {
		if m.s.Locks.IsLocked(it.ID) {
			continue
		}
		meta := locks.MetaFromItem(it)
		label := (locks.Entry{Name: it.Name, Rating: it.Rating, Pos: it.PreferredPosition}).Format()
		items = append(items, lockItem{id: it.ID, meta: meta, label: label})
	}
	m.locks.SetItems(items)
}

func (m *Model) setMessage(msg string, isErr bool) {
	m.message = msg
	m.isError = isErr
}

func (m *Model) setError(err error) {
	m.setMessage(surface.GuidanceOf(err), true)
}

func (m Model) captureCmd() tea.Cmd {
	return func() tea.Msg {
		tpl, err := m.s.CaptureTemplate(m.ctx)
		return captureMsg{tpl: tpl, err: err}
	}
}

// runCmd performs a run reserved with BeginSelected.
func (m Model) runCmd(run func(context.Context) (autofill.Result, error)) tea.Cmd {
	return func() tea.Msg {
		res, err := run(m.ctx)
		return runMsg{res: res, err: err}
	}
}

func (m Model) packsCmd() tea.Cmd {
	return func() tea.Msg {
		rep, err := m.s.OpenPacks(m.ctx)
		return packsMsg{rep: rep, err: err}
	}
}

func (m Model) clubCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.s.Gate.Require("load club", surface.Inventory); err != nil {
			return clubMsg{err: err}
		}
		club, ok := m.s.Services().Club()
		if !ok {
			return clubMsg{err: surface.Unavailable("load club", surface.Inventory)}
		}
		items, err := club.RequestClubPlayers(m.ctx)
		return clubMsg{items: items, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := msg.Height - 9
		if h < 3 {
			h = 3
		}
		m.templates.SetSize(msg.Width-4, h)
		m.locks.SetSize(msg.Width-4, h)
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case captureMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setMessage(fmt.Sprintf("Template saved for SBC: %s", msg.tpl.ChallengeID), false)
		}
		m.refreshTemplates()
		return m, nil

	case runMsg:
		m.running = ""
		switch {
		case msg.err != nil:
			m.setError(msg.err)
		case msg.res.Outcome == autofill.Exhausted:
			m.setMessage(fmt.Sprintf("No more players. %d submitted this run.", msg.res.Passes), false)
		default:
			m.setMessage(fmt.Sprintf("Stopped. %d submitted this run.", msg.res.Passes), false)
		}
		return m, nil

	case packsMsg:
		m.running = ""
		m.lastPack = &msg.rep
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setMessage("All packs opened!", false)
		}
		return m, nil

	case clubMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.club = msg.items
		m.refreshLocks()
		m.setMessage(fmt.Sprintf("Loaded %d club players.", len(msg.items)), false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.s.StopAutofill()
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % tab(len(tabNames))
		return m, nil
	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames))
		return m, nil
	}

	switch m.tab {
	case tabSBC:
		switch {
		case key.Matches(msg, m.keys.Save):
			return m, m.captureCmd()
		case key.Matches(msg, m.keys.Select):
			if it, ok := m.templates.SelectedItem().(templateItem); ok {
				m.s.Select(it.summary.ChallengeID)
				m.refreshTemplates()
				m.setMessage("Selected "+it.summary.ChallengeID, false)
			}
			return m, nil
		case key.Matches(msg, m.keys.Start):
			if m.running != "" {
				m.setMessage(m.running+" is already running", true)
				return m, nil
			}
			run, err := m.s.BeginSelected()
			if err != nil {
				m.setError(err)
				return m, nil
			}
			m.running = session.AutomationAutofill
			m.setMessage("Auto running…", false)
			return m, tea.Batch(m.runCmd(run), m.spinner.Tick)
		case key.Matches(msg, m.keys.Stop):
			m.s.StopAutofill()
			if m.running == session.AutomationAutofill {
				m.setMessage("Stopping after the current pass…", false)
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if it, ok := m.templates.SelectedItem().(templateItem); ok {
				if err := m.s.Templates.Delete(it.summary.ChallengeID); err != nil {
					m.setError(err)
				} else {
					if m.s.Selected() == it.summary.ChallengeID {
						m.s.Select("")
					}
					m.setMessage("Deleted "+it.summary.ChallengeID, false)
				}
				m.refreshTemplates()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.templates, cmd = m.templates.Update(msg)
		return m, cmd

	case tabPacks:
		if key.Matches(msg, m.keys.Open) {
			if m.running != "" {
				m.setMessage(m.running+" is already running", true)
				return m, nil
			}
			m.running = session.AutomationPacks
			m.setMessage("Opening all packs…", false)
			return m, tea.Batch(m.packsCmd(), m.spinner.Tick)
		}
		return m, nil

	case tabLocks:
		switch {
		case key.Matches(msg, m.keys.Refresh):
			return m, m.clubCmd()
		case key.Matches(msg, m.keys.Toggle):
			if it, ok := m.locks.SelectedItem().(lockItem); ok {
				locked, err := m.s.Locks.Toggle(it.id, it.meta)
				if err != nil {
					m.setError(err)
				} else if locked {
					m.setMessage("Locked "+it.label, false)
				} else {
					m.setMessage("Unlocked "+it.label, false)
				}
				m.refreshLocks()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.locks, cmd = m.locks.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.tab {
			parts = append(parts, m.styles.ActiveTab.Render(name))
		} else {
			parts = append(parts, m.styles.Tab.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderBody() string {
	var b strings.Builder
	switch m.tab {
	case tabSBC:
		if len(m.templates.Items()) == 0 {
			b.WriteString(m.styles.Muted.Render("No templates saved. Open an SBC and press s."))
		} else {
			b.WriteString(m.templates.View())
		}
		b.WriteString("\n")
		b.WriteString("Completed: " + m.styles.Counter.Render(fmt.Sprintf("%d", m.s.Loop.Completed())))
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("Tip: Open an SBC first so services load."))
	case tabPacks:
		b.WriteString("Press o to open all packs.\n")
		if m.lastPack != nil {
			fmt.Fprintf(&b, "Last run: opened %d/%d, distributed %d\n", m.lastPack.Opened, m.lastPack.Total, m.lastPack.Distributed)
		}
		b.WriteString(m.styles.Help.Render("Go to Store → My Packs first."))
	case tabLocks:
		if len(m.locks.Items()) == 0 {
			b.WriteString(m.styles.Muted.Render("No locked players"))
		} else {
			b.WriteString(m.locks.View())
		}
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("Press f to load your club, enter to lock or unlock."))
	}
	return m.styles.Panel.Render(b.String())
}

func (m Model) renderStatus() string {
	st := m.s.Status()
	line := st.Readiness.Line()
	if m.running != "" {
		line = m.spinner.View() + " " + m.running + " · " + line
	}
	return m.styles.Footer.Render(line)
}

// View renders the dock.
func (m Model) View() string {
	sections := []string{
		m.styles.Header.Render("EA Tools"),
		m.renderTabs(),
		m.renderBody(),
	}
	if m.message != "" {
		style := m.styles.Success
		if m.isError {
			style = m.styles.Error
		}
		sections = append(sections, style.Render(m.message))
	}
	sections = append(sections, m.renderStatus(), m.help.View(m.keys))
	return m.styles.App.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// Run starts the dock and blocks until the operator quits.
func Run(ctx context.Context, s *session.Session) error {
	p := tea.NewProgram(New(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
