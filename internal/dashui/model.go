// Package dashui provides the Bubble Tea dashboard interface.
package dashui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/xpdash/internal/dashboard"
	"github.com/verte-zerg/xpdash/internal/render"
	"github.com/verte-zerg/xpdash/internal/session"
)

const (
	tabOverview = iota
	tabProjects
	tabCollaborators
	tabActivity
)

const (
	plotHeight = 10
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#9969FF"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Refresher is the part of the dashboard controller the UI drives.
type Refresher interface {
	Refresh(ctx context.Context) (dashboard.Result, error)
}

// TextSource exposes the summary values written by the controller.
type TextSource interface {
	Text(id string) (string, bool)
}

type refreshMsg struct {
	result dashboard.Result
	err    error
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	ctrl  Refresher
	texts TextSource

	result     dashboard.Result
	errMsg     string
	refreshing bool
	loggedOut  bool

	tabs      []string
	activeTab int
	overview  viewport.Model
	tables    map[int]*table.Model

	width  int
	height int
}

// NewModel constructs a dashboard model around an already rendered result.
func NewModel(ctrl Refresher, texts TextSource, result dashboard.Result) *Model {
	m := &Model{
		ctrl:     ctrl,
		texts:    texts,
		result:   result,
		tabs:     []string{"Overview", "Projects", "Collaborators", "Activity"},
		overview: viewport.New(0, 0),
		tables:   map[int]*table.Model{},
	}
	for _, tab := range []int{tabProjects, tabCollaborators, tabActivity} {
		t := buildTable(tableColumns(tab), nil, 0, 1)
		m.tables[tab] = &t
	}
	m.applyResult()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderOverview()
		return m, nil
	case refreshMsg:
		m.refreshing = false
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrAuthExpired) {
				m.loggedOut = true
				m.result = dashboard.Result{}
				m.applyResult()
				m.errMsg = "Session expired. Run `xpdash login` to sign in again."
				return m, nil
			}
			m.errMsg = fmt.Sprintf("Refresh failed: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.result = msg.result
		m.applyResult()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "r":
			if m.refreshing || m.loggedOut {
				return m, nil
			}
			m.refreshing = true
			return m, refreshCmd(m.ctrl)
		case "g", "home":
			if t, ok := m.tables[m.activeTab]; ok {
				t.GotoTop()
			} else {
				m.overview.GotoTop()
			}
			return m, nil
		case "G", "end":
			if t, ok := m.tables[m.activeTab]; ok {
				t.GotoBottom()
			} else {
				m.overview.GotoBottom()
			}
			return m, nil
		default:
			var cmd tea.Cmd
			if t, ok := m.tables[m.activeTab]; ok {
				*t, cmd = t.Update(msg)
				return m, cmd
			}
			m.overview, cmd = m.overview.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func refreshCmd(ctrl Refresher) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Refresh(context.Background())
		return refreshMsg{result: res, err: err}
	}
}

func (m *Model) applyResult() {
	s := m.result.Stats
	m.tables[tabProjects].SetRows(toRows(render.ProjectRows(s.TopProjects)))
	m.tables[tabCollaborators].SetRows(toRows(render.CollaboratorRows(s.TopCollaborators)))
	m.tables[tabActivity].SetRows(toRows(render.ActivityRows(s.RecentActivity)))
	m.renderOverview()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	for _, t := range m.tables {
		t.SetWidth(m.width)
		t.SetHeight(maxInt(1, bodyHeight-1))
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	for tab, t := range m.tables {
		if tab == m.activeTab {
			t.Focus()
		} else {
			t.Blur()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), m.renderUserLine())
}

func (m *Model) renderUserLine() string {
	if m.loggedOut {
		return headerStyle.Render("Signed out")
	}
	login := m.text(dashboard.TextUserLogin)
	line := fmt.Sprintf("[%s] %s  id=%s", m.text(dashboard.TextUserAvatar), login, m.text(dashboard.TextUserID))
	if skipped := m.result.Summary.Skipped; skipped != "" {
		line += fmt.Sprintf("  (%s malformed records skipped)", skipped)
	}
	return headerStyle.Render(runewidth.Truncate(line, m.width, "..."))
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Refresh: r  Quit: q"
	if m.refreshing {
		help = "Refreshing...  Quit: q"
	}
	footer := headerStyle.Render(help)
	if m.errMsg != "" {
		footer += "\n" + errorStyle.Render(m.errMsg)
	}
	return footer
}

func (m *Model) renderBody(height int) string {
	t, ok := m.tables[m.activeTab]
	if !ok {
		return fitLines(m.overview.View(), m.width, height)
	}
	if len(t.Rows()) == 0 {
		return fitLines(emptyMessage(m.activeTab), m.width, height)
	}
	return fitLines(tableMutedStyle.Render(t.View()), m.width, height)
}

func (m *Model) renderOverview() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	if m.loggedOut || m.result.Summary.Login == "" {
		m.overview.SetContent(render.NoXPData)
		return
	}
	cards := m.renderSummaryCards(width)
	timeline := renderTimeline(m.result, width)
	m.overview.SetContent(strings.TrimRight(cards+"\n\n"+timeline, "\n"))
}

func (m *Model) renderSummaryCards(width int) string {
	cards := []string{
		metricCard("Total XP", m.text(dashboard.TextTotalXP)),
		metricCard("Audit ratio", m.text(dashboard.TextAuditRatio)),
		metricCard("Projects passed", m.text(dashboard.TextProjectsPassed)),
		metricCard("Success rate", m.text(dashboard.TextSuccessRate)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m *Model) text(id string) string {
	if m.texts == nil {
		return render.NotAvailable
	}
	v, ok := m.texts.Text(id)
	if !ok || v == "" {
		return render.NotAvailable
	}
	return v
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderTimeline(res dashboard.Result, width int) string {
	if len(res.Stats.XPTimeline) == 0 {
		return render.NoXPData
	}
	var maxXP int64
	for _, p := range res.Stats.XPTimeline {
		if p.CumulativeXP > maxXP {
			maxXP = p.CumulativeXP
		}
	}
	plotWidth := render.PlotWidthFor(width, lipgloss.Width(render.FormatXP(maxXP)))
	var buf bytes.Buffer
	if err := render.TimelinePlot(&buf, "Cumulative XP", res.Stats.XPTimeline, plotWidth, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render timeline: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func emptyMessage(tab int) string {
	switch tab {
	case tabProjects:
		return render.NoProjectData
	case tabCollaborators:
		return render.NoCollaborationData
	default:
		return "No recent activity"
	}
}

func tableColumns(tab int) []table.Column {
	switch tab {
	case tabProjects:
		return []table.Column{
			{Title: "#", Width: 3},
			{Title: "Project", Width: 28},
			{Title: "XP", Width: 10},
		}
	case tabCollaborators:
		return []table.Column{
			{Title: "#", Width: 3},
			{Title: "Login", Width: 24},
			{Title: "Shared projects", Width: 15},
		}
	default:
		return []table.Column{
			{Title: "Date", Width: 10},
			{Title: "Type", Width: 6},
			{Title: "Project", Width: 28},
			{Title: "Amount", Width: 10},
		}
	}
}

func buildTable(columns []table.Column, rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func toRows(rows [][]string) []table.Row {
	out := make([]table.Row, len(rows))
	for i, row := range rows {
		out[i] = table.Row(row)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// fitLines pads or clips s to exactly width x height cells.
func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	return lipgloss.NewStyle().
		Width(width).MaxWidth(width).
		Height(height).MaxHeight(height).
		Render(s)
}
