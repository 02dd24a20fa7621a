package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/familytree/pkg/config"
	"github.com/vanderheijden86/familytree/pkg/debug"
	"github.com/vanderheijden86/familytree/pkg/familytree"
	"github.com/vanderheijden86/familytree/pkg/loader"
	"github.com/vanderheijden86/familytree/pkg/metrics"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/search"
	"github.com/vanderheijden86/familytree/pkg/session"
	"github.com/vanderheijden86/familytree/pkg/watcher"
)

// View width thresholds for adaptive layout
const (
	SplitViewThreshold = 100
	MinDetailPaneWidth = 40
)

// ViewMode selects how the family is laid out.
type ViewMode int

const (
	ViewList ViewMode = iota // generations in document order
	ViewTree                 // father/child tree
)

func (v ViewMode) String() string {
	if v == ViewTree {
		return "tree"
	}
	return "list"
}

// focus represents which UI element has keyboard focus
type focus int

const (
	focusMain focus = iota
	focusSearch
	focusFilters
	focusDetail
)

// Options configures the UI.
type Options struct {
	Config config.Config
	// Gate answers whether the viewer is signed in. Nil means no login.
	Gate session.Gate
	Load LoadFunc
	// Source names where data comes from, shown while loading.
	Source string
	// Reloader, when set, delivers fresh data after the file changes.
	Reloader *watcher.Reloader
	// StateDir keeps tree expand/collapse state across runs.
	StateDir string
	Context  context.Context
	Renderer *lipgloss.Renderer
}

// Model is the main Bubble Tea model for ftv.
type Model struct {
	cfg      config.Config
	gate     session.Gate
	load     LoadFunc
	ctx      context.Context
	reloader *watcher.Reloader
	source   string

	// Data
	loading  bool
	data     model.FamilyData
	tree     model.FamilyData
	byID     map[string]*model.Person
	treeByID map[string]*model.Person
	genOf    map[string]string
	loadErr  string
	result   search.Result

	// UI Components
	theme       Theme
	list        ListModel
	treeView    TreeModel
	filters     FilterPanel
	detail      DetailModel
	searchInput textinput.Model
	spinner     spinner.Model

	mode        ViewMode
	focused     focus
	showFilters bool
	showDetail  bool
	showHelp    bool
	width       int
	height      int

	searchSeq  int
	debounce   time.Duration
	maxResults int

	statusMsg     string
	statusIsError bool
	loggedOut     bool
}

// NewModel creates the UI. Data is loaded asynchronously by Init.
func NewModel(opts Options) Model {
	cfg := opts.Config
	r := opts.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	theme := DefaultTheme(r)
	gate := opts.Gate
	if gate == nil {
		gate = session.Open{}
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ti := textinput.New()
	ti.Placeholder = "搜索家族成员姓名、信息或年份..."
	ti.Prompt = "🔍 "
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = r.NewStyle().Foreground(ColorInfo).Bold(true)

	m := Model{
		cfg:         cfg,
		gate:        gate,
		load:        opts.Load,
		ctx:         ctx,
		reloader:    opts.Reloader,
		source:      opts.Source,
		loading:     opts.Load != nil,
		data:        model.Empty(),
		tree:        model.EmptyTree(),
		theme:       theme,
		list:        NewListModel(theme),
		treeView:    NewTreeModel(theme),
		filters:     NewFilterPanel(theme),
		detail:      NewDetailModel(MinDetailPaneWidth, 20),
		searchInput: ti,
		spinner:     sp,
		debounce:    cfg.UI.SearchDebounce,
		maxResults:  cfg.UI.MaxResults,
		width:       120,
		height:      40,
	}
	if m.debounce <= 0 {
		m.debounce = config.DefaultConfig().UI.SearchDebounce
	}
	if cfg.UI.DefaultView == "tree" {
		m.mode = ViewTree
	}
	m.filters.SetSearchInInfo(cfg.UI.SearchInInfo)
	m.treeView.SetStateDir(opts.StateDir)
	m.setData(model.Empty())
	m.layout()
	return m
}

// Init starts the initial load and the reload watcher.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.load != nil {
		cmds = append(cmds, m.spinner.Tick, LoadDataCmd(m.ctx, m.load))
	}
	if m.reloader != nil {
		cmds = append(cmds, WaitForReloadCmd(m.reloader))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case DataLoadedMsg:
		m.loading = false
		data, note := loader.Fallback(msg.Data, msg.Err)
		m.loadErr = note
		if msg.Err != nil {
			m.setStatus(msg.Err.Error(), true)
		}
		debug.LogTiming("ui data load", msg.Duration)
		m.setData(data)

	case ReloadMsg:
		if msg.Err != nil {
			m.setStatus("重新加载失败: "+msg.Err.Error(), true)
		} else {
			m.loadErr = ""
			m.setData(msg.Data)
			m.setStatus("已重新加载 "+msg.At.Format("15:04:05"), false)
		}
		if m.reloader != nil {
			cmds = append(cmds, WaitForReloadCmd(m.reloader))
		}

	case searchDebounceMsg:
		if msg.seq == m.searchSeq {
			m.runSearch()
		}

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)
	}

	m.layout()
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch m.focused {
	case focusSearch:
		return m.handleSearchKeys(msg)
	case focusFilters:
		return m.handleFilterKeys(msg)
	case focusDetail:
		return m.handleDetailKeys(msg), nil
	}
	return m.handleMainKeys(msg)
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchInput.Blur()
		m.focused = focusMain
		return m, nil
	case "enter":
		m.searchInput.Blur()
		m.focused = focusMain
		m.searchSeq++
		m.runSearch()
		return m, nil
	}
	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() == before {
		return m, cmd
	}
	m.searchSeq++
	return m, tea.Batch(cmd, searchDebounceCmd(m.debounce, m.searchSeq))
}

func (m Model) handleFilterKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.filters.Blur()
		m.focused = focusMain
		return m, nil
	}
	var changed bool
	var cmd tea.Cmd
	m.filters, changed, cmd = m.filters.Update(msg)
	if changed {
		m.runSearch()
	}
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc", "tab":
		m.focused = focusMain
	case "j", "down":
		m.detail.ScrollDown(1)
	case "k", "up":
		m.detail.ScrollUp(1)
	case "ctrl+d", "pgdown":
		m.detail.ScrollDown(max(1, m.bodyHeight()/2))
	case "ctrl+u", "pgup":
		m.detail.ScrollUp(max(1, m.bodyHeight()/2))
	case "q":
		m.focused = focusMain
		m.showDetail = false
	}
	return m
}

func (m Model) handleMainKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "/":
		m.focused = focusSearch
		return m, m.searchInput.Focus()
	case "f":
		if m.showFilters {
			m.showFilters = false
			return m, nil
		}
		m.showFilters = true
		m.focused = focusFilters
		m.filters.Focus()
		return m, nil
	case "v":
		m.toggleMode()
		return m, nil
	case "tab":
		if m.showDetail && m.width >= SplitViewThreshold {
			m.focused = focusDetail
			return m, nil
		}
		m.showDetail = !m.showDetail
		m.syncDetail()
		return m, nil
	case "esc":
		if m.showDetail {
			m.showDetail = false
			return m, nil
		}
		if m.result.Active {
			m.clearSearch()
		}
		return m, nil
	case "c":
		m.clearSearch()
		return m, nil
	case "y":
		m.copySelectedID()
		return m, nil
	case "r":
		if m.load == nil {
			return m, nil
		}
		m.setStatus("正在重新加载…", false)
		return m, LoadDataCmd(m.ctx, m.load)
	case "O":
		if !m.cfg.Auth.Required {
			return m, nil
		}
		if err := m.gate.Logout(); err != nil {
			m.setStatus("退出登录失败: "+err.Error(), true)
			return m, nil
		}
		m.loggedOut = true
		return m, tea.Quit
	}

	if m.mode == ViewTree {
		m.handleTreeKeys(msg)
	} else {
		m.handleListKeys(msg)
	}
	m.syncDetail()
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) {
	switch msg.String() {
	case "j", "down":
		m.list.MoveDown()
	case "k", "up":
		m.list.MoveUp()
	case "g", "home":
		m.list.JumpToTop()
	case "G", "end":
		m.list.JumpToBottom()
	case "ctrl+d", "pgdown":
		m.list.PageDown()
	case "ctrl+u", "pgup":
		m.list.PageUp()
	case "enter":
		m.showDetail = true
	}
}

func (m *Model) handleTreeKeys(msg tea.KeyMsg) {
	switch msg.String() {
	case "j", "down":
		m.treeView.MoveDown()
	case "k", "up":
		m.treeView.MoveUp()
	case "g", "home":
		m.treeView.JumpToTop()
	case "G", "end":
		m.treeView.JumpToBottom()
	case "ctrl+d", "pgdown":
		m.treeView.PageDown()
	case "ctrl+u", "pgup":
		m.treeView.PageUp()
	case "enter", " ":
		m.treeView.ToggleExpand()
	case "l", "right":
		m.treeView.ExpandOrMoveToChild()
	case "h", "left":
		m.treeView.CollapseOrJumpToParent()
	case "p":
		m.treeView.JumpToParent()
	case "E":
		m.treeView.ToggleExpandCollapseAll()
	}
}

func (m *Model) toggleMode() {
	var selected *model.Person
	if m.mode == ViewList {
		selected = m.list.SelectedPerson()
		m.mode = ViewTree
		if selected != nil {
			m.treeView.SelectByID(selected.ID)
		}
	} else {
		selected = m.treeView.SelectedPerson()
		m.mode = ViewList
		if selected != nil {
			m.list.reselect(m.byID[selected.ID])
		}
	}
	m.syncDetail()
}

// setData replaces the record store and recomputes every derived view.
func (m *Model) setData(data model.FamilyData) {
	m.data = data
	m.tree = familytree.Build(data)

	m.byID = make(map[string]*model.Person, data.PersonCount())
	for _, g := range data.Generations {
		for _, p := range g.People {
			if p.HasID() {
				m.byID[p.ID] = p
			}
		}
	}
	m.genOf = data.GenerationOf()
	m.treeByID = make(map[string]*model.Person)
	familytree.Walk(familytree.Roots(m.tree), func(p *model.Person, _ int) bool {
		if p.HasID() {
			if _, seen := m.treeByID[p.ID]; !seen {
				m.treeByID[p.ID] = p
			}
		}
		return true
	})

	m.filters.SetGenerations(data.GenerationTitles())
	m.runSearch()
}

// runSearch evaluates the current term and filters and refreshes both views.
func (m *Model) runSearch() {
	term := m.searchInput.Value()
	filters := m.filters.Filters()
	m.result = search.Run(m.data, m.tree, term, filters)

	mark := ""
	if m.result.Active {
		mark = strings.TrimSpace(term)
	}
	m.list.SetHighlight(mark, filters.SearchInInfo)
	m.treeView.SetHighlight(mark, filters.SearchInInfo)

	if m.result.Active {
		m.list.SetMatches(m.result.Matches, m.maxResults)
	} else {
		m.list.SetData(m.data)
	}
	m.treeView.Build(m.result.Tree)
	m.syncDetail()
}

func (m *Model) clearSearch() {
	m.searchInput.SetValue("")
	m.filters.Reset(m.cfg.UI.SearchInInfo)
	m.searchSeq++
	m.runSearch()
}

// SelectedPerson returns the person under the cursor of the active view.
func (m Model) SelectedPerson() *model.Person {
	if m.mode == ViewTree {
		return m.treeView.SelectedPerson()
	}
	return m.list.SelectedPerson()
}

func (m *Model) syncDetail() {
	if !m.showDetail {
		return
	}
	p := m.SelectedPerson()
	if p == nil {
		if m.detail.Person() != nil {
			m.detail.SetPerson(nil, "", nil)
		}
		return
	}
	shown := p
	if tp, ok := m.treeByID[p.ID]; ok {
		shown = tp
	}
	if shown == m.detail.Person() {
		return
	}
	gen := m.genOf[p.ID]
	if m.mode == ViewList {
		gen = m.list.SelectedGeneration()
	}
	var father *model.Person
	if p.FatherID != "" {
		father = m.byID[p.FatherID]
	}
	m.detail.SetPerson(shown, gen, father)
}

func (m *Model) copySelectedID() {
	p := m.SelectedPerson()
	if p == nil {
		m.setStatus("❌ 未选择家族成员", true)
		return
	}
	if p.ID == "" {
		m.setStatus("❌ "+p.Name+" 没有 ID", true)
		return
	}
	if err := clipboard.WriteAll(p.ID); err != nil {
		m.setStatus(fmt.Sprintf("❌ Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("📋 已复制 %s 的 ID %s", p.Name, p.ID), false)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

// LoggedOut reports whether the user signed out from inside the UI.
func (m Model) LoggedOut() bool {
	return m.loggedOut
}

// Mode returns the active view mode.
func (m Model) Mode() ViewMode {
	return m.mode
}

// Result returns the last evaluated query.
func (m Model) Result() search.Result {
	return m.result
}

// Loading reports whether the initial load is outstanding.
func (m Model) Loading() bool {
	return m.loading
}

// Data returns the record store being shown.
func (m Model) Data() model.FamilyData {
	return m.data
}

// detailVisible reports whether the detail pane takes part in the layout.
func (m Model) detailVisible() bool {
	return m.showDetail && !m.loading
}

func (m Model) splitView() bool {
	return m.detailVisible() && m.width >= SplitViewThreshold
}

// layout sizes the views to the current window.
func (m *Model) layout() {
	h := m.bodyHeight()
	w := m.width
	if m.splitView() {
		left := w - m.detailPaneWidth()
		m.list.SetSize(left-2, h-2)
		m.treeView.SetSize(left-2, h-2)
		m.detail.SetSize(m.detailPaneWidth()-2, h-2)
		return
	}
	m.list.SetSize(w, h)
	m.treeView.SetSize(w, h)
	if m.detailVisible() {
		m.detail.SetSize(w, h)
	}
}

func (m Model) detailPaneWidth() int {
	return max(MinDetailPaneWidth, m.width*2/5)
}

func (m Model) bodyHeight() int {
	return max(3, m.height-lipgloss.Height(m.renderTop())-1)
}

func (m Model) renderHeader() string {
	t := m.theme
	lines := []string{
		t.Title.Render(m.cfg.Title()),
		t.Tagline.Render(m.cfg.Tagline()),
	}
	if m.cfg.Auth.Required && m.gate.UserName() != "" {
		lines = append(lines, t.Greeting.Render(m.cfg.Greeting()))
	}
	block := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, block)
}

func (m Model) renderSearchBar() string {
	t := m.theme
	tab := func(label string, active bool) string {
		if active {
			return t.Header.Render(label)
		}
		return t.SecondaryText.Padding(0, 1).Render(label)
	}
	modes := tab("列表视图", m.mode == ViewList) + tab("树状视图", m.mode == ViewTree)

	m.searchInput.Width = max(10, m.width-lipgloss.Width(modes)-8)
	input := m.searchInput.View()
	if m.result.Active {
		input += t.MutedText.Render("  [c 清除]")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, input, "  ", modes)
}

// renderTop is everything above the body: header, search bar, filters and the
// load error note.
func (m Model) renderTop() string {
	parts := []string{m.renderHeader(), m.renderSearchBar()}
	if m.showFilters {
		parts = append(parts, m.filters.View(m.width, m.focused == focusFilters))
	}
	if m.loadErr != "" {
		parts = append(parts, m.theme.ErrorText.Render(m.loadErr))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderLoadingScreen() string {
	t := m.theme
	lines := []string{
		m.spinner.View(),
		"",
		t.Title.Render("正在加载家族数据..."),
	}
	if m.source != "" {
		lines = append(lines, "", t.MutedText.Render(m.source))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(m.width, max(1, m.height-1), lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderBody() string {
	var main string
	if m.mode == ViewTree {
		main = m.treeView.View()
	} else {
		main = m.list.View()
	}

	if !m.detailVisible() {
		return main
	}
	if !m.splitView() {
		return m.detail.View()
	}

	h := m.bodyHeight()
	left := m.width - m.detailPaneWidth()
	mainStyle, detailStyle := FocusedPanelStyle, PanelStyle
	if m.focused == focusDetail {
		mainStyle, detailStyle = PanelStyle, FocusedPanelStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		mainStyle.Width(left-2).Height(h-2).Render(main),
		detailStyle.Width(m.detailPaneWidth()-2).Height(h-2).Render(m.detail.View()),
	)
}

func (m Model) renderFooter() string {
	t := m.theme
	if m.statusMsg != "" {
		if m.statusIsError {
			return t.ErrorText.Render(m.statusMsg)
		}
		return t.InfoText.Render(m.statusMsg)
	}

	counts := fmt.Sprintf("%d 人 · %d 代", m.data.PersonCount(), len(m.data.Generations))
	if m.result.Active {
		counts += fmt.Sprintf(" · %d 条结果", len(m.result.Matches))
	}
	hints := "/ 搜索  f 筛选  v 视图  tab 详情  y 复制ID  ? 帮助  q 退出"
	if m.focused == focusSearch {
		hints = "enter 确定  esc 返回"
	} else if m.focused == focusFilters {
		hints = "↑/↓ 移动  space 切换  esc 返回"
	}
	gap := max(1, m.width-lipgloss.Width(counts)-lipgloss.Width(hints))
	return t.MutedText.Render(counts + strings.Repeat(" ", gap) + hints)
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	finalStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	if m.loading {
		return finalStyle.Render(m.renderLoadingScreen())
	}
	if m.showHelp {
		return finalStyle.Render(m.renderHelpOverlay())
	}
	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.renderTop(),
		m.renderBody(),
		m.renderFooter(),
	))
}
