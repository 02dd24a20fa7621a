// tree.go - Father/child tree view with expand and collapse
package ui

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/familytree/pkg/model"
)

// TreeState is the persisted expand/collapse state of the tree view, kept in
// the state directory as tree-state.json.
//
// Nodes start expanded, so only explicit collapses are stored:
//
//	{
//	  "version": 1,
//	  "collapsed": {"p-12": true}
//	}
//
// People without an id cannot be remembered. A corrupted or missing file means
// everything starts expanded.
type TreeState struct {
	Version   int             `json:"version"`
	Collapsed map[string]bool `json:"collapsed"`
}

// TreeStateVersion is the current schema version for tree persistence
const TreeStateVersion = 1

const treeStateFileName = "tree-state.json"

// TreeStatePath returns the tree state file inside dir.
func TreeStatePath(dir string) string {
	return filepath.Join(dir, treeStateFileName)
}

// PersonNode is one person in the rendered tree.
type PersonNode struct {
	Person   *model.Person
	Children []*PersonNode
	Parent   *PersonNode
	Depth    int
	Expanded bool
}

// TreeModel manages the tree view state.
type TreeModel struct {
	title          string
	roots          []*PersonNode
	flatList       []*PersonNode // visible nodes in display order
	cursor         int
	viewportOffset int
	width          int
	height         int
	theme          Theme

	// Highlighting
	term         string
	searchInInfo bool

	// Persistence
	stateDir  string
	collapsed map[string]bool
	loaded    bool
}

// NewTreeModel creates an empty tree model
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		theme:     theme,
		collapsed: make(map[string]bool),
	}
}

// SetStateDir enables persistence of collapsed nodes under dir. An empty dir
// disables it.
func (t *TreeModel) SetStateDir(dir string) {
	t.stateDir = dir
	t.loaded = false
}

// SetSize sets the available width and height.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// SetHighlight sets the term marked in names, and in info when searchInInfo.
func (t *TreeModel) SetHighlight(term string, searchInInfo bool) {
	t.term = term
	t.searchInInfo = searchInInfo
}

// Build replaces the tree with the people of tree, a single-generation
// document as produced by the tree builder or the pruner. The cursor stays on
// the same person when they are still visible.
func (t *TreeModel) Build(tree model.FamilyData) {
	t.loadState()
	selected := t.SelectedPerson()

	t.title = ""
	t.roots = nil
	for _, g := range tree.Generations {
		if t.title == "" {
			t.title = g.Title
		}
		for _, p := range g.People {
			if p == nil {
				continue
			}
			t.roots = append(t.roots, t.buildNode(p, nil, 0, map[*model.Person]bool{}))
		}
	}
	t.rebuildFlatList()

	t.cursor = 0
	if selected != nil {
		t.selectPerson(selected)
	}
	t.ensureCursorVisible()
}

// buildNode converts p and its descendants. A person already on the current
// path is not descended into again.
func (t *TreeModel) buildNode(p *model.Person, parent *PersonNode, depth int, onPath map[*model.Person]bool) *PersonNode {
	node := &PersonNode{
		Person:   p,
		Parent:   parent,
		Depth:    depth,
		Expanded: !(p.ID != "" && t.collapsed[p.ID]),
	}
	onPath[p] = true
	defer delete(onPath, p)
	for _, c := range p.Children {
		if c == nil || onPath[c] {
			continue
		}
		node.Children = append(node.Children, t.buildNode(c, node, depth+1, onPath))
	}
	return node
}

func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	var add func(n *PersonNode)
	add = func(n *PersonNode) {
		t.flatList = append(t.flatList, n)
		if !n.Expanded {
			return
		}
		for _, c := range n.Children {
			add(c)
		}
	}
	for _, r := range t.roots {
		add(r)
	}
	if t.cursor >= len(t.flatList) {
		t.cursor = max(0, len(t.flatList)-1)
	}
}

// loadState reads the persisted collapsed set once per state directory.
func (t *TreeModel) loadState() {
	if t.loaded || t.stateDir == "" {
		return
	}
	t.loaded = true
	data, err := os.ReadFile(TreeStatePath(t.stateDir))
	if err != nil {
		return
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("warning: invalid tree state file, using defaults: %v", err)
		return
	}
	if state.Collapsed != nil {
		t.collapsed = state.Collapsed
	}
}

// saveState persists the collapsed set. Errors are logged and otherwise
// ignored.
func (t *TreeModel) saveState() {
	if t.stateDir == "" {
		return
	}
	data, err := json.MarshalIndent(TreeState{Version: TreeStateVersion, Collapsed: t.collapsed}, "", "  ")
	if err != nil {
		log.Printf("warning: failed to marshal tree state: %v", err)
		return
	}
	if err := os.MkdirAll(t.stateDir, 0o755); err != nil {
		log.Printf("warning: failed to create state directory %s: %v", t.stateDir, err)
		return
	}
	if err := os.WriteFile(TreeStatePath(t.stateDir), data, 0o644); err != nil {
		log.Printf("warning: failed to write tree state: %v", err)
	}
}

func (t *TreeModel) setExpanded(node *PersonNode, expanded bool) {
	node.Expanded = expanded
	if t.collapsed == nil {
		t.collapsed = make(map[string]bool)
	}
	if id := node.Person.ID; id != "" {
		if expanded {
			delete(t.collapsed, id)
		} else {
			t.collapsed[id] = true
		}
	}
}

// View renders the visible window of the tree.
func (t *TreeModel) View() string {
	if len(t.flatList) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(t.theme.PrimaryBold.Render(t.title))
		sb.WriteString(t.theme.MutedText.Render(fmt.Sprintf("  %d 人", len(t.flatList))))
		sb.WriteString("\n")
	}

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		node := t.flatList[i]
		line := t.renderNode(node)
		if i == t.cursor {
			line = t.theme.Selected.Render(line)
		} else {
			line = " " + line
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(t.flatList) > t.effectiveVisibleCount() {
		sb.WriteString(t.theme.MutedText.Render(
			fmt.Sprintf(" (%d-%d / %d)", start+1, end, len(t.flatList))))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (t *TreeModel) renderEmptyState() string {
	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(t.theme.PrimaryBold.Render(t.title))
		sb.WriteString("\n\n")
	}
	sb.WriteString(t.theme.MutedText.Render("没有可显示的家族成员"))
	return sb.String()
}

// renderNode renders [tree-prefix] [expand] name lifespan info.
func (t *TreeModel) renderNode(node *PersonNode) string {
	p := node.Person
	width := t.width
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder
	sb.WriteString(t.buildTreePrefix(node))
	sb.WriteString(t.getExpandIndicator(node))
	sb.WriteString(" ")
	used := 4*node.Depth + 2 + SpaceSM

	nameWidth := max(8, width/3)
	sb.WriteString(t.theme.NameText.Render(mark(p.Name, t.term, nameWidth, t.theme.MarkText.Render)))
	used += runewidth.StringWidth(truncate(oneLine(p.Name), nameWidth))

	if span := lifespanText(p); span != "" {
		sb.WriteString(" ")
		sb.WriteString(t.theme.MutedText.Render(span))
		used += len(span) + 1
	}
	if room := width - used - SpaceSM; p.Info != "" && room > 6 {
		term := ""
		if t.searchInInfo {
			term = t.term
		}
		sb.WriteString("  ")
		sb.WriteString(t.theme.InfoText.Render(mark(p.Info, term, room, t.theme.MarkText.Render)))
	}
	return sb.String()
}

func (t *TreeModel) buildTreePrefix(node *PersonNode) string {
	if node.Depth == 0 {
		return ""
	}

	var parts []string
	ancestors := t.getAncestors(node)
	for i := 0; i < len(ancestors)-1; i++ {
		if t.hasSiblingsBelow(ancestors[i]) {
			parts = append(parts, "│   ")
		} else {
			parts = append(parts, "    ")
		}
	}
	if t.isLastChild(node) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}
	return t.theme.TreeLines.Render(strings.Join(parts, ""))
}

// getAncestors returns the ancestors of a node below the root level, with the
// node itself at the end.
func (t *TreeModel) getAncestors(node *PersonNode) []*PersonNode {
	var ancestors []*PersonNode
	for cur := node.Parent; cur != nil && cur.Parent != nil; cur = cur.Parent {
		ancestors = append([]*PersonNode{cur}, ancestors...)
	}
	return append(ancestors, node)
}

func (t *TreeModel) siblings(node *PersonNode) []*PersonNode {
	if node.Parent == nil {
		return t.roots
	}
	return node.Parent.Children
}

func (t *TreeModel) hasSiblingsBelow(node *PersonNode) bool {
	sibs := t.siblings(node)
	for i, s := range sibs {
		if s == node {
			return i < len(sibs)-1
		}
	}
	return false
}

func (t *TreeModel) isLastChild(node *PersonNode) bool {
	sibs := t.siblings(node)
	return len(sibs) > 0 && sibs[len(sibs)-1] == node
}

func (t *TreeModel) getExpandIndicator(node *PersonNode) string {
	if len(node.Children) == 0 {
		return "•"
	}
	if node.Expanded {
		return "▾"
	}
	return "▸"
}

// SelectedNode returns the node under the cursor, or nil.
func (t *TreeModel) SelectedNode() *PersonNode {
	if t.cursor < 0 || t.cursor >= len(t.flatList) {
		return nil
	}
	return t.flatList[t.cursor]
}

// SelectedPerson returns the person under the cursor, or nil.
func (t *TreeModel) SelectedPerson() *model.Person {
	if n := t.SelectedNode(); n != nil {
		return n.Person
	}
	return nil
}

// NodeCount returns the number of visible rows.
func (t *TreeModel) NodeCount() int {
	return len(t.flatList)
}

// MoveDown moves the cursor down in the flat list.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

// ToggleExpand expands or collapses the selected node.
func (t *TreeModel) ToggleExpand() {
	node := t.SelectedNode()
	if node == nil || len(node.Children) == 0 {
		return
	}
	t.setExpanded(node, !node.Expanded)
	t.rebuildFlatList()
	t.saveState()
	t.ensureCursorVisible()
}

// ExpandAll expands every node.
func (t *TreeModel) ExpandAll() {
	t.setAll(true)
}

// CollapseAll collapses every node.
func (t *TreeModel) CollapseAll() {
	t.setAll(false)
}

// ToggleExpandCollapseAll expands everything if anything is collapsed, and
// collapses everything otherwise.
func (t *TreeModel) ToggleExpandCollapseAll() {
	t.setAll(t.hasAnyCollapsed())
}

func (t *TreeModel) setAll(expanded bool) {
	selected := t.SelectedPerson()
	var walk func(n *PersonNode)
	walk = func(n *PersonNode) {
		if len(n.Children) > 0 {
			t.setExpanded(n, expanded)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range t.roots {
		walk(r)
	}
	t.rebuildFlatList()
	if selected != nil && !t.selectPerson(selected) {
		t.cursor = 0
	}
	t.saveState()
	t.ensureCursorVisible()
}

func (t *TreeModel) hasAnyCollapsed() bool {
	var collapsedBelow func(n *PersonNode) bool
	collapsedBelow = func(n *PersonNode) bool {
		if len(n.Children) > 0 && !n.Expanded {
			return true
		}
		for _, c := range n.Children {
			if collapsedBelow(c) {
				return true
			}
		}
		return false
	}
	for _, r := range t.roots {
		if collapsedBelow(r) {
			return true
		}
	}
	return false
}

// ExpandOrMoveToChild expands a collapsed node, or moves to the first child
// of an expanded one.
func (t *TreeModel) ExpandOrMoveToChild() {
	node := t.SelectedNode()
	if node == nil || len(node.Children) == 0 {
		return
	}
	if !node.Expanded {
		t.ToggleExpand()
		return
	}
	t.cursor++
	t.ensureCursorVisible()
}

// CollapseOrJumpToParent collapses an expanded node, or moves to the parent.
func (t *TreeModel) CollapseOrJumpToParent() {
	node := t.SelectedNode()
	if node == nil {
		return
	}
	if len(node.Children) > 0 && node.Expanded {
		t.ToggleExpand()
		return
	}
	t.JumpToParent()
}

// JumpToParent moves the cursor to the selected node's parent.
func (t *TreeModel) JumpToParent() {
	node := t.SelectedNode()
	if node == nil || node.Parent == nil {
		return
	}
	for i, n := range t.flatList {
		if n == node.Parent {
			t.cursor = i
			t.ensureCursorVisible()
			return
		}
	}
}

// JumpToTop moves cursor to the first node.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom moves cursor to the last node.
func (t *TreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
		t.ensureCursorVisible()
	}
}

// PageDown moves cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.cursor = min(t.cursor+t.halfPage(), max(0, len(t.flatList)-1))
	t.ensureCursorVisible()
}

// PageUp moves cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.cursor = max(0, t.cursor-t.halfPage())
	t.ensureCursorVisible()
}

func (t *TreeModel) halfPage() int {
	if n := t.height / 2; n >= 1 {
		return n
	}
	return 5
}

// SelectByID moves the cursor to the first visible person with id.
func (t *TreeModel) SelectByID(id string) bool {
	if id == "" {
		return false
	}
	for i, n := range t.flatList {
		if n.Person.ID == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

// selectPerson follows p across a rebuild: by id when it has one, otherwise
// by name.
func (t *TreeModel) selectPerson(p *model.Person) bool {
	if t.SelectByID(p.ID) {
		return true
	}
	if p.ID != "" {
		return false
	}
	for i, n := range t.flatList {
		if n.Person.ID == "" && n.Person.Name == p.Name {
			t.cursor = i
			return true
		}
	}
	return false
}

// effectiveVisibleCount is the number of node rows that fit, reserving the
// title row and the position indicator.
func (t *TreeModel) effectiveVisibleCount() int {
	if t.height <= 0 {
		return len(t.flatList)
	}
	n := t.height - 1
	if len(t.flatList) > n {
		n--
	}
	return max(1, n)
}

// visibleRange returns the [start, end) window of flatList to render.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.flatList) == 0 {
		return 0, 0
	}
	count := t.effectiveVisibleCount()
	start = max(0, t.viewportOffset)
	end = start + count
	if end > len(t.flatList) {
		end = len(t.flatList)
		start = max(0, end-count)
	}
	return start, end
}

func (t *TreeModel) ensureCursorVisible() {
	count := t.effectiveVisibleCount()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	} else if t.cursor >= t.viewportOffset+count {
		t.viewportOffset = t.cursor - count + 1
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}
