package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/familytree/pkg/familytree"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/search"
)

// TreeSnapshotOptions controls SVG tree export.
type TreeSnapshotOptions struct {
	Path    string           // Output path; ".svg" is appended when there is no extension
	Title   string           // Rendered in the header block
	Data    model.FamilyData // Flat record store
	Term    string           // Optional search term; matching people are highlighted
	Filters search.Filters   // Filters applied with Term
	Prune   bool             // Render only the pruned search tree instead of the full tree
}

// SaveTreeSnapshot renders the family tree as an SVG file.
func SaveTreeSnapshot(opts TreeSnapshotOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	switch ext := strings.ToLower(filepath.Ext(opts.Path)); ext {
	case "":
		opts.Path += ".svg"
	case ".svg":
	default:
		return fmt.Errorf("unsupported format %q (want .svg)", ext)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := RenderTreeSVG(f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RenderTreeSVG writes the SVG document for opts to w.
func RenderTreeSVG(w io.Writer, opts TreeSnapshotOptions) error {
	layout := buildTreeLayout(opts)
	if len(layout.Nodes) == 0 {
		return fmt.Errorf("no people to export")
	}
	renderSVG(w, layout)
	return nil
}

// --- layout ----------------------------------------------------------------

const (
	nodeH      = 46.0
	levelGap   = 40.0
	siblingGap = 16.0
	marginX    = 24.0
	headerH    = 96.0
	charW      = 7.5
	minNodeW   = 96.0
)

type layoutNode struct {
	Name     string
	Sub      string
	X, Y     float64
	W        float64
	Matched  bool
	ParentIx int
}

type treeLayout struct {
	Nodes     []layoutNode
	Width     int
	Height    int
	Title     string
	Summary   string
	Highlight bool
}

func buildTreeLayout(opts TreeSnapshotOptions) treeLayout {
	tree := familytree.Build(opts.Data)
	matched := map[string]bool{}
	active := search.Active(opts.Term, opts.Filters)
	if active {
		for _, m := range search.Search(opts.Data, opts.Term, opts.Filters) {
			if m.Person != nil && m.Person.ID != "" {
				matched[m.Person.ID] = true
			}
		}
		if opts.Prune {
			tree = search.PruneTree(opts.Data, tree, opts.Term, opts.Filters)
		}
	}
	roots := familytree.Roots(tree)

	l := treeLayout{Title: opts.Title, Highlight: active}
	if l.Title == "" {
		l.Title = model.TreeTitle
	}

	// Leaves take consecutive slots left to right; a parent is centred over
	// its first and last child.
	cursor := marginX
	onPath := map[*model.Person]bool{}
	maxDepth := 0
	var place func(p *model.Person, depth, parent int) (left, right float64)
	place = func(p *model.Person, depth, parent int) (float64, float64) {
		onPath[p] = true
		defer delete(onPath, p)

		if depth > maxDepth {
			maxDepth = depth
		}
		n := layoutNode{
			Name:     p.Name,
			Sub:      lifespan(p),
			Y:        headerH + float64(depth)*(nodeH+levelGap),
			Matched:  matched[p.ID],
			ParentIx: parent,
		}
		n.W = nodeWidth(n.Name, n.Sub)
		ix := len(l.Nodes)
		l.Nodes = append(l.Nodes, n)

		first, last := -1.0, -1.0
		for _, c := range p.Children {
			if c == nil || onPath[c] {
				continue
			}
			cl, cr := place(c, depth+1, ix)
			if first < 0 {
				first = cl
			}
			last = cr
		}

		if first < 0 {
			l.Nodes[ix].X = cursor
			cursor += n.W + siblingGap
		} else {
			centre := (first + last) / 2
			l.Nodes[ix].X = centre - n.W/2
			if right := l.Nodes[ix].X + n.W + siblingGap; right > cursor {
				cursor = right
			}
		}
		x := l.Nodes[ix].X
		return x, x + n.W
	}
	for _, r := range roots {
		place(r, 0, -1)
	}

	minX := marginX
	for _, n := range l.Nodes {
		if n.X < minX {
			minX = n.X
		}
	}
	if shift := marginX - minX; shift > 0 {
		for i := range l.Nodes {
			l.Nodes[i].X += shift
		}
		cursor += shift
	}

	l.Width = int(cursor - siblingGap + marginX)
	if l.Width < 360 {
		l.Width = 360
	}
	l.Height = int(headerH + float64(maxDepth+1)*(nodeH+levelGap))
	l.Summary = fmt.Sprintf("%d people · %d in tree · %d generations",
		opts.Data.PersonCount(), len(l.Nodes), len(opts.Data.Generations))
	if active {
		l.Summary += fmt.Sprintf(" · %d matches", len(matched))
	}
	return l
}

func lifespan(p *model.Person) string {
	if p.BirthYear == nil && p.DeathYear == nil {
		return ""
	}
	return p.Lifespan()
}

func nodeWidth(lines ...string) float64 {
	w := 0
	for _, s := range lines {
		if sw := runewidth.StringWidth(s); sw > w {
			w = sw
		}
	}
	width := float64(w)*charW + 24
	if width < minNodeW {
		return minNodeW
	}
	return width
}

// --- rendering -------------------------------------------------------------

var (
	colorBackdrop = color.RGBA{0xfb, 0xf7, 0xef, 0xff}
	colorHeaderBG = color.RGBA{0x8b, 0x1e, 0x1e, 0xff}
	colorHeaderFG = color.RGBA{0xff, 0xf8, 0xe7, 0xff}
	colorNode     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorDimNode  = color.RGBA{0xf1, 0xec, 0xe2, 0xff}
	colorMatch    = color.RGBA{0xfe, 0xf0, 0x8a, 0xff}
	colorStroke   = color.RGBA{0x8b, 0x5e, 0x3c, 0xff}
	colorEdge     = color.RGBA{0xb0, 0x8d, 0x6e, 0xff}
	colorText     = color.RGBA{0x2b, 0x1d, 0x14, 0xff}
	colorSubtle   = color.RGBA{0x7a, 0x66, 0x55, 0xff}
)

func renderSVG(w io.Writer, l treeLayout) {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, "fill:"+css(colorBackdrop))
	canvas.Roundrect(12, 12, l.Width-24, int(headerH-36), 8, 8, "fill:"+css(colorHeaderBG))
	canvas.Text(28, 44, l.Title, fmt.Sprintf("fill:%s;font-size:20px;font-weight:bold;font-family:serif", css(colorHeaderFG)))
	canvas.Text(28, 66, l.Summary, fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif", css(colorHeaderFG)))

	for _, n := range l.Nodes {
		if n.ParentIx < 0 {
			continue
		}
		p := l.Nodes[n.ParentIx]
		px, py := int(p.X+p.W/2), int(p.Y+nodeH)
		cx, cy := int(n.X+n.W/2), int(n.Y)
		mid := int(p.Y + nodeH + levelGap/2)
		canvas.Polyline([]int{px, px, cx, cx}, []int{py, mid, mid, cy},
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorEdge)))
	}

	for _, n := range l.Nodes {
		fill := colorNode
		switch {
		case n.Matched:
			fill = colorMatch
		case l.Highlight:
			fill = colorDimNode
		}
		x, y := int(n.X), int(n.Y)
		canvas.Roundrect(x, y, int(n.W), int(nodeH), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(fill), css(colorStroke)))
		canvas.Text(x+12, y+20, n.Name,
			fmt.Sprintf("fill:%s;font-size:14px;font-weight:bold;font-family:serif", css(colorText)))
		if n.Sub != "" {
			canvas.Text(x+12, y+37, n.Sub,
				fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		}
	}
	canvas.End()
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
