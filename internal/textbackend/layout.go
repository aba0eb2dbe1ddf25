package textbackend

import (
	"fortio.org/safecast"
	"github.com/mattn/go-runewidth"

	"vellum/internal/paged"
	"vellum/internal/source"
)

// tabWidth is the advance of a tab in cells.
const tabWidth = 4

// cellAdvance is the advance of one terminal cell in em.
const cellAdvance = 0.5

type shapeKey struct {
	text string
}

// shapedRun is a memoized shaping result. age counts the compilations since
// it was last used.
type shapedRun struct {
	glyphs []paged.Glyph
	age    int
}

// shape returns the glyphs of text with Span and Offset pointing into span.
func (b *Backend) shape(text string, span source.Span) []paged.Glyph {
	b.mu.Lock()
	run, ok := b.shaped[shapeKey{text}]
	if !ok {
		run = &shapedRun{glyphs: shapeText(text)}
		b.shaped[shapeKey{text}] = run
	}
	run.age = 0
	b.mu.Unlock()

	out := make([]paged.Glyph, len(run.glyphs))
	for i, g := range run.glyphs {
		g.Span = span
		if off, err := safecast.Conv[uint16](g.Range[0]); err == nil {
			g.Offset = off
		}
		out[i] = g
	}
	return out
}

func shapeText(text string) []paged.Glyph {
	glyphs := make([]paged.Glyph, 0, len(text))
	for i, r := range text {
		cells := runewidth.RuneWidth(r)
		if r == '\t' {
			cells = tabWidth
		}
		id, err := safecast.Conv[uint16](r)
		if err != nil {
			id = 0
		}
		glyphs = append(glyphs, paged.Glyph{
			ID:       id,
			XAdvance: float64(cells) * cellAdvance,
			Range:    [2]int{i, i + len(string(r))},
		})
	}
	return glyphs
}

// Evict ages the shaping memo by one compilation and drops entries unused
// for more than maxAge compilations.
func (b *Backend) Evict(maxAge int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, run := range b.shaped {
		run.age++
		if run.age > maxAge {
			delete(b.shaped, key)
		}
	}
}

// memoLen returns the number of memoized runs.
func (b *Backend) memoLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.shaped)
}

type pager struct {
	c     *compilation
	doc   *paged.Document
	frame *paged.Frame
	y     float64
	// headings maps element indexes to where their runs were placed.
	headings map[int]paged.Position
	// links wait for the position of the heading they point at.
	links map[*paged.Link]int
}

func (c *compilation) paginate() *paged.Document {
	p := &pager{
		c:        c,
		doc:      &paged.Document{Title: c.title, Elements: c.elements},
		headings: make(map[int]paged.Position),
		links:    make(map[*paged.Link]int),
	}
	p.newPage()
	for _, b := range c.blocks {
		switch b.kind {
		case blockBreak:
			p.newPage()
		case blockOutline:
			p.outline()
		default:
			p.place(b, 0)
		}
	}
	for link, element := range p.links {
		if pos, ok := p.headings[element]; ok {
			link.Position = &pos
		}
	}
	return p.doc
}

func (p *pager) newPage() {
	p.frame = paged.NewFrame(paged.Size{W: PageWidth, H: PageHeight})
	p.doc.Pages = append(p.doc.Pages, &paged.Page{
		Frame:    p.frame,
		FillAuto: true,
		Number:   len(p.doc.Pages) + 1,
	})
	p.y = Margin
}

func lineHeight(size float64) float64 {
	return max(Leading, size*1.2)
}

// place lays out one line at the current cursor, breaking the page when the
// line would cross the bottom margin. It returns the run, or nil for empty
// lines.
func (p *pager) place(b block, indent float64) *paged.Text {
	height := lineHeight(b.size)
	if p.y+height > PageHeight-Margin && len(p.frame.Items) > 0 {
		p.newPage()
	}
	top := p.y
	p.y += height
	if b.text == "" {
		return nil
	}

	run := &paged.Text{
		Font:   p.c.font,
		Size:   b.size,
		Fill:   paged.Solid{Color: b.fill},
		Lang:   "en",
		Text:   b.text,
		Glyphs: p.c.backend.shape(b.text, b.span),
	}
	origin := paged.Point{X: Margin + indent, Y: top + b.size}
	p.frame.Push(origin, run)
	if b.element >= 0 {
		p.headings[b.element] = paged.Position{
			Page:  len(p.doc.Pages),
			Point: paged.Point{X: origin.X, Y: top},
		}
	}
	return run
}

// outline lists every outlined heading with a link to it.
func (p *pager) outline() {
	p.place(block{text: "Contents", span: source.Detached(), fill: paged.Black, size: HeadingSize, element: -1}, 0)
	for i, el := range p.c.elements {
		if !el.Outlined {
			continue
		}
		heading, ok := p.headingBlock(i)
		if !ok {
			continue
		}
		entry := heading
		entry.size = FontSize
		entry.element = -1
		indent := float64(el.Level-1) * 2 * FontSize
		run := p.place(entry, indent)
		if run == nil {
			continue
		}
		link := &paged.Link{Size: paged.Size{W: run.Width(), H: lineHeight(FontSize)}}
		p.frame.Push(paged.Point{X: Margin + indent, Y: p.y - lineHeight(FontSize)}, link)
		p.links[link] = i
	}
}

func (p *pager) headingBlock(element int) (block, bool) {
	for _, b := range p.c.blocks {
		if b.kind == blockLine && b.element == element {
			return b, true
		}
	}
	return block{}, false
}
