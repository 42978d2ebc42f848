package paginator

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// DefaultMaxPageSize leaves headroom below the smallest supported
	// platform message limit once the page footer is added.
	DefaultMaxPageSize = 1900
)

// Paginator accumulates lines of text into pages bounded by MaxPageSize.
//
// Lines longer than the page budget are wrapped at the last delimiter that
// fits (newline first, then space); a token with no delimiter in range is
// hard-split. Prefix and Suffix (typically code fences) are applied to every
// page and count against the budget.
type Paginator struct {
	Prefix      string
	Suffix      string
	MaxPageSize int

	mu      sync.Mutex
	pages   []string
	current []string
	curLen  int
}

// New returns a paginator with the given code-fence prefix/suffix and page
// budget. A non-positive max falls back to DefaultMaxPageSize.
func New(prefix, suffix string, maxPageSize int) *Paginator {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &Paginator{
		Prefix:      prefix,
		Suffix:      suffix,
		MaxPageSize: maxPageSize,
	}
}

// lineBudget is the room available for line content on a single page.
func (p *Paginator) lineBudget() int {
	budget := p.MaxPageSize
	if p.Prefix != "" {
		budget -= len(p.Prefix) + 1
	}
	if p.Suffix != "" {
		budget -= len(p.Suffix) + 1
	}
	return budget
}

// AddLine appends a line, wrapping and opening new pages as needed.
func (p *Paginator) AddLine(line string) error {
	budget := p.lineBudget()
	if budget <= 0 {
		return fmt.Errorf("page size %d leaves no room for content", p.MaxPageSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, part := range strings.Split(line, "\n") {
		for _, chunk := range wrap(part, budget) {
			p.appendLocked(chunk, budget)
		}
	}
	return nil
}

func (p *Paginator) appendLocked(chunk string, budget int) {
	// +1 for the joining newline.
	if p.curLen+len(chunk)+1 > budget && len(p.current) > 0 {
		p.closePageLocked()
	}
	p.current = append(p.current, chunk)
	p.curLen += len(chunk) + 1
}

// ClosePage forces the current page shut so the next line starts fresh.
func (p *Paginator) ClosePage() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.current) > 0 {
		p.closePageLocked()
	}
}

func (p *Paginator) closePageLocked() {
	p.pages = append(p.pages, p.renderLocked(p.current))
	p.current = nil
	p.curLen = 0
}

func (p *Paginator) renderLocked(lines []string) string {
	var b strings.Builder
	if p.Prefix != "" {
		b.WriteString(p.Prefix)
		b.WriteByte('\n')
	}
	b.WriteString(strings.Join(lines, "\n"))
	if p.Suffix != "" {
		b.WriteByte('\n')
		b.WriteString(p.Suffix)
	}
	return b.String()
}

// PageCount reports the number of pages, counting the open page.
func (p *Paginator) PageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.pages)
	if len(p.current) > 0 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

// Page renders the page at index i. Out-of-range indexes clamp.
func (p *Paginator) Page(i int) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := len(p.pages)
	open := len(p.current) > 0
	if open {
		total++
	}
	if total == 0 {
		return p.renderLocked(nil)
	}
	if i < 0 {
		i = 0
	}
	if i >= total {
		i = total - 1
	}
	if i < len(p.pages) {
		return p.pages[i]
	}
	return p.renderLocked(p.current)
}

// wrap splits s into chunks no longer than budget, preferring to break at the
// last space that fits.
func wrap(s string, budget int) []string {
	if len(s) <= budget {
		return []string{s}
	}
	var out []string
	for len(s) > budget {
		cut := strings.LastIndexByte(s[:budget], ' ')
		if cut <= 0 {
			cut = budget
			// hard cuts must not land inside a multi-byte rune
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			if cut == 0 {
				cut = budget
			}
		}
		out = append(out, s[:cut])
		s = strings.TrimLeft(s[cut:], " ")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
