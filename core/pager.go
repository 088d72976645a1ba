package core

import (
	"fmt"
	"regexp"
	"strings"

	"pkt.systems/qult/schema"
)

var pageBreak = regexp.MustCompile(`(?i)<hr\b[^>]*>`)

// HasPageBreak reports whether html carries at least one page-break marker.
func HasPageBreak(html string) bool {
	return pageBreak.MatchString(html)
}

// SplitPages splits html on page-break markers, trimming each segment and
// dropping empty ones.
func SplitPages(html string) []string {
	segments := pageBreak.Split(html, -1)
	pages := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		pages = append(pages, segment)
	}
	return pages
}

// PagedBlock is an output block showing one page at a time.
type PagedBlock struct {
	id     schema.BlockID
	pages  []string
	active int
}

func newPagedBlock(id schema.BlockID, pages []string) (*PagedBlock, error) {
	if len(pages) < 2 {
		return nil, fmt.Errorf("paged block needs at least 2 pages, got %d", len(pages))
	}
	return &PagedBlock{id: id, pages: append([]string(nil), pages...)}, nil
}

func (b *PagedBlock) ID() schema.BlockID {
	return b.id
}

func (b *PagedBlock) Pages() []string {
	return append([]string(nil), b.pages...)
}

func (b *PagedBlock) Count() int {
	return len(b.pages)
}

// Active returns the index of the visible page.
func (b *PagedBlock) Active() int {
	return b.active
}

func (b *PagedBlock) CanPrev() bool {
	return b.active > 0
}

func (b *PagedBlock) CanNext() bool {
	return b.active < len(b.pages)-1
}

// Counter returns the 1-based "i / n" label.
func (b *PagedBlock) Counter() string {
	return fmt.Sprintf("%d / %d", b.active+1, len(b.pages))
}

// Step moves the visible page by direction, clamped to the page range, and reports
// whether the visible page changed.
func (b *PagedBlock) Step(direction int) bool {
	next := b.active + direction
	if next < 0 {
		next = 0
	}
	if next > len(b.pages)-1 {
		next = len(b.pages) - 1
	}
	if next == b.active {
		return false
	}
	b.active = next
	return true
}

// PageEvent describes the visible page for surfaces.
func (b *PagedBlock) PageEvent() schema.PageEvent {
	return schema.PageEvent{
		Block:   b.id,
		Index:   b.active,
		Count:   len(b.pages),
		Counter: b.Counter(),
		CanPrev: b.CanPrev(),
		CanNext: b.CanNext(),
	}
}
