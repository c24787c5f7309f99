package element

import (
	"bytes"
	"sort"
)

// Store holds the elements of a session partitioned by page. Each page
// keeps its elements in creation order, which is also paint order and the
// order hit-testing scans in reverse.
//
// Store is not safe for concurrent use; it is owned by the interaction
// goroutine and handed to background work only as a Snapshot.
type Store struct {
	pages map[int][]Element
	index map[string]int // id -> page
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		pages: make(map[int][]Element),
		index: make(map[string]int),
	}
}

// Insert adds el to its page at position index (clamped to the page length).
// It reports false if an element with the same id already exists.
func (s *Store) Insert(el Element, index int) bool {
	if _, dup := s.index[el.ID]; dup {
		return false
	}
	list := s.pages[el.Page]
	if index < 0 || index > len(list) {
		index = len(list)
	}
	list = append(list, Element{})
	copy(list[index+1:], list[index:])
	list[index] = el.Clone()
	s.pages[el.Page] = list
	s.index[el.ID] = el.Page
	return true
}

// Append adds el at the end of its page.
func (s *Store) Append(el Element) bool {
	return s.Insert(el, -1)
}

// Remove deletes the element with id and returns it with the position it
// occupied on its page.
func (s *Store) Remove(id string) (Element, int, bool) {
	page, ok := s.index[id]
	if !ok {
		return Element{}, 0, false
	}
	list := s.pages[page]
	for i, el := range list {
		if el.ID != id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(s.pages, page)
		} else {
			s.pages[page] = list
		}
		delete(s.index, id)
		return el, i, true
	}
	return Element{}, 0, false
}

// Replace overwrites the element with el.ID in place, keeping its position.
// An element moved to a different page goes to the end of that page.
func (s *Store) Replace(el Element) bool {
	page, ok := s.index[el.ID]
	if !ok {
		return false
	}
	if page != el.Page {
		s.Remove(el.ID)
		return s.Append(el)
	}
	list := s.pages[page]
	for i := range list {
		if list[i].ID == el.ID {
			list[i] = el.Clone()
			return true
		}
	}
	return false
}

// Get returns a copy of the element with id.
func (s *Store) Get(id string) (Element, bool) {
	page, ok := s.index[id]
	if !ok {
		return Element{}, false
	}
	for _, el := range s.pages[page] {
		if el.ID == id {
			return el.Clone(), true
		}
	}
	return Element{}, false
}

// IndexOf returns the position of id within its page.
func (s *Store) IndexOf(id string) (int, bool) {
	page, ok := s.index[id]
	if !ok {
		return 0, false
	}
	for i, el := range s.pages[page] {
		if el.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Page returns copies of the elements on page n in creation order.
func (s *Store) Page(n int) []Element {
	list := s.pages[n]
	out := make([]Element, len(list))
	for i, el := range list {
		out[i] = el.Clone()
	}
	return out
}

// Pages returns the page numbers that have elements, ascending.
func (s *Store) Pages() []int {
	pages := make([]int, 0, len(s.pages))
	for p := range s.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// All returns copies of every element in page order, then creation order.
func (s *Store) All() []Element {
	out := make([]Element, 0, len(s.index))
	for _, p := range s.Pages() {
		out = append(out, s.Page(p)...)
	}
	return out
}

// Snapshot is All under the name used by save and tests: a deep copy that
// later edits cannot affect.
func (s *Store) Snapshot() []Element {
	return s.All()
}

// Len returns the total number of elements.
func (s *Store) Len() int {
	return len(s.index)
}

// Reset removes every element.
func (s *Store) Reset() {
	s.pages = make(map[int][]Element)
	s.index = make(map[string]int)
}

// DetectFormat identifies PNG and JPEG payloads by their magic bytes.
func DetectFormat(payload []byte) ImageFormat {
	switch {
	case bytes.HasPrefix(payload, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(payload, []byte{0xff, 0xd8, 0xff}):
		return FormatJPEG
	default:
		return FormatUnknown
	}
}
