// Package history records element mutations as data-carrying commands on a
// bounded linear undo/redo stack.
package history

import (
	"errors"
	"fmt"
	"sort"

	"pdf-touchup/internal/element"
)

// ErrConflict reports a change that does not match the store it is applied
// to, such as creating an id that already exists.
var ErrConflict = errors.New("change conflicts with store state")

// Change is one atomic element mutation. Before == nil creates After at
// Index; After == nil removes Before, which sat at Index; both set updates
// the element in place.
type Change struct {
	Before *element.Element `json:"before,omitempty"`
	After  *element.Element `json:"after,omitempty"`
	Index  int              `json:"index"`
}

// Command is an undoable group of changes applied together.
type Command struct {
	Label   string   `json:"label"`
	Changes []Change `json:"changes"`
}

// Apply replays the command's changes in order. If any change conflicts,
// the changes already applied are rolled back and the store is unchanged.
func (c Command) Apply(s *element.Store) error {
	for i, ch := range c.Changes {
		if err := forward(s, ch); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = backward(s, c.Changes[j])
			}
			return fmt.Errorf("apply %q: %w", c.Label, err)
		}
	}
	return nil
}

// Revert undoes the command's changes in reverse order.
func (c Command) Revert(s *element.Store) error {
	for i := len(c.Changes) - 1; i >= 0; i-- {
		if err := backward(s, c.Changes[i]); err != nil {
			for j := i + 1; j < len(c.Changes); j++ {
				_ = forward(s, c.Changes[j])
			}
			return fmt.Errorf("revert %q: %w", c.Label, err)
		}
	}
	return nil
}

// IDs returns the ids of every element the command touches.
func (c Command) IDs() []string {
	var out []string
	seen := make(map[string]bool)
	for _, ch := range c.Changes {
		for _, el := range []*element.Element{ch.Before, ch.After} {
			if el != nil && !seen[el.ID] {
				seen[el.ID] = true
				out = append(out, el.ID)
			}
		}
	}
	return out
}

func forward(s *element.Store, ch Change) error {
	switch {
	case ch.Before == nil && ch.After != nil:
		if !s.Insert(*ch.After, ch.Index) {
			return fmt.Errorf("create %s: %w", ch.After.ID, ErrConflict)
		}
	case ch.After == nil && ch.Before != nil:
		if _, _, ok := s.Remove(ch.Before.ID); !ok {
			return fmt.Errorf("remove %s: %w", ch.Before.ID, ErrConflict)
		}
	case ch.Before != nil:
		if !s.Replace(*ch.After) {
			return fmt.Errorf("update %s: %w", ch.After.ID, ErrConflict)
		}
	}
	return nil
}

func backward(s *element.Store, ch Change) error {
	return forward(s, Change{Before: ch.After, After: ch.Before, Index: ch.Index})
}

func clone(el element.Element) *element.Element {
	c := el.Clone()
	return &c
}

// Create records adding el at index on its page (-1 appends).
func Create(label string, el element.Element, index int) Command {
	return Command{Label: label, Changes: []Change{{After: clone(el), Index: index}}}
}

// Update records replacing before with after; both must share an id.
func Update(label string, before, after element.Element) Command {
	return Command{Label: label, Changes: []Change{{Before: clone(before), After: clone(after)}}}
}

// Delete snapshots the elements with ids from s. Elements on the same page
// are removed highest index first so each recorded index stays valid on
// revert. Unknown ids are skipped.
func Delete(label string, s *element.Store, ids ...string) Command {
	type victim struct {
		el    element.Element
		index int
	}
	var victims []victim
	for _, id := range ids {
		el, ok := s.Get(id)
		if !ok {
			continue
		}
		idx, _ := s.IndexOf(id)
		victims = append(victims, victim{el: el, index: idx})
	}
	sort.SliceStable(victims, func(i, j int) bool {
		if victims[i].el.Page != victims[j].el.Page {
			return victims[i].el.Page < victims[j].el.Page
		}
		return victims[i].index > victims[j].index
	})
	cmd := Command{Label: label}
	for _, v := range victims {
		cmd.Changes = append(cmd.Changes, Change{Before: clone(v.el), Index: v.index})
	}
	return cmd
}

// Compound joins commands into one that applies and reverts atomically.
func Compound(label string, cmds ...Command) Command {
	out := Command{Label: label}
	for _, c := range cmds {
		out.Changes = append(out.Changes, c.Changes...)
	}
	return out
}
