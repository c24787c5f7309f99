package history

import (
	"log"

	"pdf-touchup/internal/element"
)

// DefaultLimit is the number of commands kept when no limit is configured.
const DefaultLimit = 100

// History is a single linear undo/redo stack. Cursor is the index of the
// newest applied command, -1 when everything has been undone.
type History struct {
	limit   int
	entries []Command
	cursor  int
}

// New creates a history holding at most limit commands.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit, cursor: -1}
}

// Do applies cmd to s and records it. The redo tail is discarded, and the
// oldest command is dropped once the limit is exceeded. Empty commands are
// ignored.
func (h *History) Do(s *element.Store, cmd Command) error {
	if len(cmd.Changes) == 0 {
		return nil
	}
	if err := cmd.Apply(s); err != nil {
		return err
	}
	h.entries = append(h.entries[:h.cursor+1], cmd)
	if len(h.entries) > h.limit {
		h.entries = append(h.entries[:0:0], h.entries[len(h.entries)-h.limit:]...)
	}
	h.cursor = len(h.entries) - 1
	return nil
}

// Undo reverts the newest applied command. It reports false when there is
// nothing to undo.
func (h *History) Undo(s *element.Store) (Command, bool) {
	if h.cursor < 0 {
		return Command{}, false
	}
	cmd := h.entries[h.cursor]
	if err := cmd.Revert(s); err != nil {
		log.Printf("History: undo failed: %v", err)
		return Command{}, false
	}
	h.cursor--
	return cmd, true
}

// Redo reapplies the command after the cursor. It reports false at the
// newest entry.
func (h *History) Redo(s *element.Store) (Command, bool) {
	if h.cursor+1 >= len(h.entries) {
		return Command{}, false
	}
	cmd := h.entries[h.cursor+1]
	if err := cmd.Apply(s); err != nil {
		log.Printf("History: redo failed: %v", err)
		return Command{}, false
	}
	h.cursor++
	return cmd, true
}

// CanUndo reports whether Undo would do anything.
func (h *History) CanUndo() bool { return h.cursor >= 0 }

// CanRedo reports whether Redo would do anything.
func (h *History) CanRedo() bool { return h.cursor+1 < len(h.entries) }

// Len returns the number of recorded commands, including undone ones.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the index of the newest applied command.
func (h *History) Cursor() int { return h.cursor }

// Limit returns the maximum number of commands kept.
func (h *History) Limit() int { return h.limit }

// Entries returns the recorded commands, oldest first.
func (h *History) Entries() []Command {
	return append([]Command(nil), h.entries...)
}

// Clear forgets every command.
func (h *History) Clear() {
	h.entries = nil
	h.cursor = -1
}
