package richtext

// MaxHistory is the number of snapshots a History keeps.
const MaxHistory = 50

// Snapshot is one entry in the undo history.
type Snapshot struct {
	Document Document
	HTML     string
}

// History is a linear undo/redo stack of document snapshots.
// When full, the oldest snapshot is dropped.
type History struct {
	entries []Snapshot
	index   int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{index: -1}
}

// Push records doc as the newest snapshot, discarding any redo entries.
func (h *History) Push(doc Document) {
	h.entries = h.entries[:h.index+1]
	h.entries = append(h.entries, Snapshot{Document: doc.Clone(), HTML: ToHTML(doc)})
	if len(h.entries) > MaxHistory {
		h.entries = h.entries[len(h.entries)-MaxHistory:]
	}
	h.index = len(h.entries) - 1
}

// Undo steps back one snapshot. It returns false at the oldest snapshot.
func (h *History) Undo() (Snapshot, bool) {
	if h.index <= 0 {
		return Snapshot{}, false
	}
	h.index--
	return h.current(), true
}

// Redo steps forward one snapshot. It returns false at the newest snapshot.
func (h *History) Redo() (Snapshot, bool) {
	if h.index < 0 || h.index >= len(h.entries)-1 {
		return Snapshot{}, false
	}
	h.index++
	return h.current(), true
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index >= 0 && h.index < len(h.entries)-1 }
func (h *History) Len() int      { return len(h.entries) }
func (h *History) Index() int    { return h.index }

func (h *History) current() Snapshot {
	s := h.entries[h.index]
	return Snapshot{Document: s.Document.Clone(), HTML: s.HTML}
}
