package richtext

// Session is one editing session: the current document plus its history.
// Every successful edit is recorded so it can be undone.
//
// A Session is not safe for concurrent use.
type Session struct {
	doc     Document
	history *History
}

// NewSession starts a session on doc.
func NewSession(doc Document) *Session {
	s := &Session{doc: doc.Clone(), history: NewHistory()}
	s.history.Push(s.doc)
	return s
}

// OpenSession decodes a stored value and starts a session on it.
func OpenSession(stored string) (*Session, Kind, error) {
	doc, kind, err := Decode(stored)
	if err != nil {
		return nil, kind, err
	}
	return NewSession(doc), kind, nil
}

// Document returns a copy of the current document.
func (s *Session) Document() Document { return s.doc.Clone() }

// HTML renders the current document.
func (s *Session) HTML() string { return ToHTML(s.doc) }

func (s *Session) CanUndo() bool { return s.history.CanUndo() }
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// ApplyFormat formats [start, end) in the current document.
func (s *Session) ApplyFormat(t FormatType, start, end int, color string) error {
	return s.edit(func(d Document) (Document, error) {
		return d.ApplyFormat(t, start, end, color)
	})
}

// InsertText inserts text at offset at.
func (s *Session) InsertText(text string, at int) error {
	return s.edit(func(d Document) (Document, error) {
		return d.InsertText(text, at)
	})
}

// InsertLineBreak inserts a newline at offset at.
func (s *Session) InsertLineBreak(at int) error {
	return s.edit(func(d Document) (Document, error) {
		return d.InsertLineBreak(at)
	})
}

// InsertBullet inserts a bullet prefix at offset at.
func (s *Session) InsertBullet(at int) error {
	return s.edit(func(d Document) (Document, error) {
		return d.InsertBullet(at)
	})
}

// Undo restores the previous snapshot. It returns false if there is none.
func (s *Session) Undo() bool {
	snap, ok := s.history.Undo()
	if ok {
		s.doc = snap.Document
	}
	return ok
}

// Redo restores the next snapshot. It returns false if there is none.
func (s *Session) Redo() bool {
	snap, ok := s.history.Redo()
	if ok {
		s.doc = snap.Document
	}
	return ok
}

func (s *Session) edit(fn func(Document) (Document, error)) error {
	next, err := fn(s.doc)
	if err != nil {
		return err
	}
	s.doc = next
	s.history.Push(next)
	return nil
}
