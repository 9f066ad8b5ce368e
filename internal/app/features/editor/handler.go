// internal/app/features/editor/handler.go
package editor

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/richtext"
	"go.uber.org/zap"
)

const (
	// maxBodyBytes caps editor request bodies.
	maxBodyBytes = 1 << 20
	// maxOperations caps the operations replayed by one apply request.
	maxOperations = 500
)

// Handler exposes the rich-text editor model over HTTP. It holds no state:
// every request opens a fresh session.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new editor Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

type documentView struct {
	Text    string                 `json:"text"`
	Formats []richtext.FormatRange `json:"formats"`
	HTML    string                 `json:"html"`
}

func viewOf(doc richtext.Document) documentView {
	formats := doc.Formats
	if formats == nil {
		formats = []richtext.FormatRange{}
	}
	return documentView{Text: doc.Text, Formats: formats, HTML: richtext.ToHTML(doc)}
}

type parseInput struct {
	Content string `json:"content"`
}

type parseResponse struct {
	Success bool          `json:"success"`
	Kind    richtext.Kind `json:"kind"`
	documentView
}

// Parse decides how a stored value is read and returns the decoded document.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var in parseInput
	if !h.decode(w, r, &in) {
		return
	}

	doc, kind, err := richtext.Decode(in.Content)
	if err != nil {
		jsonutil.BadRequest(w, "Invalid content", err.Error())
		return
	}
	jsonutil.JSON(w, http.StatusOK, parseResponse{Success: true, Kind: kind, documentView: viewOf(doc)})
}

type renderInput struct {
	Text    string                 `json:"text"`
	Formats []richtext.FormatRange `json:"formats"`
}

// Render serializes a document to HTML.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var in renderInput
	if !h.decode(w, r, &in) {
		return
	}

	doc := richtext.Document{Text: in.Text, Formats: in.Formats}
	if err := doc.Validate(); err != nil {
		jsonutil.BadRequest(w, "Invalid formats", err.Error())
		return
	}
	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"html":    richtext.ToHTML(doc.Normalized()),
	})
}

// Operation is one editor action. Op selects which of the other fields apply.
type Operation struct {
	Op    string              `json:"op"`
	Type  richtext.FormatType `json:"type,omitempty"`
	Start int                 `json:"start,omitempty"`
	End   int                 `json:"end,omitempty"`
	Color string              `json:"color,omitempty"`
	Text  string              `json:"text,omitempty"`
	At    int                 `json:"at,omitempty"`
}

type applyInput struct {
	Content    *string                `json:"content"`
	Text       string                 `json:"text"`
	Formats    []richtext.FormatRange `json:"formats"`
	Operations []Operation            `json:"operations"`
}

type applyResponse struct {
	Success bool `json:"success"`
	documentView
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

var errUnknownOp = errors.New("unknown operation")

// Apply opens a session on the given content and replays the operations
// in order, returning the final document and history state.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var in applyInput
	if !h.decode(w, r, &in) {
		return
	}
	if len(in.Operations) > maxOperations {
		jsonutil.BadRequest(w, "Too many operations", fmt.Sprintf("At most %d operations per request", maxOperations))
		return
	}

	var s *richtext.Session
	if in.Content != nil {
		var err error
		if s, _, err = richtext.OpenSession(*in.Content); err != nil {
			jsonutil.BadRequest(w, "Invalid content", err.Error())
			return
		}
	} else {
		doc := richtext.Document{Text: in.Text, Formats: in.Formats}
		if doc.Formats == nil {
			doc.Formats = []richtext.FormatRange{}
		}
		if err := doc.Validate(); err != nil {
			jsonutil.BadRequest(w, "Invalid formats", err.Error())
			return
		}
		s = richtext.NewSession(doc.Normalized())
	}

	for i, op := range in.Operations {
		if err := apply(s, op); err != nil {
			jsonutil.BadRequest(w, "Invalid operation", fmt.Sprintf("operation %d (%s): %v", i, op.Op, err))
			return
		}
	}

	jsonutil.JSON(w, http.StatusOK, applyResponse{
		Success:      true,
		documentView: viewOf(s.Document()),
		CanUndo:      s.CanUndo(),
		CanRedo:      s.CanRedo(),
	})
}

// apply runs one operation. Undo and redo with nothing to restore are no-ops.
func apply(s *richtext.Session, op Operation) error {
	switch op.Op {
	case "format":
		return s.ApplyFormat(op.Type, op.Start, op.End, op.Color)
	case "insert":
		return s.InsertText(op.Text, op.At)
	case "linebreak":
		return s.InsertLineBreak(op.At)
	case "bullet":
		return s.InsertBullet(op.At)
	case "undo":
		s.Undo()
		return nil
	case "redo":
		s.Redo()
		return nil
	default:
		return errUnknownOp
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := jsonutil.Decode(r, v); err != nil {
		h.logger.Debug("editor: bad request body", zap.Error(err))
		jsonutil.BadRequest(w, "Invalid JSON", "Request body must be a JSON object")
		return false
	}
	return true
}
