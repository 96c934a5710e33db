package mathpad

import (
	"errors"

	"go.uber.org/zap"
)

// ============================================================
// Editor — canonical buffer with an independent cursor
// ============================================================

var (
	ErrEmptyExpression = errors.New("mathpad: expression is empty")
	ErrEditorClosed    = errors.New("mathpad: editor is closed")
	ErrUnknownToken    = errors.New("mathpad: unknown token")
)

// EditorState is a snapshot of the editor. Cursor is a byte offset into
// Buffer, always within [0, len(Buffer)].
type EditorState struct {
	Buffer string `json:"buffer"`
	Cursor int    `json:"cursor"`
}

// Editor owns one expression being composed. It is not safe for
// concurrent use; each screen owns its own editor.
type Editor struct {
	buf       string
	cursor    int
	open      bool
	onInsert  func(canonical string)
	validator *Validator
	logger    *zap.Logger
}

type EditorOption func(*Editor)

// WithOnInsert sets the callback fired with the canonical text on a
// successful Commit.
func WithOnInsert(fn func(canonical string)) EditorOption {
	return func(e *Editor) { e.onInsert = fn }
}

func WithValidator(v *Validator) EditorOption {
	return func(e *Editor) { e.validator = v }
}

func WithLogger(l *zap.Logger) EditorOption {
	return func(e *Editor) { e.logger = l }
}

// NewEditor returns an open editor with an empty buffer.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{open: true, validator: defaultValidator, logger: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Editor) reset() {
	e.buf = ""
	e.cursor = 0
}

// Open starts a fresh expression. Opening an open editor keeps its state.
func (e *Editor) Open() {
	if e.open {
		return
	}
	e.open = true
	e.reset()
}

// Close discards the buffer.
func (e *Editor) Close() {
	e.open = false
	e.reset()
}

func (e *Editor) IsOpen() bool       { return e.open }
func (e *Editor) Buffer() string     { return e.buf }
func (e *Editor) Cursor() int        { return e.cursor }
func (e *Editor) Len() int           { return len(e.buf) }
func (e *Editor) State() EditorState { return EditorState{Buffer: e.buf, Cursor: e.cursor} }

// Display renders the buffer in display notation.
func (e *Editor) Display() string { return ToDisplay(e.buf) }

// DisplayCursor is the cursor position in runes of Display().
func (e *Editor) DisplayCursor() int { return DisplayOffset(e.buf, e.cursor) }

// Insert splices t's canonical text at the cursor and moves the cursor
// past it. Function tokens end in '(' so the cursor lands inside the
// call. Wherever the new text would fuse with an operand on either side
// ("2" then "x", "π" then "x", "x" then "2") an explicit '*' goes between
// them, keeping the buffer canonical. Control tokens are dispatched as in
// Press.
func (e *Editor) Insert(t Token) {
	if !e.open {
		return
	}
	if t.Category == CategoryControl {
		e.control(t.Label)
		return
	}
	text := t.Insert
	if text == "" {
		return
	}
	left, right := e.buf[:e.cursor], e.buf[e.cursor:]
	if joins(left, text) {
		text = "*" + text
	}
	left += text
	if joins(left, right) {
		right = "*" + right
	}
	e.buf = left + right
	e.cursor = len(left)
}

// Press handles a button by its label.
func (e *Editor) Press(label string) error {
	t, ok := Lookup(label)
	if !ok {
		return ErrUnknownToken
	}
	e.Insert(t)
	return nil
}

func (e *Editor) control(label string) {
	switch label {
	case LabelClear:
		e.Clear()
	case LabelBackspace:
		e.Backspace()
	case LabelLeft:
		e.MoveLeft()
	case LabelRight:
		e.MoveRight()
	}
}

// Backspace removes the character before the cursor. A deleted
// parenthesis leaves its partner in place. The '*' between two operands
// cannot go while both remain, so backspace steps over it instead; any
// other deletion that brings two operands together puts a '*' between
// them.
func (e *Editor) Backspace() {
	if !e.open || e.cursor == 0 {
		return
	}
	del := e.buf[e.cursor-1]
	left, right := e.buf[:e.cursor-1], e.buf[e.cursor:]
	if del == '*' && joins(left, right) {
		e.cursor--
		return
	}
	// Letters either side of a deleted letter were one word already.
	sameWord := isIdentPart(del) && left != "" && right != "" &&
		isIdentPart(left[len(left)-1]) && isIdentPart(right[0])
	if !sameWord && joins(left, right) {
		left += "*"
	}
	e.buf = left + right
	e.cursor = len(left)
}

func (e *Editor) MoveLeft() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *Editor) MoveRight() {
	if e.cursor < len(e.buf) {
		e.cursor++
	}
}

// MoveTo places the cursor at offset, clamped to the buffer.
func (e *Editor) MoveTo(offset int) {
	switch {
	case offset < 0:
		e.cursor = 0
	case offset > len(e.buf):
		e.cursor = len(e.buf)
	default:
		e.cursor = offset
	}
}

func (e *Editor) Clear() {
	if !e.open {
		return
	}
	e.reset()
}

// Commit validates the buffer. Only a valid expression is handed to the
// insert callback, after which the editor closes. An invalid buffer is
// left exactly as it was.
func (e *Editor) Commit() (string, error) {
	if !e.open {
		return "", ErrEditorClosed
	}
	if e.buf == "" {
		return "", ErrEmptyExpression
	}
	if r := e.validator.Validate(e.buf); !r.OK() {
		e.logger.Debug("commit rejected",
			zap.String("expr", e.buf),
			zap.Stringer("kind", r.Kind),
			zap.String("message", r.Message))
		return "", r.Err()
	}
	expr := e.buf
	e.logger.Debug("commit", zap.String("expr", expr))
	if e.onInsert != nil {
		e.onInsert(expr)
	}
	e.Close()
	return expr, nil
}
