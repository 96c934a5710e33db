package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	mathpad "github.com/njchilds90/gomathpad"
)

// padColumns is the width of the button grid.
const padColumns = 4

// Focus identifies which part of the screen receives keys.
type Focus int

const (
	FocusPad Focus = iota
	FocusLower
	FocusUpper
	FocusN
	focusCount
)

// keyTokens maps typed characters to catalog labels.
var keyTokens = map[string]string{
	"+": "+", "-": "−", "*": "×", "/": "a/b", "^": "xⁿ",
	"(": "(", ")": ")", ".": ".",
	"x": "x", "y": "y", "z": "z", "e": "e", "p": "π",
}

// Options configures the editor screen.
type Options struct {
	Rule         mathpad.Rule
	Subintervals int
	Variable     string
	Lower, Upper float64
	Logger       *zap.Logger
}

// EditorModel is the bubbletea model for one expression editor.
type EditorModel struct {
	width  int
	height int

	editor *mathpad.Editor
	grid   [][]mathpad.Token
	row    int
	col    int
	focus  Focus

	inputs [3]textinput.Model // lower, upper, n
	table  table.Model

	rule      mathpad.Rule
	variable  string
	committed string
	result    *mathpad.IntegrationResult
	status    string
	err       error
	quitting  bool

	logger *zap.Logger
	styles Styles
}

// NewEditorModel creates the editor screen with the catalog laid out as
// a button pad.
func NewEditorModel(opts Options) EditorModel {
	if opts.Rule == "" {
		opts.Rule = mathpad.RuleSimpson
	}
	if opts.Subintervals == 0 {
		opts.Subintervals = 4
	}
	if opts.Variable == "" {
		opts.Variable = "x"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	tokens := mathpad.Catalog()
	var grid [][]mathpad.Token
	for i := 0; i < len(tokens); i += padColumns {
		end := i + padColumns
		if end > len(tokens) {
			end = len(tokens)
		}
		grid = append(grid, tokens[i:end])
	}

	var inputs [3]textinput.Model
	for i, v := range []string{
		strconv.FormatFloat(opts.Lower, 'g', -1, 64),
		strconv.FormatFloat(opts.Upper, 'g', -1, 64),
		strconv.Itoa(opts.Subintervals),
	} {
		ti := textinput.New()
		ti.CharLimit = 24
		ti.Width = 12
		ti.SetValue(v)
		inputs[i] = ti
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "i", Width: 4},
			{Title: opts.Variable, Width: 12},
			{Title: "f(" + opts.Variable + ")", Width: 14},
			{Title: "w", Width: 3},
			{Title: "w·f", Width: 14},
		}),
		table.WithHeight(10),
	)

	return EditorModel{
		editor:   mathpad.NewEditor(mathpad.WithLogger(opts.Logger)),
		grid:     grid,
		inputs:   inputs,
		table:    t,
		rule:     opts.Rule,
		variable: opts.Variable,
		logger:   opts.Logger,
		styles:   DefaultStyles(),
	}
}

func (m EditorModel) Init() tea.Cmd { return nil }

// Committed returns the last committed canonical expression.
func (m EditorModel) Committed() string { return m.committed }

// Result returns the integration computed for the committed expression.
func (m EditorModel) Result() *mathpad.IntegrationResult { return m.result }

// State returns the canonical buffer and cursor being edited.
func (m EditorModel) State() mathpad.EditorState { return m.editor.State() }

func (m EditorModel) Focused() mathpad.Token { return m.grid[m.row][m.col] }

// Update handles messages.
func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			return m.setFocus((m.focus + 1) % focusCount)
		case "shift+tab":
			return m.setFocus((m.focus + focusCount - 1) % focusCount)
		case "ctrl+s", "=":
			m.commit()
			return m, nil
		}
		if m.focus != FocusPad {
			var cmd tea.Cmd
			i := m.focus - FocusLower
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			return m, cmd
		}
		if m.scrollTable(msg.String()) {
			return m, nil
		}
		m.padKey(msg)
		return m, nil
	}
	return m, nil
}

// scrollTable moves through the node table with the paging keys.
func (m *EditorModel) scrollTable(key string) bool {
	if len(m.table.Rows()) == 0 {
		return false
	}
	switch key {
	case "pgup":
		m.table.MoveUp(m.table.Height())
	case "pgdown":
		m.table.MoveDown(m.table.Height())
	case "home":
		m.table.GotoTop()
	case "end":
		m.table.GotoBottom()
	default:
		return false
	}
	return true
}

func (m EditorModel) setFocus(f Focus) (tea.Model, tea.Cmd) {
	m.focus = f
	var cmd tea.Cmd
	for i := range m.inputs {
		if Focus(i)+FocusLower == f {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return m, cmd
}

func (m *EditorModel) padKey(msg tea.KeyMsg) {
	if !m.editor.IsOpen() {
		m.editor.Open()
	}
	switch msg.String() {
	case "up":
		if m.row > 0 {
			m.row--
		}
		m.clampCol()
	case "down":
		if m.row < len(m.grid)-1 {
			m.row++
		}
		m.clampCol()
	case "left":
		if m.col > 0 {
			m.col--
		}
	case "right":
		if m.col < len(m.grid[m.row])-1 {
			m.col++
		}
	case "enter", " ":
		m.press(m.grid[m.row][m.col].Label)
	case "backspace":
		m.press(mathpad.LabelBackspace)
	case "shift+left":
		m.press(mathpad.LabelLeft)
	case "shift+right":
		m.press(mathpad.LabelRight)
	case "ctrl+u", "delete":
		m.press(mathpad.LabelClear)
	default:
		s := msg.String()
		if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
			m.press(s)
			return
		}
		if label, ok := keyTokens[s]; ok {
			m.press(label)
		}
	}
}

func (m *EditorModel) clampCol() {
	if last := len(m.grid[m.row]) - 1; m.col > last {
		m.col = last
	}
}

func (m *EditorModel) press(label string) {
	if err := m.editor.Press(label); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = ""
}

// commit validates the buffer; a valid expression is integrated over the
// bounds in the input fields and its node table shown.
func (m *EditorModel) commit() {
	expr, err := m.editor.Commit()
	if err != nil {
		m.err = err
		m.logger.Debug("commit failed", zap.Error(err))
		return
	}
	m.committed = expr
	m.err = nil

	req, err := m.request(expr)
	if err != nil {
		m.err = err
		return
	}
	res, err := mathpad.Integrate(m.rule, req)
	if err != nil {
		m.err = err
		m.result = nil
		m.table.SetRows(nil)
		return
	}
	m.result = res
	m.table.SetRows(tableRows(res))
	m.status = fmt.Sprintf("%s ≈ %.10g", res.Method, res.Integral)
	if res.Skipped > 0 {
		m.status += fmt.Sprintf("  (%d nodes without a real value skipped)", res.Skipped)
	}
}

func (m *EditorModel) request(expr string) (mathpad.IntegrationRequest, error) {
	a, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[0].Value()), 64)
	if err != nil {
		return mathpad.IntegrationRequest{}, fmt.Errorf("lower bound: %w", err)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[1].Value()), 64)
	if err != nil {
		return mathpad.IntegrationRequest{}, fmt.Errorf("upper bound: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(m.inputs[2].Value()))
	if err != nil {
		return mathpad.IntegrationRequest{}, fmt.Errorf("subintervals: %w", err)
	}
	return mathpad.IntegrationRequest{Expression: expr, Variable: m.variable, Lower: a, Upper: b, Subintervals: n}, nil
}

func tableRows(res *mathpad.IntegrationResult) []table.Row {
	rows := make([]table.Row, len(res.Rows))
	for i, r := range res.Rows {
		fx, contrib := "—", "—"
		if r.Available {
			fx = strconv.FormatFloat(r.FX, 'g', 8, 64)
			contrib = strconv.FormatFloat(r.Contribution, 'g', 8, 64)
		}
		rows[i] = table.Row{
			strconv.Itoa(r.Index),
			strconv.FormatFloat(r.X, 'g', 8, 64),
			fx,
			strconv.Itoa(r.Weight),
			contrib,
		}
	}
	return rows
}

// View renders the screen.
func (m EditorModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("mathpad") + "\n")
	b.WriteString(m.styles.Display.Render(m.displayLine()) + "\n")
	if m.committed != "" {
		b.WriteString(m.styles.Status.Render("committed: "+mathpad.ToDisplay(m.committed)) + "\n")
	}

	for r, row := range m.grid {
		cells := make([]string, len(row))
		for c, tok := range row {
			st := m.styles.ButtonStyle(tok.Category)
			if m.focus == FocusPad && r == m.row && c == m.col {
				st = m.styles.Focused
			}
			cells[c] = st.Render(tok.Label)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n")
	}

	b.WriteString("\n")
	for i, label := range []string{"a", "b", "n"} {
		b.WriteString(m.styles.Label.Render(label) + m.inputs[i].View() + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render(errorText(m.err)) + "\n")
	case m.status != "":
		b.WriteString(m.styles.Status.Render(m.status) + "\n")
	}
	if len(m.table.Rows()) > 0 {
		b.WriteString("\n" + m.table.View() + "\n")
	}
	b.WriteString(m.styles.Help.Render("arrows move · enter press · = commit · tab bounds · pgup/pgdn table · esc quit") + "\n")
	return b.String()
}

// displayLine is the display form with a cursor mark at the editor's
// position.
func (m EditorModel) displayLine() string {
	runes := []rune(m.editor.Display())
	pos := m.editor.DisplayCursor()
	if pos > len(runes) {
		pos = len(runes)
	}
	return string(runes[:pos]) + m.styles.Cursor.Render("│") + string(runes[pos:])
}

func errorText(err error) string {
	var ve *mathpad.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return "error: " + err.Error()
}
