package mathpad

// ============================================================
// Token catalog — the insertable buttons of the editor
// ============================================================

// Category tags a token with its insertion behaviour and styling group.
type Category int

const (
	CategoryNumber Category = iota
	CategoryOperator
	CategoryFunction
	CategoryPower
	CategoryConstant
	CategoryVariable
	CategoryParenthesis
	CategoryControl
)

var categoryNames = [...]string{
	CategoryNumber:      "number",
	CategoryOperator:    "operator",
	CategoryFunction:    "function",
	CategoryPower:       "power",
	CategoryConstant:    "constant",
	CategoryVariable:    "variable",
	CategoryParenthesis: "parenthesis",
	CategoryControl:     "control",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Control labels. Control tokens carry no insert text; the editor
// dispatches them in Press.
const (
	LabelClear     = "DEL"
	LabelBackspace = "⌫"
	LabelLeft      = "←"
	LabelRight     = "→"
)

// Token is a single editor button: the glyph shown to the user and the
// canonical fragment it splices into the buffer.
type Token struct {
	Label    string   `json:"label"`
	Insert   string   `json:"insert"`
	Category Category `json:"category"`
	Title    string   `json:"title,omitempty"`
}

var catalog = []Token{
	// functions and powers
	{Label: "sin", Insert: "sin(", Category: CategoryFunction},
	{Label: "cos", Insert: "cos(", Category: CategoryFunction},
	{Label: "tan", Insert: "tan(", Category: CategoryFunction},
	{Label: "log", Insert: "log(", Category: CategoryFunction},
	{Label: "ln", Insert: "ln(", Category: CategoryFunction},
	{Label: "√", Insert: "sqrt(", Category: CategoryFunction},
	{Label: "x²", Insert: "**2", Category: CategoryPower},
	{Label: "x³", Insert: "**3", Category: CategoryPower},
	{Label: "xⁿ", Insert: "**", Category: CategoryPower},
	{Label: "|x|", Insert: "abs(", Category: CategoryFunction},
	{Label: "exp", Insert: "exp(", Category: CategoryFunction},
	{Label: "e", Insert: "e", Category: CategoryConstant},
	{Label: "a/b", Insert: "/", Category: CategoryOperator},
	{Label: "x", Insert: "x", Category: CategoryVariable},
	{Label: "y", Insert: "y", Category: CategoryVariable},
	{Label: "z", Insert: "z", Category: CategoryVariable},

	// parentheses
	{Label: "(", Insert: "(", Category: CategoryParenthesis},
	{Label: ")", Insert: ")", Category: CategoryParenthesis},
	{Label: "π", Insert: "pi", Category: CategoryConstant},

	// keypad
	{Label: "7", Insert: "7", Category: CategoryNumber},
	{Label: "8", Insert: "8", Category: CategoryNumber},
	{Label: "9", Insert: "9", Category: CategoryNumber},
	{Label: LabelClear, Category: CategoryControl, Title: "Clear expression"},
	{Label: "4", Insert: "4", Category: CategoryNumber},
	{Label: "5", Insert: "5", Category: CategoryNumber},
	{Label: "6", Insert: "6", Category: CategoryNumber},
	{Label: "×", Insert: "*", Category: CategoryOperator},
	{Label: "1", Insert: "1", Category: CategoryNumber},
	{Label: "2", Insert: "2", Category: CategoryNumber},
	{Label: "3", Insert: "3", Category: CategoryNumber},
	{Label: "−", Insert: "-", Category: CategoryOperator},
	{Label: "0", Insert: "0", Category: CategoryNumber},
	{Label: ".", Insert: ".", Category: CategoryNumber},
	{Label: "+", Insert: "+", Category: CategoryOperator},

	// cursor controls
	{Label: LabelLeft, Category: CategoryControl, Title: "Move cursor left"},
	{Label: LabelRight, Category: CategoryControl, Title: "Move cursor right"},
	{Label: LabelBackspace, Category: CategoryControl, Title: "Delete character"},
}

// Catalog returns the editor's buttons in layout order. The slice is a
// copy; tokens are values and cannot be mutated through it.
func Catalog() []Token {
	out := make([]Token, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a token by its label.
func Lookup(label string) (Token, bool) {
	for _, t := range catalog {
		if t.Label == label {
			return t, true
		}
	}
	return Token{}, false
}

func TokensByCategory(c Category) []Token {
	var out []Token
	for _, t := range catalog {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// Variables lists the variable names the catalog can insert.
func Variables() []string {
	vs := TokensByCategory(CategoryVariable)
	names := make([]string, len(vs))
	for i, t := range vs {
		names[i] = t.Insert
	}
	return names
}

func isCatalogVariable(name string) bool {
	for _, t := range catalog {
		if t.Category == CategoryVariable && t.Insert == name {
			return true
		}
	}
	return false
}
