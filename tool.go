package mathpad

import (
	"encoding/json"
	"fmt"
	"math"
)

// ============================================================
// MCP Tool Interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result  interface{} `json:"result,omitempty"`
	LaTeX   string      `json:"latex,omitempty"`
	String  string      `json:"string,omitempty"`
	Display string      `json:"display,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ToLaTeX parses canonical text and renders it as LaTeX.
func ToLaTeX(canonical string) (string, error) {
	e, err := Parse(canonical)
	if err != nil {
		return "", err
	}
	return LaTeX(e), nil
}

func HandleToolCall(req ToolRequest) ToolResponse {
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	optString := func(key, def string) (string, error) {
		if _, ok := req.Params[key]; !ok {
			return def, nil
		}
		return getString(key)
	}
	getNumber := func(key string) (float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return 0, fmt.Errorf("missing param: %s", key)
		}
		f, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("param %s must be a number", key)
		}
		return f, nil
	}
	optInt := func(key string, def int) (int, error) {
		if _, ok := req.Params[key]; !ok {
			return def, nil
		}
		f, err := getNumber(key)
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("param %s must be an integer", key)
		}
		if math.Abs(f) > float64(MaxSubintervals) {
			return 0, &PreconditionError{Msg: fmt.Sprintf("param %s must be at most %d", key, MaxSubintervals)}
		}
		return int(f), nil
	}
	getBindings := func(key string) (Bindings, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, nil
		}
		raw, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s must be an object", key)
		}
		out := make(Bindings, len(raw))
		for name, val := range raw {
			f, ok := val.(float64)
			if !ok {
				return nil, fmt.Errorf("param %s.%s must be a number", key, name)
			}
			out[name] = f
		}
		return out, nil
	}
	fail := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

	switch req.Tool {
	case "to_display":
		s, err := getString("expr")
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: ToDisplay(s), Display: ToDisplay(s), String: s}

	case "to_canonical":
		s, err := getString("expr")
		if err != nil {
			return fail(err)
		}
		c := ToCanonical(s)
		return ToolResponse{Result: c, String: c, Display: s}

	case "validate":
		s, err := getString("expr")
		if err != nil {
			return fail(err)
		}
		r := Validate(s)
		resp := ToolResponse{Result: r, String: s, Display: ToDisplay(s)}
		if !r.OK() {
			resp.Error = r.Err().Error()
		}
		return resp

	case "latex":
		s, err := getString("expr")
		if err != nil {
			return fail(err)
		}
		tex, err := ToLaTeX(s)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: tex, LaTeX: tex, String: s}

	case "evaluate":
		s, err := getString("expr")
		if err != nil {
			return fail(err)
		}
		b, err := getBindings("bindings")
		if err != nil {
			return fail(err)
		}
		prog, err := Compile(s)
		if err != nil {
			return fail(err)
		}
		v, err := prog.EvalStrict(b)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: v, String: prog.Expr().String(), LaTeX: prog.Expr().LaTeX()}

	case "integrate":
		s, err := getString("expr")
		if err != nil {
			return fail(err)
		}
		ruleName, err := optString("rule", string(RuleSimpson))
		if err != nil {
			return fail(err)
		}
		rule, err := ParseRule(ruleName)
		if err != nil {
			return fail(err)
		}
		varName, err := optString("var", "x")
		if err != nil {
			return fail(err)
		}
		a, err := getNumber("a")
		if err != nil {
			return fail(err)
		}
		bnd, err := getNumber("b")
		if err != nil {
			return fail(err)
		}
		n, err := optInt("n", 4)
		if err != nil {
			return fail(err)
		}
		fixed, err := getBindings("bindings")
		if err != nil {
			return fail(err)
		}
		res, err := Integrate(rule, IntegrationRequest{
			Expression: s, Variable: varName, Lower: a, Upper: bnd, Subintervals: n, Bindings: fixed,
		})
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: res, String: fmt.Sprintf("%.10g", res.Integral), Display: ToDisplay(s)}

	case "sample":
		s, err := getString("expr")
		if err != nil {
			return fail(err)
		}
		varName, err := optString("var", "x")
		if err != nil {
			return fail(err)
		}
		a, err := getNumber("a")
		if err != nil {
			return fail(err)
		}
		bnd, err := getNumber("b")
		if err != nil {
			return fail(err)
		}
		points, err := optInt("points", DefaultSamplePoints)
		if err != nil {
			return fail(err)
		}
		fixed, err := getBindings("bindings")
		if err != nil {
			return fail(err)
		}
		pts, err := Sample(s, varName, a, bnd, points, fixed)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: pts, String: fmt.Sprintf("%d points", len(pts))}

	case "catalog":
		return ToolResponse{Result: Catalog()}

	case "mcp_spec":
		var spec interface{}
		if err := json.Unmarshal([]byte(MCPToolSpec()), &spec); err != nil {
			return fail(err)
		}
		return ToolResponse{Result: spec}
	}
	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// ============================================================
// MCP spec
// ============================================================

func MCPToolSpec() string {
	tools := []map[string]interface{}{
		ts("to_display", "Render canonical text with display glyphs (×, ÷, π, √, superscripts)", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("to_canonical", "Convert display text back to canonical ASCII form", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("validate", "Check parenthesis balance and syntax", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("latex", "Render canonical text as LaTeX", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("evaluate", "Evaluate with variable bindings. Optional: bindings (object name->number)", []string{"expr"}, map[string]string{"expr": "string", "bindings": "object"}),
		ts("integrate", "Composite-rule ∫_a^b with per-node table. Optional: rule (trapezoid|simpson), n, var, bindings", []string{"expr", "a", "b"}, map[string]string{"expr": "string", "a": "number", "b": "number", "n": "integer", "rule": "string", "var": "string", "bindings": "object"}),
		ts("sample", "Sample the curve for plotting, skipping points without a real value", []string{"expr", "a", "b"}, map[string]string{"expr": "string", "a": "number", "b": "number", "points": "integer", "var": "string", "bindings": "object"}),
		ts("catalog", "List the editor's insertable tokens", []string{}, map[string]string{}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
