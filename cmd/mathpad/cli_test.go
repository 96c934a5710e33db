package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mathpad "github.com/njchilds90/gomathpad"
	"github.com/njchilds90/gomathpad/backend"
)

// run executes the CLI against a config path that does not exist, so
// every command sees the defaults plus the test's environment.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "mathpad.yaml")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// =============================================================================
// EXPRESSION COMMANDS
// =============================================================================

func TestEvalCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bindings", []string{"eval", "x**2+1", "--set", "x=3"}, "10\n"},
		{"constants", []string{"eval", "2*pi"}, "6.283185307179586\n"},
		{"display input", []string{"eval", "--from-display", "2×π"}, "6.283185307179586\n"},
		{"no real value", []string{"eval", "sqrt(-1)"}, "undefined (no real value)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvalCmd_Errors(t *testing.T) {
	_, err := run(t, "eval", "x+")
	assert.Error(t, err)

	_, err = run(t, "eval", "x+1")
	var ee *mathpad.EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, mathpad.KindUnbound, ee.Kind)

	_, err = run(t, "eval", "x", "--set", "x=abc")
	assert.ErrorContains(t, err, "not a number")
}

func TestValidateCmd(t *testing.T) {
	out, err := run(t, "validate", "sin(x)+1")
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	_, err = run(t, "validate", "(x")
	var ve *mathpad.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNotationCmds(t *testing.T) {
	out, err := run(t, "display", "x**2*pi")
	require.NoError(t, err)
	assert.Equal(t, "x²×π\n", out)

	out, err = run(t, "canonical", "x²×π")
	require.NoError(t, err)
	assert.Equal(t, "x**2*pi\n", out)
}

func TestCatalogCmd_JSON(t *testing.T) {
	out, err := run(t, "catalog", "--json")
	require.NoError(t, err)
	var tokens []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &tokens))
	assert.Len(t, tokens, len(mathpad.Catalog()))
	assert.Equal(t, "sin", tokens[0]["label"])
}

// =============================================================================
// INTEGRATION COMMANDS
// =============================================================================

func TestIntegrateCmd_JSON(t *testing.T) {
	out, err := run(t, "integrate", "x", "-a", "0", "-b", "2", "-n", "4", "--rule", "trapezoid", "--json")
	require.NoError(t, err)

	var res struct {
		Rule     string  `json:"rule"`
		Integral float64 `json:"integral"`
		Table    []struct {
			Weight int `json:"weight"`
		} `json:"table"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "trapezoid", res.Rule)
	assert.InDelta(t, 2.0, res.Integral, 1e-12)
	require.Len(t, res.Table, 5)
	assert.Equal(t, 2, res.Table[1].Weight)
}

func TestIntegrateCmd_ConfigDefaults(t *testing.T) {
	out, err := run(t, "integrate", "x**2", "--upper=2", "--json")
	require.NoError(t, err)
	var res mathpad.IntegrationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, mathpad.RuleSimpson, res.Rule)
	assert.Equal(t, 4, res.Subintervals)
	assert.InDelta(t, 8.0/3.0, res.Integral, 1e-12)
}

func TestIntegrateCmd_Table(t *testing.T) {
	out, err := run(t, "integrate", "sqrt(x)", "--lower=-1", "--upper=1", "-n", "2", "--rule", "trapezoid")
	require.NoError(t, err)
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "integral ≈ 0.5")
	assert.Contains(t, out, "1 node(s) without a real value were skipped")
}

func TestIntegrateCmd_Rejects(t *testing.T) {
	_, err := run(t, "integrate", "x", "-n", "3", "--rule", "simpson")
	var pe *mathpad.PreconditionError
	assert.ErrorAs(t, err, &pe)

	_, err = run(t, "integrate", "x", "--rule", "romberg")
	assert.Error(t, err)
}

func TestIntegrateCmd_ExplicitZeroIsNotDefault(t *testing.T) {
	_, err := run(t, "integrate", "x", "-n", "0", "--rule", "trapezoid")
	var pe *mathpad.PreconditionError
	assert.ErrorAs(t, err, &pe)

	_, err = run(t, "integrate", "x", "-n", "2000000", "--rule", "trapezoid")
	assert.ErrorAs(t, err, &pe)

	_, err = run(t, "sample", "x", "-p", "0")
	assert.ErrorAs(t, err, &pe)
}

func TestSampleCmd(t *testing.T) {
	out, err := run(t, "sample", "2*x", "--upper=1", "-p", "2")
	require.NoError(t, err)
	assert.Equal(t, "0\t0\n0.5\t1\n1\t2\n", out)
}

// =============================================================================
// SOLVER COMMANDS
// =============================================================================

func TestSolveCmd_ThroughRunner(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"root": 1.5, "converged": true, "iterations": [{"iteration": 1, "x": 1.5}]}`))
	}))
	defer srv.Close()
	t.Setenv("MATHPAD_BACKEND_URL", srv.URL)

	out, err := run(t, "solve", "Newton-Raphson", "x**2-2", "--param", "x0=1")
	require.NoError(t, err)

	assert.Equal(t, "/solve/newton-raphson", gotPath)
	assert.Equal(t, "x**2-2", gotBody["function"])
	assert.Equal(t, 1.0, gotBody["x0"])
	assert.Contains(t, out, "root: 1.5")
	assert.Contains(t, out, "converged: true")
	assert.Contains(t, out, "iteration")
}

func TestSolveCmd_Rejects(t *testing.T) {
	t.Setenv("MATHPAD_BACKEND_URL", "http://127.0.0.1:1")

	_, err := run(t, "solve", "regula-falsi", "x")
	assert.ErrorIs(t, err, backend.ErrUnknownMethod)

	_, err = run(t, "solve", "newton-raphson", "x**2-2")
	assert.ErrorIs(t, err, backend.ErrIncompleteRequest)

	_, err = run(t, "solve", "newton-raphson", "(x", "--param", "x0=1")
	var ve *mathpad.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = run(t, "solve", "secant", "x", "--param", "x0")
	assert.ErrorContains(t, err, "want key=value")
}

func TestParseParam(t *testing.T) {
	k, v, err := parseParam("A=[[4,1],[1,3]]")
	require.NoError(t, err)
	assert.Equal(t, "A", k)
	assert.Equal(t, []interface{}{[]interface{}{4.0, 1.0}, []interface{}{1.0, 3.0}}, v)

	_, v, err = parseParam("name=plain text")
	require.NoError(t, err)
	assert.Equal(t, "plain text", v)
}

func TestMethodsCmd(t *testing.T) {
	out, err := run(t, "methods")
	require.NoError(t, err)
	for _, m := range backend.Methods() {
		assert.Contains(t, out, string(m))
	}
	assert.Contains(t, out, "http://localhost:5001/solve")
}

func TestHealthCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	t.Setenv("MATHPAD_BACKEND_URL", srv.URL)

	out, err := run(t, "health", "euler", "jacobi")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, " ok\n"))
}

// =============================================================================
// SERVER
// =============================================================================

type fakeSolver struct {
	resp backend.Response
	err  error
	got  backend.Request
}

func (f *fakeSolver) Solve(_ context.Context, _ backend.Method, req backend.Request) (backend.Response, error) {
	f.got = req
	return f.resp, f.err
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestServer_Tool(t *testing.T) {
	h := newServer(&fakeSolver{}, nil, 0)

	rec := post(t, h, "/tool", `{"tool":"to_display","params":{"expr":"x**2"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp mathpad.ToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "x²", resp.Display)

	rec = post(t, h, "/tool", `{"tool":"to_display","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/tool", `{"tool":"catalog"} {}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tool", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_BodyLimit(t *testing.T) {
	h := newServer(&fakeSolver{}, nil, 16)
	rec := post(t, h, "/tool", `{"tool":"to_display","params":{"expr":"x**2"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SchemaAndHealth(t *testing.T) {
	h := newServer(&fakeSolver{}, nil, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schema", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, json.Valid(rec.Body.Bytes()))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, mathpad.Version, health["version"])
}

func TestServer_Solve(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fs := &fakeSolver{resp: backend.Response{"root": 2.0}}
		rec := post(t, newServer(fs, nil, 0), "/solve/bisection",
			`{"function":"x-2","xi":0,"xu":4,"tolerance":0.001,"max_iterations":50}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"root":2}`, rec.Body.String())
		assert.Equal(t, "x-2", fs.got.Function())
	})

	tests := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
	}{
		{"unknown method", "/solve/regula-falsi", `{}`, nil, http.StatusNotFound},
		{"missing params", "/solve/secant", `{"function":"x"}`, nil, http.StatusBadRequest},
		{"bad json", "/solve/euler", `{`, nil, http.StatusBadRequest},
		{"service status kept", "/solve/romberg", `{"function":"x","a":0,"b":1}`,
			&backend.SolveError{Method: backend.Romberg, Status: http.StatusBadRequest, Message: "bad"}, http.StatusBadRequest},
		{"error payload", "/solve/romberg", `{"function":"x","a":0,"b":1}`,
			&backend.SolveError{Method: backend.Romberg, Message: "diverged"}, http.StatusUnprocessableEntity},
		{"unreachable", "/solve/romberg", `{"function":"x","a":0,"b":1}`,
			&backend.ConnectionError{Method: backend.Romberg, URL: "http://x", Err: errors.New("refused")}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, newServer(&fakeSolver{err: tt.err}, nil, 0), tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}
