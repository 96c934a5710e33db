package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	mathpad "github.com/njchilds90/gomathpad"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// HELPERS
// =============================================================================

// newService starts a fake numerical-method service and a client whose
// endpoint table points every method at it.
func newService(t *testing.T, h http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	endpoints := map[Method]string{}
	for _, m := range Methods() {
		endpoints[m] = srv.URL + "/" + string(m) + "/solve"
	}
	return srv, NewClient(endpoints, WithHTTPClient(srv.Client()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// METHOD / REQUEST TESTS
// =============================================================================

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Newton-Raphson")
	require.NoError(t, err)
	assert.Equal(t, NewtonRaphson, m)

	m, err = ParseMethod("gauss-sediel")
	require.NoError(t, err)
	assert.Equal(t, GaussSeidel, m)

	_, err = ParseMethod("regula-falsi")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestMethods(t *testing.T) {
	ms := Methods()
	assert.Len(t, ms, 10)
	assert.Equal(t, Bisection, ms[0])
	assert.True(t, Simpson.TakesFunction())
	assert.False(t, Jacobi.TakesFunction())
	assert.Equal(t, "NEWTON_RAPHSON", NewtonRaphson.EnvKey())
}

func TestRequest_Missing(t *testing.T) {
	req := NewRequest("x**2-2").Set("xi", 0.0).Set("xu", 2.0)
	assert.Equal(t, []string{"tolerance", "max_iterations"}, req.Missing(Bisection))
	assert.Equal(t, []string{"x0"}, req.Missing(NewtonRaphson))
	assert.Empty(t, req.Set("x0", 1.0).Missing(NewtonRaphson))
}

func TestResponse_Rows(t *testing.T) {
	t.Run("object rows", func(t *testing.T) {
		var r Response
		require.NoError(t, json.Unmarshal([]byte(`{"root":1.41,"error":0.001,"iterations_detail":[{"xr":1.5},{"xr":1.25}]}`), &r))
		_, failed := r.ErrorMessage()
		assert.False(t, failed, "numeric error field is an estimate, not a failure")
		rows := r.Rows()
		require.Len(t, rows, 2)
		assert.Equal(t, 1.25, rows[1]["xr"])
	})

	t.Run("romberg triangle", func(t *testing.T) {
		var r Response
		require.NoError(t, json.Unmarshal([]byte(`{"integral":2,"romberg_table":[[1],[1.5,1.66]]}`), &r))
		rows := r.Rows()
		require.Len(t, rows, 2)
		assert.Equal(t, float64(1), rows[1]["row"])
		assert.Len(t, rows[1]["values"], 2)
	})

	t.Run("no table", func(t *testing.T) {
		assert.Nil(t, Response{"integral": 1.0}.Rows())
	})
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestClient_SolveSuccess(t *testing.T) {
	sent := make(chan map[string]interface{}, 1)
	_, c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simpson/solve", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sent <- body
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"function": body["function"], "integral": 2.6666666667, "method": "Simpson 1/3",
		})
	})

	resp, err := c.Solve(context.Background(), Simpson, NewRequest("x**2").Set("a", 0).Set("b", 2).Set("n", 4))
	require.NoError(t, err)
	body := <-sent
	assert.Equal(t, "x**2", body["function"])
	assert.Equal(t, float64(4), body["n"])
	fn, _ := resp.String("function")
	assert.Equal(t, "x**2", fn)
	v, ok := resp.Float("integral")
	assert.True(t, ok)
	assert.InDelta(t, 8.0/3.0, v, 1e-9)
}

func TestClient_ErrorPayload(t *testing.T) {
	_, c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"error": "n must be even"})
	})

	_, err := c.Solve(context.Background(), Simpson, NewRequest("x"))
	var se *SolveError
	require.True(t, errors.As(err, &se), "want *SolveError, got %v", err)
	assert.Equal(t, "n must be even", se.Message)
	assert.Equal(t, 0, se.Status)
}

func TestClient_Non2xx(t *testing.T) {
	t.Run("with error payload", func(t *testing.T) {
		_, c := newService(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "incomplete data"})
		})
		_, err := c.Solve(context.Background(), Bisection, NewRequest("x"))
		var se *SolveError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadRequest, se.Status)
		assert.Equal(t, "incomplete data", se.Message)
	})

	t.Run("plain text body", func(t *testing.T) {
		_, c := newService(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.Solve(context.Background(), Bisection, NewRequest("x"))
		var se *SolveError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusInternalServerError, se.Status)
		assert.Equal(t, "boom", se.Message)
	})
}

func TestClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/solve"
	srv.Close()

	c := NewClient(map[Method]string{Secant: url}, WithTimeout(2*time.Second))
	_, err := c.Solve(context.Background(), Secant, NewRequest("x"))
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce), "want *ConnectionError, got %v", err)
	assert.Equal(t, url, ce.URL)
	c.http.CloseIdleConnections()
}

func TestClient_UnknownMethod(t *testing.T) {
	c := NewClient(map[Method]string{Simpson: "http://127.0.0.1:1/solve"})
	_, err := c.Solve(context.Background(), Romberg, NewRequest("x"))
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestClient_SetEndpoints(t *testing.T) {
	c := NewClient(nil)
	_, ok := c.Endpoint(Euler)
	assert.False(t, ok)
	c.SetEndpoints(map[Method]string{Euler: "http://euler:5008/solve"})
	u, ok := c.Endpoint(Euler)
	assert.True(t, ok)
	assert.Equal(t, "http://euler:5008/solve", u)
}

func TestClient_Health(t *testing.T) {
	_, c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/trapezoid/health" {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		http.NotFound(w, r)
	})
	assert.NoError(t, c.Health(context.Background(), Trapezoid))
}

// =============================================================================
// SUBMITTER TESTS
// =============================================================================

func TestSubmitter_SingleInFlight(t *testing.T) {
	release := make(chan struct{})
	_, c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"root": 1.0})
	})
	s := NewSubmitter(c)
	req := NewRequest("x-1").Set("x0", 0.0)

	first, ch, err := s.Submit(context.Background(), NewtonRaphson, req)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	id, busy := s.InFlight()
	assert.True(t, busy)
	assert.Equal(t, first.ID, id)

	_, _, err = s.Submit(context.Background(), NewtonRaphson, req)
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	res := <-ch
	require.NoError(t, res.Err)
	assert.Equal(t, first.ID, res.ID)
	v, _ := res.Response.Float("root")
	assert.Equal(t, 1.0, v)

	_, busy = s.InFlight()
	assert.False(t, busy)
	resp, err := s.Do(context.Background(), NewtonRaphson, req)
	require.NoError(t, err, "slot must be free once the result is delivered")
	assert.NotNil(t, resp)
}

func TestSubmitter_CancelDiscards(t *testing.T) {
	_, c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	s := NewSubmitter(c)

	_, ch, err := s.Submit(context.Background(), Secant, NewRequest("x**3-2").Set("x0", 1.0).Set("x1", 2.0))
	require.NoError(t, err)
	assert.True(t, s.Cancel())
	assert.False(t, s.Cancel(), "nothing left to cancel")

	res := <-ch
	assert.ErrorIs(t, res.Err, ErrCanceled)
	assert.Nil(t, res.Response)
}

func TestSubmitter_Precheck(t *testing.T) {
	s := NewSubmitter(NewClient(nil))

	_, _, err := s.Submit(context.Background(), Bisection, NewRequest("x").Set("xi", 0.0))
	assert.ErrorIs(t, err, ErrIncompleteRequest)

	_, _, err = s.Submit(context.Background(), Method("regula-falsi"), NewRequest("x"))
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, _, err = s.Submit(context.Background(), NewtonRaphson, NewRequest("").Set("x0", 1.0))
	assert.ErrorIs(t, err, mathpad.ErrEmptyExpression)

	_, _, err = s.Submit(context.Background(), NewtonRaphson, NewRequest("sin(x").Set("x0", 1.0))
	var ve *mathpad.ValidationError
	require.True(t, errors.As(err, &ve), "want *ValidationError, got %v", err)
	assert.Equal(t, mathpad.MissingClose, ve.Result.Missing)

	_, busy := s.InFlight()
	assert.False(t, busy, "rejected submissions never occupy the slot")
}

func TestSubmitter_LinearSystemSkipsFunction(t *testing.T) {
	_, c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"solution": []float64{1, 2}, "iterations": []interface{}{}})
	})
	s := NewSubmitter(c)
	req := Request{"A": [][]float64{{4, 1}, {1, 3}}, "b": []float64{6, 7}}
	resp, err := s.Do(context.Background(), Jacobi, req)
	require.NoError(t, err)
	assert.Contains(t, resp, "solution")
}

func TestSubmitter_ConnectionErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/solve"
	srv.Close()

	c := NewClient(map[Method]string{Euler: url})
	s := NewSubmitter(c)
	_, err := s.Do(context.Background(), Euler, NewRequest("x+y").Set("x0", 0.0).Set("y0", 1.0).Set("h", 0.1).Set("x_final", 1.0))
	var ce *ConnectionError
	assert.True(t, errors.As(err, &ce), "connection failures are reported as-is, got %v", err)
	c.http.CloseIdleConnections()
}
