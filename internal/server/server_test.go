package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-lattice/internal/pricing"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)
	return recorder
}

func reference(kind string, steps int) gin.H {
	return gin.H{"spot": 50, "strike": 50, "rate": 0.1, "volatility": 0.4, "maturity": 0.4167, "kind": kind, "steps": steps}
}

func TestHealth(t *testing.T) {
	recorder := do(t, NewServer(0), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "ok", recorder.Body.String())
}

func TestPrice(t *testing.T) {
	s := NewServer(5000)

	recorder := do(t, s, http.MethodPost, "/v1/price", reference("european_call", 1000))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var resp priceResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, 1000, resp.Steps)
	require.InDelta(t, 6.1155143, resp.Price, 1e-6)
	require.NotNil(t, resp.Analytic)
	require.InDelta(t, 6.1167876, *resp.Analytic, 1e-6)

	recorder = do(t, s, http.MethodPost, "/v1/price", reference("digital-call", 101))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	resp = priceResponse{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Nil(t, resp.Analytic)
	require.Greater(t, resp.Price, 0.0)
	require.Less(t, resp.Price, 1.0)
}

func TestPriceRejects(t *testing.T) {
	s := NewServer(5000)

	degenerate := reference("call", 10)
	degenerate["rate"] = 5
	degenerate["volatility"] = 0.01

	zeroSpot := reference("call", 10)
	zeroSpot["spot"] = 0

	for name, body := range map[string]any{
		"unknown kind":   reference("barrier", 10),
		"too many steps": reference("call", 5001),
		"zero steps":     reference("call", 0),
		"zero spot":      zeroSpot,
		"p above one":    degenerate,
		"not json":       "spot=50",
	} {
		t.Run(name, func(t *testing.T) {
			recorder := do(t, s, http.MethodPost, "/v1/price", body)
			require.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())
			require.Contains(t, recorder.Body.String(), "error")
		})
	}
}

func TestImpliedVol(t *testing.T) {
	s := NewServer(0)
	price := pricing.Black76Call(50, 48, 0.1, 0.4167, 0.3)

	recorder := do(t, s, http.MethodPost, "/v1/impliedvol",
		gin.H{"price": price, "forward": 50, "strike": 48, "rate": 0.1, "maturity": 0.4167})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var resp impliedVolResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.InDelta(t, 0.3, resp.Vol, 1e-3)
	require.InDelta(t, pricing.Black76Vega(50, 48, 0.1, 0.4167, resp.Vol), resp.Vega, 1e-9)
	require.Greater(t, resp.Vega, 0.0)
}

func TestImpliedVolBracket(t *testing.T) {
	s := NewServer(0)
	price := pricing.Black76Call(50, 50, 0.02, 0.5, 3.5)
	body := gin.H{"price": price, "forward": 50, "strike": 50, "rate": 0.02, "maturity": 0.5}

	recorder := do(t, s, http.MethodPost, "/v1/impliedvol", body)
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code, recorder.Body.String())

	body["hi"] = 5
	recorder = do(t, s, http.MethodPost, "/v1/impliedvol", body)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var resp impliedVolResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.InDelta(t, 3.5, resp.Vol, 1e-2)
}

func TestImpliedVolErrors(t *testing.T) {
	s := NewServer(0)

	recorder := do(t, s, http.MethodPost, "/v1/impliedvol",
		gin.H{"price": 45, "forward": 50, "strike": 50, "rate": 0.1, "maturity": 0.4167})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	recorder = do(t, s, http.MethodPost, "/v1/impliedvol",
		gin.H{"price": -1, "forward": 50, "strike": 50, "rate": 0.1, "maturity": 0.4167})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = do(t, s, http.MethodPost, "/v1/impliedvol",
		gin.H{"price": 4, "forward": 50, "strike": 50, "maturity": 0.4167, "lo": 2, "hi": 1})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
