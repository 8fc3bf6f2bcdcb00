package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordLogin(t *testing.T) {
	before := testutil.ToFloat64(loginsTotal.WithLabelValues(ResultFailure))
	RecordLogin(ResultFailure)
	assert.Equal(t, before+1, testutil.ToFloat64(loginsTotal.WithLabelValues(ResultFailure)))
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/prompts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/prompts/{id}", "418")
	before := testutil.ToFloat64(counter)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/prompts/abc", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestInit_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
