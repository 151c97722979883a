package observability

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeMetrics(t *testing.T) {
	LookupsTotal.WithLabelValues(OutcomeResolved).Inc()

	srv, err := ServeMetrics("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Stop(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `symscope_lookups_total{outcome="resolved"}`)
}

func TestLookupCounter(t *testing.T) {
	before := testutil.ToFloat64(LookupsTotal.WithLabelValues(OutcomeAmbiguous))
	LookupsTotal.WithLabelValues(OutcomeAmbiguous).Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(LookupsTotal.WithLabelValues(OutcomeAmbiguous)))
}

func TestInitTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "", "symscope")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	_, span := Tracer.Start(context.Background(), "noop")
	span.End()
}
