package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordingProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func assertSpansWithoutKey(t *testing.T, recorder *tracetest.SpanRecorder) {
	t.Helper()
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.NotEmpty(t, spans[0].Attributes())
	for _, kv := range spans[0].Attributes() {
		assert.NotContains(t, kv.Value.Emit(), testAPIKey, "attribute %s", kv.Key)
	}
}

func TestDirectionsFetcher_SpansOmitKey(t *testing.T) {
	var gotKey string
	f := newFakeDirectionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		writeJSON(w, http.StatusOK, directionsOK)
	})
	tp, recorder := recordingProvider(t)
	f.httpClient = newHTTPClient(f.attachKey, otelhttp.WithTracerProvider(tp))

	_, err := f.FetchRoute(context.Background(), santiagoStops, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, testAPIKey, gotKey)
	assertSpansWithoutKey(t, recorder)
}

func TestRoutesFetcher_SpansOmitKey(t *testing.T) {
	var gotKey string
	f := newFakeRoutesServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Goog-Api-Key")
		writeJSON(w, http.StatusOK, `{"routes":[{"distanceMeters":1200,"duration":"300s","polyline":{"encodedPolyline":"??"}}]}`)
	})
	tp, recorder := recordingProvider(t)
	f.httpClient = newHTTPClient(f.attachKey, otelhttp.WithTracerProvider(tp))

	_, err := f.FetchRoute(context.Background(), santiagoStops, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, testAPIKey, gotKey)
	assertSpansWithoutKey(t, recorder)
}

func TestCredentialTransport_LeavesCallerRequestUntouched(t *testing.T) {
	f := newFakeDirectionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, directionsOK)
	})

	req, err := http.NewRequest(http.MethodGet, f.apiURL+"?origin=1,1", nil)
	require.NoError(t, err)
	resp, err := f.httpClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Empty(t, req.URL.Query().Get("key"))
}
