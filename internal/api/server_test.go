package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/uvb/internal/api"
	"github.com/ajitpratap0/uvb/internal/config"
	"github.com/ajitpratap0/uvb/internal/lifecycle"
	"github.com/ajitpratap0/uvb/internal/metrics"
	"github.com/ajitpratap0/uvb/internal/registry"
)

func newTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer creates a test HTTP server over a fresh store.
func newTestServer(t *testing.T) (*httptest.Server, *registry.Store) {
	t.Helper()
	st := registry.NewStore()
	srv := api.NewServer(st, newTestLogger(t))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func doRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func status(t *testing.T, method, url string) int {
	t.Helper()
	resp := doRequest(t, method, url)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAPI_EndToEnd(t *testing.T) {
	ts, st := newTestServer(t)
	lm, err := lifecycle.NewManager(st, config.DefaultSampleInterval, config.DefaultReclaimInterval, newTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, status(t, http.MethodPost, ts.URL+"/register/alice"))
	assert.Equal(t, http.StatusBadRequest, status(t, http.MethodPost, ts.URL+"/register/alice"))
	for range 3 {
		assert.Equal(t, http.StatusOK, status(t, http.MethodPost, ts.URL+"/alice"))
	}
	assert.Equal(t, http.StatusNotFound, status(t, http.MethodPost, ts.URL+"/bob"))

	lm.SampleRates(context.Background())

	e, err := st.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), e.Count)
	assert.Equal(t, uint64(3), e.Rate)
	assert.False(t, st.Exists("bob"))
}

func TestAPI_ReclaimedNameCanRegisterAgain(t *testing.T) {
	ts, st := newTestServer(t)
	lm, err := lifecycle.NewManager(st, config.DefaultSampleInterval, config.DefaultReclaimInterval, newTestLogger(t))
	require.NoError(t, err)

	require.Equal(t, http.StatusCreated, status(t, http.MethodPost, ts.URL+"/register/carol"))
	require.Equal(t, http.StatusOK, status(t, http.MethodPost, ts.URL+"/carol"))

	lm.Reclaim(context.Background())
	lm.Reclaim(context.Background())
	assert.False(t, st.Exists("carol"))
	assert.Equal(t, http.StatusNotFound, status(t, http.MethodPost, ts.URL+"/carol"))

	assert.Equal(t, http.StatusCreated, status(t, http.MethodPost, ts.URL+"/register/carol"))
	e, err := st.Get("carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), e.Count)
}

func TestAPI_DisplayPage(t *testing.T) {
	ts, st := newTestServer(t)
	seed := []struct {
		name  string
		count int
	}{{"a", 5}, {"b", 9}, {"c", 9}}
	for _, s := range seed {
		_, err := st.Register(s.name)
		require.NoError(t, err)
		for range s.count {
			_, err = st.Increment(s.name)
			require.NoError(t, err)
		}
	}
	st.SampleRates()

	resp := doRequest(t, http.MethodGet, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body := readBody(t, resp)

	assert.Contains(t, body, "<b>a:</b> 5 - 5 req/s")
	assert.Contains(t, body, "<b>b:</b> 9 - 9 req/s")
	assert.Contains(t, body, "<b>c:</b> 9 - 9 req/s")
	assert.Contains(t, body, "Current Winner is: <b>b</b>")
	assert.Less(t, strings.Index(body, "<b>a:</b>"), strings.Index(body, "<b>b:</b>"), "counters render in registration order")
}

func TestAPI_DisplayEscapesNames(t *testing.T) {
	ts, st := newTestServer(t)
	_, err := st.Register("<script>x</script>")
	require.NoError(t, err)
	_, err = st.Increment("<script>x</script>")
	require.NoError(t, err)

	body := readBody(t, doRequest(t, http.MethodGet, ts.URL+"/"))
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestAPI_DisplayEmpty(t *testing.T) {
	ts, _ := newTestServer(t)
	body := readBody(t, doRequest(t, http.MethodGet, ts.URL+"/"))
	assert.Contains(t, body, "Ultimate Victory Battle")
	assert.NotContains(t, body, "Current Winner")
}

func TestAPI_DisplayForbidsWrites(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		assert.Equal(t, http.StatusForbidden, status(t, m, ts.URL+"/"), m)
	}
	assert.Equal(t, http.StatusOK, status(t, http.MethodHead, ts.URL+"/"))
}

func TestAPI_NonPostOnCounterPath(t *testing.T) {
	ts, st := newTestServer(t)
	_, err := st.Register("alice")
	require.NoError(t, err)

	resp := doRequest(t, http.MethodGet, ts.URL+"/alice")
	_ = readBody(t, resp)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))

	assert.Equal(t, http.StatusMethodNotAllowed, status(t, http.MethodPut, ts.URL+"/register/bob"))
	assert.False(t, st.Exists("bob"))

	e, _ := st.Get("alice")
	assert.Equal(t, uint64(0), e.Count)
}

func TestAPI_OtherShapes(t *testing.T) {
	ts, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, status(t, http.MethodPost, ts.URL+"/signup/alice"))
	assert.Equal(t, http.StatusNotFound, status(t, http.MethodPost, ts.URL+"/register/alice/extra"))
	assert.Equal(t, http.StatusNotFound, status(t, http.MethodPost, ts.URL+"/a/b/c/d"))
}

func TestAPI_UncleanPathsReachDispatcher(t *testing.T) {
	st := registry.NewStore()
	h := api.NewServer(st, newTestLogger(t)).Handler()

	serve := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	assert.Equal(t, http.StatusCreated, serve(http.MethodPost, "//register//alice/").Code)
	assert.Equal(t, http.StatusOK, serve(http.MethodPost, "//alice").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(http.MethodPost, "//").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(http.MethodPost, "/%ff").Code)

	e, err := st.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Count)
}

func TestAPI_RequestID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/healthz")
	_ = readBody(t, resp)
	assert.NotEmpty(t, resp.Header.Get(api.RequestIDHeader))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+"/healthz", http.NoBody)
	require.NoError(t, err)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = readBody(t, resp)
	assert.Equal(t, "abc-123", resp.Header.Get(api.RequestIDHeader))
}

func TestAPI_Healthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet, ts.URL+"/healthz")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "ok", result["status"])
}

// A counter may be named like a read-only route; POST still increments it.
func TestAPI_PostToReadRouteNameIncrements(t *testing.T) {
	ts, st := newTestServer(t)
	require.Equal(t, http.StatusCreated, status(t, http.MethodPost, ts.URL+"/register/healthz"))
	assert.Equal(t, http.StatusOK, status(t, http.MethodPost, ts.URL+"/healthz"))
	e, err := st.Get("healthz")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Count)
}

func TestAPI_Counters(t *testing.T) {
	ts, st := newTestServer(t)
	for _, n := range []string{"alice", "bob"} {
		_, err := st.Register(n)
		require.NoError(t, err)
	}
	_, err := st.Increment("bob")
	require.NoError(t, err)

	resp := doRequest(t, http.MethodGet, ts.URL+"/v1/counters")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.CountersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "bob", result.Leader)
	require.Len(t, result.Counters, 2)
	assert.Equal(t, api.CounterView{Name: "alice"}, result.Counters[0])
	assert.Equal(t, api.CounterView{Name: "bob", Count: 1}, result.Counters[1])
}

func TestAPI_Metrics(t *testing.T) {
	ts, _ := newTestServer(t)
	before := testutil.ToFloat64(metrics.RegisterTotal.WithLabelValues(metrics.OutcomeOK))
	exists := testutil.ToFloat64(metrics.RegisterTotal.WithLabelValues(metrics.OutcomeExists))

	require.Equal(t, http.StatusCreated, status(t, http.MethodPost, ts.URL+"/register/metered"))
	require.Equal(t, http.StatusBadRequest, status(t, http.MethodPost, ts.URL+"/register/metered"))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RegisterTotal.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, exists+1, testutil.ToFloat64(metrics.RegisterTotal.WithLabelValues(metrics.OutcomeExists)))

	body := readBody(t, doRequest(t, http.MethodGet, ts.URL+"/metrics"))
	assert.Contains(t, body, "uvb_register_total")
	assert.Contains(t, body, "uvb_http_requests_total")
}

func TestDispatch_Table(t *testing.T) {
	st := registry.NewStore()
	srv := api.NewServer(st, newTestLogger(t))
	_, err := st.Register("alice")
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/alice", http.StatusOK},
		{http.MethodPost, "/nobody", http.StatusNotFound},
		{http.MethodPost, "/register/bob", http.StatusCreated},
		{http.MethodPost, "/register/alice", http.StatusBadRequest},
		{http.MethodPost, "/register", http.StatusNotFound},
		{http.MethodPost, "/foo/bar", http.StatusNotFound},
		{http.MethodPost, "/a/b/c", http.StatusNotFound},
		{http.MethodPost, strings.Repeat("/x", 65), http.StatusNotFound},
		{http.MethodPost, strings.Repeat("/register/alice", 500), http.StatusNotFound},
		{http.MethodPost, "/\xff", http.StatusInternalServerError},
		{http.MethodPost, "///", http.StatusInternalServerError},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodHead, "/", http.StatusOK},
		{http.MethodPost, "/", http.StatusForbidden},
		{http.MethodDelete, "/alice", http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		rep := srv.Dispatch(tc.method, tc.path)
		assert.Equal(t, tc.want, rep.Status, "%s %s", tc.method, tc.path)
		assert.NotEmpty(t, rep.Body, "%s %s must carry a body", tc.method, tc.path)
	}
}
