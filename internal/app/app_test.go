package app

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/platform/config"
	"roster/internal/platform/logger"
	"roster/pkg/testutil"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	a, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAppServesMemberRoutes(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()

	payload := map[string]string{
		"person_id":    "1032",
		"first_name":   "Lucía",
		"last_name":    "Gómez",
		"phone":        "310 555 0101",
		"address":      "Carrera 7 # 12-40",
		"voting_place": "Colegio La Salle",
		"table":        "4",
		"member_type":  "leader",
	}
	rr := testutil.DoRequest(h, testutil.NewJSONRequest(t, http.MethodPost, "/members", payload))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/members/1032"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "voting_place", "Colegio La Salle")

	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/members/search?q=LUC%C3%8DA"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "count", float64(1))

	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/members/stats"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "total", float64(1))

	rr = testutil.DoRequest(h, testutil.NewJSONRequest(t, http.MethodPost, "/members", payload))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
}

func TestAppHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "ok")

	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/members/search?q=nadie"))
	testutil.AssertStatusOK(t, rr)

	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "roster_search_duration_seconds"), "search histogram exported")
	assert.True(t, strings.Contains(body, "go_goroutines"), "runtime collectors registered")
}

func TestRunReturnsOnCancelWithoutKafka(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
}

func TestOpenSubstrateRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.StoreBackend = "cassandra"
	_, err := OpenSubstrate(context.Background(), cfg, logger.Discard())
	require.ErrorContains(t, err, "unknown store backend")
}

func TestOpenSubstrateBadgerInMemory(t *testing.T) {
	cfg := config.Default()
	cfg.StoreBackend = config.BackendBadger
	s, err := OpenSubstrate(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(context.Background()))
}

func TestAppRejectsIdsShadowedByRoutes(t *testing.T) {
	h := newTestApp(t).Handler()
	member := map[string]string{
		"person_id":    "stats",
		"first_name":   "Pedro",
		"last_name":    "Rojas",
		"phone":        "320 111 2233",
		"address":      "Calle 3",
		"voting_place": "Escuela Normal",
		"table":        "2",
	}

	for _, id := range []string{"stats", "search"} {
		member["person_id"] = id
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/members", testutil.MustMarshal(t, member))
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "validation_error")
	}

	member["person_id"] = "2040"
	rr := testutil.DoRequest(h, testutil.NewRequestWithBody(t, http.MethodPost, "/members", testutil.MustMarshal(t, member)))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	testutil.AssertJSONHasKey(t, rr, "person_id")

	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/members/2040"))
	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, string(testutil.ReadBody(t, rr)), "Rojas")
}

func TestAppEmptySearch(t *testing.T) {
	h := newTestApp(t).Handler()
	rr := testutil.DoRequest(h, testutil.NewRequestWithBody(t, http.MethodPost, "/members/search", testutil.MustMarshal(t, map[string]any{"text": "  "})))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "empty_search")
}
