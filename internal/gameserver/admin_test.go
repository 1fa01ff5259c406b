package gameserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/idlerpg/internal/gameserver"
	"github.com/cory-johannsen/idlerpg/internal/observability"
	"github.com/cory-johannsen/idlerpg/internal/save"
)

func newAdmin(t *testing.T, gold float64) (http.Handler, *gameserver.Runner) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := runnerConfig(t, &partyGroup{monsters: 1, level: 1}, nil)
	cfg.Metrics = observability.NewMetrics(reg)
	r := gameserver.NewRunner(cfg, save.CharData{}, save.HallData{Gold: gold})
	return gameserver.NewAdminRouter(gameserver.AdminDeps{Runner: r, Gatherer: reg}), r
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestAdmin_Healthz(t *testing.T) {
	h, _ := newAdmin(t, 0)
	rec := do(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAdmin_StatusReflectsRunner(t *testing.T) {
	h, r := newAdmin(t, 0)
	r.Tick(0)
	r.Tick(5)

	rec := do(h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st gameserver.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Cleared)
	assert.Equal(t, "c1", st.CharacterID)
}

func TestAdmin_MetricsExposeClears(t *testing.T) {
	h, r := newAdmin(t, 0)
	r.Tick(0)
	r.Tick(5)

	rec := do(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "idle_encounters_cleared_total 1"), rec.Body.String())
}

func TestAdmin_UnlockErrorsMapToStatus(t *testing.T) {
	h, _ := newAdmin(t, 0)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/skills/alchemy/unlock").Code)
	assert.Equal(t, http.StatusPaymentRequired, do(h, http.MethodPost, "/skills/smithing/unlock").Code)
	assert.Equal(t, http.StatusConflict, do(h, http.MethodPost, "/skills/mining/unlock").Code)
}

func TestAdmin_UnlockAndActivate(t *testing.T) {
	h, r := newAdmin(t, 10)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/skills/smithing/unlock").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/skills/smithing/activate").Code)
	st := r.Status()
	assert.Equal(t, "smithing", st.Active)
	assert.Equal(t, 5.0, st.Gold)
}

func TestAdmin_Readyz(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := gameserver.NewRunner(runnerConfig(t, &partyGroup{monsters: 1, level: 1}, nil), save.CharData{}, save.HallData{})

	ready := gameserver.NewAdminRouter(gameserver.AdminDeps{Runner: r, Gatherer: reg})
	assert.Equal(t, http.StatusOK, do(ready, http.MethodGet, "/readyz").Code)

	down := gameserver.NewAdminRouter(gameserver.AdminDeps{
		Runner:   r,
		Gatherer: reg,
		Ready:    func(context.Context) error { return errors.New("connection refused") },
	})
	rec := do(down, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestAdmin_LogLevel(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := gameserver.NewRunner(runnerConfig(t, &partyGroup{monsters: 1, level: 1}, nil), save.CharData{}, save.HallData{})
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	h := gameserver.NewAdminRouter(gameserver.AdminDeps{Runner: r, Gatherer: reg, LogLevel: level})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/loglevel", strings.NewReader(`{"level":"debug"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestAdmin_StatusWithNaNSpeedStillEncodes(t *testing.T) {
	h, r := newAdmin(t, 0)
	r.Speed().SetBase(math.NaN())
	r.Tick(0)

	rec := do(h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st gameserver.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.NotNil(t, st.Encounter)
	assert.Nil(t, st.Encounter.Rate)
}
