package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
)

type stubStates struct {
	states map[string]models.InstanceState
	now    time.Time
}

func (s stubStates) Peek(_ context.Context, key string) (models.InstanceState, bool) {
	st, ok := s.states[key]
	return st, ok
}

func (s stubStates) Now(string) time.Time { return s.now }

// Wednesday of the week starting 2026-02-16.
var midWeek = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) *gin.Engine {
	return newRouterAt(t, midWeek)
}

func newRouterAt(t *testing.T, now time.Time) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg, err := registry.Parse([]byte(`
instances:
  nao:
    name: Nao
    timezone: UTC
    slots: [AM, PM]
    channels: [-1]
    operator_id: 1
  sol:
    timezone: UTC
    slots: [PM]
    channels: [-2]
    operator_id: 2
`))
	if err != nil {
		t.Fatal(err)
	}
	st := models.NewInstanceState("2026-02-16")
	st.Day(models.Monday).Checks[models.SlotAM] = models.Check{Done: true, At: "09:00 AM"}
	st.Day(models.Monday).Mood[models.SlotAM] = "private note"
	return Routes(reg, stubStates{states: map[string]models.InstanceState{"nao": st.Clone()}, now: now})
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := get(newRouter(t), "/healthz")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	w := get(newRouter(t), "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("status=%d", w.Code)
	}
}

type instanceResponse struct {
	Checked int    `json:"checked"`
	Total   int    `json:"total"`
	Stored  bool   `json:"stored"`
	Stale   bool   `json:"stale"`
	Week    string `json:"week"`
}

func decodeInstance(t *testing.T, w *httptest.ResponseRecorder) instanceResponse {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out instanceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestGetInstance(t *testing.T) {
	r := newRouter(t)

	w := get(r, "/instances/nao")
	out := decodeInstance(t, w)
	if out.Checked != 1 || out.Total != 14 || !out.Stored || out.Stale || out.Week != "2026-02-16" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if strings.Contains(w.Body.String(), "private note") || strings.Contains(w.Body.String(), "09:00 AM") {
		t.Fatalf("response leaks state details: %s", w.Body.String())
	}

	if w := get(r, "/instances/sol"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"stored":false`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w := get(r, "/instances/missing"); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGetInstanceAfterMissedRollover(t *testing.T) {
	r := newRouterAt(t, midWeek.Add(7*24*time.Hour))

	out := decodeInstance(t, get(r, "/instances/nao"))
	if !out.Stale || out.Checked != 0 || out.Week != "2026-02-23" {
		t.Fatalf("last week's progress reported as current: %+v", out)
	}
}

func TestListInstances(t *testing.T) {
	w := get(newRouter(t), "/instances")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `["nao","sol"]`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
