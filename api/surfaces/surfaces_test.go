package surfaces

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"tableside_server/bus"
	"tableside_server/services"
	"tableside_server/structs/tables"
	"testing"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (chi.Router, *services.SurfaceHub) {
	t.Helper()

	logger := gecho.NewDefaultLogger()
	hub := services.NewSurfaceHub(logger)
	fetch := func(ctx context.Context) ([]*tables.Order, int, error) {
		return []*tables.Order{{TableNumber: "1", Status: tables.OrderStatusPending, CreatedAt: time.Now()}}, 1, nil
	}
	hub.Add(services.NewSurface(
		services.SurfaceConfig{Name: services.SurfaceKitchen, TickInterval: time.Hour},
		services.NewSurfaceSession(services.SurfaceKitchen, true),
		fetch,
		bus.NewMemoryBus(4),
		logger,
	))

	r := chi.NewRouter()
	NewSurfaceRoutesManager(logger, hub, 20*time.Millisecond).RegisterRoutes(r)
	return r, hub
}

func TestGetSnapshotUnknownSurface(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/surfaces/bar", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetKitchenBoard(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/surfaces/kitchen/board", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending"`)
}

func TestUpdateSession(t *testing.T) {
	r, hub := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/surfaces/kitchen/session", strings.NewReader(`{"sound_enabled":false}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	s, err := hub.Get(services.SurfaceKitchen)
	require.NoError(t, err)
	assert.False(t, s.Session().State().SoundEnabled)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/surfaces/kitchen/session", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamSendsSnapshotsUntilClientLeaves(t *testing.T) {
	r, hub := newTestRouter(t)
	s, err := hub.Get(services.SurfaceKitchen)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/surfaces/kitchen/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.Watchers() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 0, s.Watchers())
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: snapshot")
	assert.Contains(t, body, ": keepalive")
}
