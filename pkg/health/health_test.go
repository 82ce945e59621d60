package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Status string
	Checks map[string]string
}

func decodeReport(t *testing.T, w *httptest.ResponseRecorder) report {
	t.Helper()
	r := report{Checks: map[string]string{}}
	err := jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			s, err := d.Str()
			r.Status = s
			return err
		case "checks":
			return d.Obj(func(d *jx.Decoder, name string) error {
				s, err := d.Str()
				r.Checks[name] = s
				return err
			})
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	return r
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func serveCheck(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.Add(Liveness, "goroutines", time.Second, GoroutineCountCheck(1_000_000))

	w := serveCheck(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	r := decodeReport(t, w)
	assert.Equal(t, "ok", r.Status)
	assert.Equal(t, "ok", r.Checks["goroutines"])
}

func TestCheck_Thresholds(t *testing.T) {
	h := New()
	h.Add(Readiness, "storage", time.Second, PingCheck(pinger{err: errors.New("connection refused")}))
	h.SetReady(true)
	c := h.checks[Readiness][0]
	ctx := context.Background()

	c.run(ctx)
	c.run(ctx)
	assert.True(t, h.IsReady(), "two failures stay below the default threshold")

	c.run(ctx)
	assert.False(t, h.IsReady())

	w := serveCheck(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	r := decodeReport(t, w)
	assert.Equal(t, "unhealthy", r.Status)
	assert.Equal(t, "connection refused", r.Checks["storage"])
}

func TestCheck_Recovers(t *testing.T) {
	p := &pinger{err: errors.New("down")}
	h := New()
	h.Add(Readiness, "upstream", time.Second, func(ctx context.Context) error { return p.Ping(ctx) },
		WithThresholds(1, 2), Unhealthy())
	h.SetReady(true)
	c := h.checks[Readiness][0]
	ctx := context.Background()

	assert.False(t, h.IsReady())
	p.err = nil
	c.run(ctx)
	assert.False(t, h.IsReady(), "one success is below the success threshold")
	c.run(ctx)
	assert.True(t, h.IsReady())

	p.err = errors.New("down again")
	c.run(ctx)
	assert.False(t, h.IsReady())
}

func TestReadyEndpoint_NotReady(t *testing.T) {
	h := New()

	w := serveCheck(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	r := decodeReport(t, w)
	assert.Equal(t, "service is not ready", r.Checks["_readiness"])

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serveCheck(h.ReadyEndpoint).Code)
}

func TestStartStop(t *testing.T) {
	h := New()
	h.Add(Readiness, "storage", time.Second, PingCheck(pinger{err: errors.New("down")}), WithThresholds(1, 1))
	h.SetReady(true)

	h.Start(context.Background(), 10*time.Millisecond)
	t.Cleanup(h.Stop)

	assert.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()
}
