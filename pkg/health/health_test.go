package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func probe(t *testing.T, h *Health, p Probe) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.Handler(p).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func passing(context.Context) error { return nil }

func TestLiveness(t *testing.T) {
	h := New(time.Second, nil)
	h.Register(Liveness, "a", passing)
	h.Register(Liveness, "b", failing("boom"))

	// Checks start healthy.
	code, body := probe(t, h, Liveness)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)

	for range 3 {
		h.checks[1].run(context.Background())
	}
	code, body = probe(t, h, Liveness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"b": "boom"}, body.Checks)
}

func TestReadiness_RequiresSetReady(t *testing.T) {
	h := New(time.Second, nil)
	h.Register(Readiness, "db", passing)

	code, body := probe(t, h, Readiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")
	assert.False(t, h.Ready())

	h.SetReady(true)
	code, _ = probe(t, h, Readiness)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, h.Ready())

	h.SetReady(false)
	assert.False(t, h.Ready())
}

func TestProbesAreIndependent(t *testing.T) {
	h := New(time.Second, nil)
	h.SetReady(true)
	h.Register(Readiness, "redis", failing("refused"), WithThresholds(1, 1))
	h.checks[0].run(context.Background())

	code, _ := probe(t, h, Liveness)
	assert.Equal(t, http.StatusOK, code)
	code, body := probe(t, h, Readiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "refused", body.Checks["redis"])
}

func TestThresholds(t *testing.T) {
	ctx := context.Background()
	var fail bool
	h := New(time.Second, nil)
	h.Register(Liveness, "flaky", func(context.Context) error {
		if fail {
			return errors.New("flaky")
		}
		return nil
	}, WithThresholds(3, 2))
	c := h.checks[0]

	fail = true
	assert.False(t, c.run(ctx))
	assert.False(t, c.run(ctx))
	assert.True(t, c.healthy.Load(), "below failure threshold")
	assert.True(t, c.run(ctx), "third failure flips")
	assert.False(t, c.healthy.Load())

	fail = false
	assert.False(t, c.run(ctx))
	assert.False(t, c.healthy.Load(), "below success threshold")
	assert.True(t, c.run(ctx))
	assert.True(t, c.healthy.Load())
}

func TestTimeout(t *testing.T) {
	h := New(time.Second, nil)
	h.Register(Liveness, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(10*time.Millisecond), WithThresholds(1, 1))

	h.checks[0].run(context.Background())
	assert.Equal(t, context.DeadlineExceeded.Error(), h.checks[0].reason())
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := New(10*time.Millisecond, nil)
	h.SetReady(true)
	h.Register(Readiness, "db", failing("down"), WithThresholds(2, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool { return !h.Ready() }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingCheck(pinger{})(ctx))
	assert.ErrorContains(t, PingCheck(pinger{err: errors.New("refused")})(ctx), "refused")

	assert.NoError(t, GoroutineCountCheck(1<<20)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	state := "loading"
	check := StateCheck(func() (string, bool) { return state, state == "ready" })
	assert.ErrorContains(t, check(ctx), "state is loading")
	state = "ready"
	assert.NoError(t, check(ctx))
}
