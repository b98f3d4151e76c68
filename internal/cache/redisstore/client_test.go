package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/geofence-helper/internal/core/observability"
	"github.com/mohammed-shakir/geofence-helper/internal/metrics"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestHGetAll_HappyPath(t *testing.T) {
	rc, mr := newMini(t)
	mr.HSet("gfhelper:fences:1", "Park", `["[Park]","1,2","3,4"]`)
	mr.HSet("gfhelper:fences:1", "Lake", `["[Lake]","5,6","7,8"]`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := rc.HGetAll(ctx, "gfhelper:fences:1")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if len(got) != 2 || got["Park"] != `["[Park]","1,2","3,4"]` {
		t.Fatalf("unexpected values: %+v", got)
	}

	got, err = rc.HGetAll(ctx, "gfhelper:fences:2")
	if err != nil || len(got) != 0 {
		t.Fatalf("missing key got=%v err=%v", got, err)
	}
}

func TestWithDB_SelectsDatabase(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	mr.DB(3).HSet("fences", "Park", "1,2")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rc, err := New(ctx, mr.Addr(), WithDB(3), WithPoolSize(2), WithDialTimeout(time.Second), WithReadTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rc.Close()

	got, err := rc.HGetAll(ctx, "fences")
	if err != nil || got["Park"] != "1,2" {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestNew_RequiresAddr(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rc.HGetAll(ctx, "k"); err == nil {
		t.Fatalf("expected error on HGetAll with canceled context")
	}
	if err := rc.Ping(ctx); err == nil {
		t.Fatalf("expected error on Ping with canceled context")
	}
}

func TestMetrics_Incremented(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)

	rc, mr := newMini(t)
	mr.HSet("m1", "x", "y")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _ = rc.HGetAll(ctx, "m1")
	_ = rc.Ping(ctx)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, op := range []string{"hgetall", "ping"} {
		if !strings.Contains(body, `redis_op_total{op="`+op+`",result="ok"}`) {
			t.Fatalf("missing redis_op_total for %s; got:\n%s", op, body)
		}
	}
	if !strings.Contains(body, `redis_operation_duration_seconds_bucket{op="hgetall"`) {
		t.Fatalf("missing redis_operation_duration_seconds histogram; got:\n%s", body)
	}
}
