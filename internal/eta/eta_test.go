package eta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/voyya/internal/models"
)

type countingEstimator struct {
	calls int
	v     float64
	err   error
}

func (c *countingEstimator) EstimateSeconds(context.Context, models.Coord, models.Coord) (float64, error) {
	c.calls++
	return c.v, c.err
}

var (
	nyc   = models.Coord{Lat: 40.7128, Lon: -74.006}
	north = models.Coord{Lat: 40.7228, Lon: -74.006}
)

func TestNaiveUsesDefaultSpeed(t *testing.T) {
	a := EstimateSeconds(nyc, north, 0)
	b := EstimateSeconds(nyc, north, DefaultSpeedMps)
	if a != b || a <= 0 {
		t.Fatalf("expected default speed to apply, got %f and %f", a, b)
	}
}

func TestCachedPrefersPrimaryAndCaches(t *testing.T) {
	p := &countingEstimator{v: 300}
	c := &Cached{Primary: p, Fallback: Naive{SpeedMps: 10}, Cache: NewCache(time.Minute)}
	for i := 0; i < 3; i++ {
		v, err := c.EstimateSeconds(context.Background(), nyc, north)
		if err != nil || v != 300 {
			t.Fatalf("expected 300, got %f err=%v", v, err)
		}
	}
	if p.calls != 1 {
		t.Fatalf("expected one primary call, got %d", p.calls)
	}
}

func TestCachedFallsBackOnError(t *testing.T) {
	p := &countingEstimator{err: errors.New("down")}
	c := &Cached{Primary: p, Fallback: Naive{SpeedMps: 10}, Cache: NewCache(time.Minute)}
	v, err := c.EstimateSeconds(context.Background(), nyc, north)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := EstimateSeconds(nyc, north, 10); v != want {
		t.Fatalf("expected fallback %f, got %f", want, v)
	}
	if _, ok := c.Cache.Get(nyc, north); ok {
		t.Fatalf("fallback values must not be cached")
	}
}

func TestCacheExpires(t *testing.T) {
	c := NewCache(time.Millisecond)
	c.Set(nyc, north, 1)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(nyc, north); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestOSRMClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"code":"Ok","routes":[{"duration":123.4,"distance":1500}]}`))
	}))
	defer srv.Close()

	client := NewOSRMClient(srv.URL + "/")
	v, err := client.EstimateSeconds(context.Background(), nyc, north)
	if err != nil {
		t.Fatalf("osrm: %v", err)
	}
	if v != 123.4 {
		t.Fatalf("expected 123.4, got %f", v)
	}
	route, err := client.Route(context.Background(), nyc, north)
	if err != nil || route.Meters != 1500 {
		t.Fatalf("route = %+v, %v", route, err)
	}
}

func TestOSRMClientNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"NoRoute","message":"Impossible route","routes":[]}`))
	}))
	defer srv.Close()

	if _, err := NewOSRMClient(srv.URL).EstimateSeconds(context.Background(), nyc, north); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestOSRMClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOSRMClient(srv.URL).EstimateSeconds(context.Background(), nyc, north)
	if err == nil || errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected a transport error, got %v", err)
	}
}
