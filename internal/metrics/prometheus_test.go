package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusHandlerExposesCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.Inc(RoomFull)
	m.Inc(MediaFramesRelayed)
	m.Inc(MediaFramesRelayed)

	rec := httptest.NewRecorder()
	PrometheusHandler(m).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status: got %d want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `parley_events_total{event="room_full"} 1`) {
		t.Fatalf("missing room_full counter in:\n%s", body)
	}
	if !strings.Contains(body, `parley_events_total{event="media_frames_relayed"} 2`) {
		t.Fatalf("missing media_frames_relayed counter in:\n%s", body)
	}
}

func TestPrometheusHandlerNilMetrics(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	PrometheusHandler(nil).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 500 {
		t.Fatalf("status: got %d want 500", rec.Code)
	}
}
