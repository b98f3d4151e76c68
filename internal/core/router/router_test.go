package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
	"github.com/mohammed-shakir/geofence-helper/internal/exportevents"
	"github.com/mohammed-shakir/geofence-helper/internal/fencestore"
	"github.com/mohammed-shakir/geofence-helper/internal/formatter"
	"github.com/mohammed-shakir/geofence-helper/internal/plugin"
)

type fakeStore struct {
	set *model.FenceSet
	err error
	ids []int
}

func (f *fakeStore) AllFences(_ context.Context, instanceID int) (*model.FenceSet, error) {
	f.ids = append(f.ids, instanceID)
	return f.set, f.err
}

type recordingEvents struct {
	mu  sync.Mutex
	got []exportevents.Event
}

func (r *recordingEvents) Publish(ev exportevents.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
}

func (r *recordingEvents) Close() error { return nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fences() *model.FenceSet {
	s := model.NewFenceSet()
	s.Add("Park", model.Polygon{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
	s.Add("Lake <East>", model.Polygon{{Lat: 5, Lon: 6}, {Lat: 7, Lon: 8}, {Lat: 9, Lon: 10}})
	s.Add("Void", nil)
	return s
}

func get(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestParseResultsRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/gfhelper_results?mode=geojson&type=pp&Park=on&Lake=off&Zoo=on", nil)
	req, err := ParseResultsRequest(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Mode != formatter.GeoJSON || req.Style != formatter.PrettyPrint {
		t.Fatalf("mode=%s style=%s", req.Mode, req.Style)
	}
	if len(req.Selection) != 2 || !req.Selection.Contains("Park") || !req.Selection.Contains("Zoo") {
		t.Fatalf("selection=%v", req.Selection)
	}
}

func TestParseResultsRequest_Errors(t *testing.T) {
	cases := map[string]error{
		"/gfhelper_results":                     formatter.ErrInvalidMode,
		"/gfhelper_results?mode=kml":            formatter.ErrInvalidMode,
		"/gfhelper_results?mode=pmsf&type=yaml": formatter.ErrInvalidStyle,
	}
	for target, want := range cases {
		_, err := ParseResultsRequest(httptest.NewRequest(http.MethodGet, target, nil))
		if !errors.Is(err, want) {
			t.Errorf("%s: err=%v want %v", target, err, want)
		}
	}
}

func TestHandleResults_Script(t *testing.T) {
	ev := &recordingEvents{}
	store := &fakeStore{set: fences()}
	h := HandleResults(quiet(), Deps{Fences: store, InstanceID: 3, Events: ev})

	rr := get(h, "/gfhelper_results?mode=sqlpolygon&type=script&Park=on")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "1 2,3 4,1 2" {
		t.Fatalf("body=%q", got)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q", ct)
	}
	if len(store.ids) != 1 || store.ids[0] != 3 {
		t.Fatalf("store called with %v", store.ids)
	}
	if len(ev.got) != 1 || ev.got[0].Mode != "sqlpolygon" || ev.got[0].Instance != 3 || ev.got[0].Fences[0] != "Park" {
		t.Fatalf("events=%+v", ev.got)
	}
}

func TestHandleResults_WrapsNonScriptInCode(t *testing.T) {
	h := HandleResults(quiet(), Deps{Fences: &fakeStore{set: fences()}})

	for _, style := range []string{"pp", "copy"} {
		rr := get(h, "/gfhelper_results?mode=pmsf&type="+style+"&Park=on")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", style, rr.Code)
		}
		body := rr.Body.String()
		if !strings.HasPrefix(body, "<code>$Park = '1 2,3 4,1 2';") || !strings.HasSuffix(body, "</code>") {
			t.Fatalf("%s: body=%q", style, body)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("%s: content-type=%q", style, ct)
		}
	}
}

func TestHandleResults_EscapesFenceNamesInHTML(t *testing.T) {
	set := model.NewFenceSet()
	set.Add("<img src=x onerror=alert(1)>", model.Polygon{{Lat: 1, Lon: 2}})
	h := HandleResults(quiet(), Deps{Fences: &fakeStore{set: set}})

	q := url.Values{"mode": {"pmsf"}, "type": {"pp"}, "<img src=x onerror=alert(1)>": {"on"}}
	rr := get(h, "/gfhelper_results?"+q.Encode())
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if strings.Contains(body, "<img") || !strings.Contains(body, "&lt;img") {
		t.Fatalf("fence name not escaped: %q", body)
	}
}

func TestHandleResults_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		target string
		store  *fakeStore
		code   int
	}{
		{"invalid mode", "/gfhelper_results?mode=kml&Park=on", &fakeStore{set: fences()}, http.StatusBadRequest},
		{"invalid type", "/gfhelper_results?mode=pmsf&type=raw&Park=on", &fakeStore{set: fences()}, http.StatusBadRequest},
		{"unknown fence", "/gfhelper_results?mode=pmsf&Nowhere=on", &fakeStore{set: fences()}, http.StatusBadRequest},
		{"empty polygon", "/gfhelper_results?mode=sqlpolygon&Void=on", &fakeStore{set: fences()}, http.StatusUnprocessableEntity},
		{"store down", "/gfhelper_results?mode=pmsf&Park=on", &fakeStore{err: fencestore.ErrUnavailable}, http.StatusBadGateway},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ev := &recordingEvents{}
			h := HandleResults(quiet(), Deps{Fences: c.store, Events: ev})
			rr := get(h, c.target)
			if rr.Code != c.code {
				t.Fatalf("status=%d want %d body=%s", rr.Code, c.code, rr.Body.String())
			}
			if strings.Contains(rr.Body.String(), "$Park") {
				t.Fatalf("partial output leaked: %q", rr.Body.String())
			}
			if len(ev.got) != 0 {
				t.Fatalf("no event expected on failure, got %+v", ev.got)
			}
		})
	}
}

func TestHandleSelect_ListsFencesAndModes(t *testing.T) {
	meta := plugin.DefaultMetadata()
	meta.Version = "1.4"
	h := HandleSelect(quiet(), Deps{Fences: &fakeStore{set: fences()}, Plugin: meta})

	rr := get(h, "/gfhelper_select")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`name="Park"`,
		`name="Lake &lt;East&gt;"`,
		`action="/gfhelper_results"`,
		`<option value="poracle_merged">`,
		`<option value="copy">`,
		"1.4",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in page:\n%s", want, body)
		}
	}
	if strings.Contains(body, "<East>") {
		t.Fatal("fence name was not escaped")
	}
}

func TestHandleSelect_StoreDown(t *testing.T) {
	h := HandleSelect(quiet(), Deps{Fences: &fakeStore{err: errors.New("db gone")}})
	if rr := get(h, "/gfhelper_select"); rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d want 502", rr.Code)
	}
}
