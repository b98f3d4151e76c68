package router

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
	"github.com/mohammed-shakir/geofence-helper/internal/core/observability"
	"github.com/mohammed-shakir/geofence-helper/internal/exportevents"
	"github.com/mohammed-shakir/geofence-helper/internal/fencestore"
	"github.com/mohammed-shakir/geofence-helper/internal/formatter"
	mylog "github.com/mohammed-shakir/geofence-helper/internal/logger"
	"github.com/mohammed-shakir/geofence-helper/internal/plugin"
)

const (
	SelectPath  = "/gfhelper_select"
	ResultsPath = "/gfhelper_results"
)

//go:embed templates/select.html
var templateFS embed.FS

var selectTmpl = template.Must(template.ParseFS(templateFS, "templates/select.html"))

// FenceLoader is the part of fencestore.Store the views need.
type FenceLoader interface {
	AllFences(ctx context.Context, instanceID int) (*model.FenceSet, error)
}

type Deps struct {
	Fences     FenceLoader
	InstanceID int
	Events     exportevents.Publisher
	Plugin     plugin.Metadata
}

type ResultsRequest struct {
	Mode      formatter.Mode
	Style     formatter.Style
	Selection model.Selection
}

// ParseResultsRequest reads mode and type; every other parameter whose value
// is "on" selects the fence of that name.
func ParseResultsRequest(r *http.Request) (ResultsRequest, error) {
	q := r.URL.Query()
	mode, err := formatter.ParseMode(strings.TrimSpace(q.Get("mode")))
	if err != nil {
		return ResultsRequest{}, err
	}
	style, err := formatter.ParseStyle(q.Get("type"))
	if err != nil {
		return ResultsRequest{}, err
	}

	sel := model.NewSelection()
	for name, vals := range q {
		if slices.Contains(fencestore.ReservedNames, name) {
			continue
		}
		for _, v := range vals {
			if v == "on" {
				sel[name] = struct{}{}
				break
			}
		}
	}
	return ResultsRequest{Mode: mode, Style: style, Selection: sel}, nil
}

func HandleResults(logger *slog.Logger, d Deps) http.HandlerFunc {
	events := d.Events
	if events == nil {
		events = exportevents.Nop{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, ResultsPath, sw.code, time.Since(start).Seconds())
		}()

		req, err := ParseResultsRequest(r)
		if err != nil {
			logger.WarnContext(r.Context(), "bad results request", "err", err)
			http.Error(sw, err.Error(), statusFor(err))
			return
		}
		ctx := mylog.WithMode(r.Context(), req.Mode.String())

		fences, err := d.Fences.AllFences(ctx, d.InstanceID)
		if err != nil {
			logger.ErrorContext(ctx, "load fences", "instance", d.InstanceID, "err", err)
			http.Error(sw, "fence store unavailable", http.StatusBadGateway)
			return
		}

		out, err := formatter.Format(req.Mode, req.Selection, fences, req.Style)
		observability.ObserveRender(req.Mode.String(), err, len(out))
		if err != nil {
			logger.WarnContext(ctx, "format failed", "style", req.Style.String(), "err", err)
			http.Error(sw, err.Error(), statusFor(err))
			return
		}

		if req.Style == formatter.Script {
			sw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		} else {
			sw.Header().Set("Content-Type", "text/html; charset=utf-8")
			out = "<code>" + out + "</code>"
		}
		sw.WriteHeader(http.StatusOK)
		_, _ = sw.Write([]byte(out))

		names := make([]string, 0, len(req.Selection))
		for _, n := range fences.Names() {
			if req.Selection.Contains(n) {
				names = append(names, n)
			}
		}
		events.Publish(exportevents.Event{
			Mode:     req.Mode.String(),
			Style:    req.Style.String(),
			Fences:   names,
			Instance: d.InstanceID,
			Bytes:    len(out),
		})
		logger.DebugContext(ctx, "results rendered", "fences", len(names), "bytes", len(out))
	}
}

type selectPage struct {
	Title       string
	Header      string
	ResultsPath string
	Fences      []string
	Modes       []string
	Styles      []string
	Plugin      plugin.Metadata
}

func HandleSelect(logger *slog.Logger, d Deps) http.HandlerFunc {
	modes := make([]string, 0, len(formatter.Modes()))
	for _, m := range formatter.Modes() {
		modes = append(modes, m.String())
	}
	styles := []string{formatter.Script.String(), formatter.PrettyPrint.String(), formatter.Copy.String()}

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, SelectPath, sw.code, time.Since(start).Seconds())
		}()

		ctx := r.Context()
		fences, err := d.Fences.AllFences(ctx, d.InstanceID)
		if err != nil {
			logger.ErrorContext(ctx, "load fences", "instance", d.InstanceID, "err", err)
			http.Error(sw, "fence store unavailable", http.StatusBadGateway)
			return
		}

		page := selectPage{
			Title:       "Select fences",
			Header:      "Select fences",
			ResultsPath: ResultsPath,
			Fences:      fences.Names(),
			Modes:       modes,
			Styles:      styles,
			Plugin:      d.Plugin,
		}
		var buf strings.Builder
		if err := selectTmpl.Execute(&buf, page); err != nil {
			logger.ErrorContext(ctx, "render select page", "err", err)
			http.Error(sw, "internal server error", http.StatusInternalServerError)
			return
		}
		sw.Header().Set("Content-Type", "text/html; charset=utf-8")
		sw.WriteHeader(http.StatusOK)
		_, _ = sw.Write([]byte(buf.String()))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, formatter.ErrInvalidMode),
		errors.Is(err, formatter.ErrInvalidStyle),
		errors.Is(err, formatter.ErrUnknownFence):
		return http.StatusBadRequest
	case errors.Is(err, formatter.ErrEmptyPolygon):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fencestore.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
