// Tofu render service, a demo HTTP host for the render engine.
//
// GET /render?template=NAME[&variant=V][&origin=O&origin=P] renders a
// template and streams the output in flushed chunks; an optional JSON
// body supplies template data. Pending values are not supported over
// plain HTTP; the asynchronous protocol is exercised by the engine tests.
//
// Environment:
//
//	PORT        listen port (default 8080)
//	CORPUS      path to the corpus manifest (required)
//	LOG_LEVEL   DEBUG, INFO, WARN, ERROR
//	LOG_FORMAT  json or text
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	tofu "github.com/goliatone/go-tofu"
	"github.com/goliatone/go-tofu/internal/telemetry"
	"github.com/goliatone/go-tofu/pkg/registry"
	"github.com/goliatone/go-tofu/pkg/render"
)

var (
	startTime = time.Now()

	rendersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tofu_renders_total",
		Help: "Total renders started by tofu-serve",
	})
	renderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tofu_render_failures_total",
		Help: "Renders that finished with an error",
	})
	renderSuspensions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tofu_render_suspensions_total",
		Help: "Render suspensions by reason",
	}, []string{"reason"})
	templatesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tofu_templates_loaded",
		Help: "Templates in the loaded corpus",
	})
)

// flushWindow is how many output bytes accumulate before the sink asks
// the engine to pause so the chunk can be flushed to the client.
const flushWindow = 8 * 1024

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting tofu-serve", "version", tofu.Version)

	corpusPath := os.Getenv("CORPUS")
	if corpusPath == "" {
		logger.Error("CORPUS environment variable is required")
		os.Exit(1)
	}

	rt, err := tofu.New(
		tofu.WithCorpusFile(corpusPath),
		tofu.WithLogger(logger),
		tofu.WithRenderHooks(render.Hooks{
			RenderStarted: func(string) { rendersTotal.Inc() },
			Suspended: func(_ string, s render.State) {
				renderSuspensions.WithLabelValues(s.String()).Inc()
			},
			Finished: func(_ string, err error) {
				if err != nil {
					renderFailures.Inc()
				}
			},
		}),
	)
	if err != nil {
		logger.Error("failed to load corpus", "path", corpusPath, "error", err)
		os.Exit(1)
	}
	templatesLoaded.Set(float64(rt.Registry().Size()))
	logger.Info("corpus loaded", "path", corpusPath, "templates", rt.Registry().Size())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/render", renderHandler(rt, logger))

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

// renderHandler streams one render per request. Output is written as it
// is produced; the flushing sink pauses the engine once per window so
// chunks reach slow clients before the render races ahead.
func renderHandler(rt *tofu.Runtime, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		query := r.URL.Query()
		name := query.Get("template")
		if name == "" {
			http.Error(w, "template query parameter is required", http.StatusBadRequest)
			return
		}

		variant := registry.NoVariant()
		if query.Has("variant") {
			variant = registry.VariantOf(query.Get("variant"))
		}

		var data map[string]any
		if r.Body != nil {
			raw, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
				return
			}
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &data); err != nil {
					http.Error(w, "decode body: "+err.Error(), http.StatusBadRequest)
					return
				}
			}
		}

		sink := &flushSink{w: w, window: flushWindow}
		if f, ok := w.(http.Flusher); ok {
			sink.flusher = f
		}

		reqLogger := telemetry.WithTemplate(logger, name)
		handle, err := rt.Render(r.Context(), render.Request{
			Template:      name,
			Variant:       variant,
			Data:          data,
			ActiveOrigins: registry.OriginSet(query["origin"]...),
			Sink:          sink,
			Logger:        reqLogger,
		})
		if err != nil {
			http.Error(w, err.Error(), startStatus(err))
			return
		}
		reqLogger = telemetry.WithRenderID(reqLogger, handle.ID().String())

		res := handle.Result()
		for {
			switch {
			case res.Done():
				sink.flush()
				return
			case res.Failed():
				// The status line is long gone once streaming started, so
				// a mid-render failure can only be logged and cut short.
				if sink.total == 0 {
					http.Error(w, res.Err.Error(), http.StatusUnprocessableEntity)
				}
				reqLogger.Error("render failed", "error", res.Err)
				return
			case res.State == render.StatePendingValue:
				if sink.total == 0 {
					http.Error(w, "render suspended on a pending value; not supported over HTTP", http.StatusUnprocessableEntity)
				}
				reqLogger.Warn("render abandoned on pending value", "pending_id", res.PendingID)
				return
			case res.State == render.StateBackpressure:
				sink.flush()
			}

			var err error
			if res, err = handle.Resume(); err != nil {
				reqLogger.Error("resume failed", "error", err)
				return
			}
		}
	})
}

// startStatus maps pre-output failures to HTTP statuses: unknown names
// are 404, everything else (bad variants, origin conflicts, bad data) is
// a 400.
func startStatus(err error) int {
	var cfg *registry.ConfigurationError
	if errors.As(err, &cfg) {
		return http.StatusBadRequest
	}
	if strings.Contains(err.Error(), "not found") {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// flushSink streams render output to the client. ReadyForMore goes false
// once a window's worth of bytes accumulated; the handler flushes the
// chunk and resumes the render.
type flushSink struct {
	w       io.Writer
	flusher http.Flusher
	window  int
	pending int
	total   int
}

func (s *flushSink) WriteString(str string) (int, error) {
	n, err := io.WriteString(s.w, str)
	s.pending += n
	s.total += n
	return n, err
}

func (s *flushSink) ReadyForMore() bool { return s.pending < s.window }

func (s *flushSink) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
	s.pending = 0
}
