package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goforj/cachestorage/internal/logsink"
	"github.com/goforj/cachestorage/internal/stress"
	"github.com/google/uuid"
)

// Handler returns the router:
//
//	GET  /                    trigger page
//	POST /runs                start a run, returns its id
//	GET  /runs                list retained runs
//	GET  /runs/{id}/log?from= log lines appended since index from
//	GET  /metrics             Prometheus metrics, when configured
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.page)
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.startRun)
		r.Get("/", s.listRuns)
		r.Get("/{id}/log", s.runLog)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

type runSummary struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
	Done    bool      `json:"done"`
}

type runResult struct {
	Success     int     `json:"success"`
	Errors      int     `json:"errors"`
	KeyCount    int     `json:"key_count"`
	ElapsedSec  float64 `json:"elapsed_seconds"`
	Fatal       string  `json:"fatal,omitempty"`
	OpenLatency float64 `json:"open_latency_ms"`
}

type logResponse struct {
	Lines  []string   `json:"lines"`
	Next   int        `json:"next"`
	Done   bool       `json:"done"`
	Result *runResult `json:"result,omitempty"`
}

func (s *Server) startRun(w http.ResponseWriter, _ *http.Request) {
	buf := logsink.NewBuffer()
	sink := logsink.Tee(buf, logsink.NewMirror(log))
	launch := stress.Trigger(s.runCtx, stress.Deps{Storage: s.storage, Sink: sink, Now: s.now}, s.stress)

	rn := &run{id: uuid.New(), started: s.now(), log: buf, launch: launch}
	s.runs.add(rn)
	log.Infow("run started", "run_id", rn.id)
	writeJSON(w, http.StatusAccepted, runSummary{ID: rn.id.String(), Started: rn.started})
}

func (s *Server) listRuns(w http.ResponseWriter, _ *http.Request) {
	runs := s.runs.list()
	out := make([]runSummary, 0, len(runs))
	for _, rn := range runs {
		out = append(out, runSummary{ID: rn.id.String(), Started: rn.started, Done: rn.done()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) runLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	rn, ok := s.runs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	from := 0
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = strconv.Atoi(raw)
		if err != nil || from < 0 {
			writeError(w, http.StatusBadRequest, "invalid from")
			return
		}
	}

	// Sample done before reading lines so a finished run's tail is never missed.
	done := rn.done()
	lines := rn.log.Since(from)
	if lines == nil {
		lines = []string{}
	}
	resp := logResponse{Lines: lines, Next: from + len(lines), Done: done}
	if done {
		out, _ := rn.launch.Wait(r.Context())
		res := &runResult{
			Success:     out.Result.Success,
			Errors:      out.Result.Errors,
			KeyCount:    out.Result.KeyCount,
			ElapsedSec:  out.Result.Elapsed.Seconds(),
			OpenLatency: float64(out.OpenLatency) / float64(time.Millisecond),
		}
		if out.RunErr != nil {
			res.Fatal = out.RunErr.Error()
		}
		resp.Result = res
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) page(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(pageHTML))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnw("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debugw("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
