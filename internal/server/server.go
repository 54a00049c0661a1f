// Package server exposes the news pipeline over HTTP: stored summaries,
// synchronous and background search runs, task polling, and audio
// synthesis. All responses are JSON except the audio and feed routes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chiuchau-cyril/heario/internal/model"
	"github.com/chiuchau-cyril/heario/internal/store"
	"github.com/chiuchau-cyril/heario/internal/task"
	"github.com/chiuchau-cyril/heario/internal/tts"
)

const (
	defaultQuery     = "台灣"
	defaultHeadlines = "hk"
	defaultLimit     = 10
	defaultPerPage   = 5
)

// Pipeline is the orchestrator surface the handlers need.
type Pipeline interface {
	Run(ctx context.Context, query string, pageSize int) (model.Task, error)
	RunHeadlines(ctx context.Context, country, category string, pageSize int) (model.Task, error)
	Start(ctx context.Context, query string, pageSize int) uuid.UUID
}

type Server struct {
	store    store.Store
	registry *task.Registry
	pipeline Pipeline
	speech   tts.Synthesizer
	logger   *zap.Logger
	router   *mux.Router
	server   *http.Server
}

func NewServer(st store.Store, reg *task.Registry, p Pipeline, speech tts.Synthesizer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    st,
		registry: reg,
		pipeline: p,
		speech:   speech,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/rss", s.handleRSS).Methods("GET")

	s.router.HandleFunc("/api/news", s.handleListNews).Methods("GET")
	s.router.HandleFunc("/api/news/search", s.handleSearch).Methods("POST")
	s.router.HandleFunc("/api/news/fetch", s.handleSearch).Methods("POST")
	s.router.HandleFunc("/api/news/headlines", s.handleHeadlines).Methods("POST")

	s.router.HandleFunc("/api/news/search/async", s.handleSearchAsync).Methods("POST")
	s.router.HandleFunc("/api/news/search/paginated", s.handleSearchPaginated).Methods("POST")
	s.router.HandleFunc("/api/news/search/status/{task_id}", s.handleSearchStatus).Methods("GET")
	s.router.HandleFunc("/api/news/search/tasks", s.handleListTasks).Methods("GET")
	s.router.HandleFunc("/api/news/search/tasks/{task_id}", s.handleCancelTask).Methods("DELETE")

	s.router.HandleFunc("/api/audio/synthesize", s.handleSynthesize).Methods("POST")
	s.router.HandleFunc("/api/audio/news/{id}", s.handleNewsAudio).Methods("GET")

	// Registered last so the id route does not shadow the fixed ones.
	s.router.HandleFunc("/api/news/{id}", s.handleGetNews).Methods("GET")
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	s.logger.Info("api server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLimit)

	records, err := s.store.FindRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list news failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]model.NewsSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Serialize())
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "News not found")
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, record)
	}
}

type searchRequest struct {
	Query    string `json:"query"`
	PageSize int    `json:"page_size"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	decodeJSON(r, &req)
	if req.Query == "" {
		req.Query = defaultQuery
	}

	final, err := s.pipeline.Run(r.Context(), req.Query, req.PageSize)
	if err != nil {
		s.logger.Error("search run failed", zap.String("query", req.Query), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, final)
}

type headlinesRequest struct {
	Country   string `json:"country"`
	Category  string `json:"category"`
	PageSize  int    `json:"page_size"`
	UseSearch *bool  `json:"use_search"`
}

// handleHeadlines runs the top-headlines pipeline. The provider has no
// Taiwan country code, so by default the request is served as a keyword
// search instead; use_search=false selects the country route.
func (s *Server) handleHeadlines(w http.ResponseWriter, r *http.Request) {
	var req headlinesRequest
	decodeJSON(r, &req)

	var (
		final model.Task
		err   error
	)
	if req.UseSearch == nil || *req.UseSearch {
		final, err = s.pipeline.Run(r.Context(), "Taiwan OR 台灣", req.PageSize)
	} else {
		country := req.Country
		if country == "" {
			country = defaultHeadlines
		}
		final, err = s.pipeline.RunHeadlines(r.Context(), country, req.Category, req.PageSize)
	}
	if err != nil {
		s.logger.Error("headlines run failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, final)
}

func (s *Server) handleSearchAsync(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	decodeJSON(r, &req)
	if req.Query == "" {
		req.Query = defaultQuery
	}

	id := s.pipeline.Start(r.Context(), req.Query, req.PageSize)
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id":   id.String(),
		"status":    string(model.StatusStarted),
		"message":   "開始搜尋「" + req.Query + "」相關新聞",
		"check_url": "/api/news/search/status/" + id.String(),
	})
}

type paginatedRequest struct {
	Query   string `json:"query"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// handleSearchPaginated returns already-stored matches immediately and,
// when they fall short of a page, kicks off a background search to fill
// the gap.
func (s *Server) handleSearchPaginated(w http.ResponseWriter, r *http.Request) {
	var req paginatedRequest
	decodeJSON(r, &req)
	if req.Query == "" {
		req.Query = defaultQuery
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PerPage <= 0 {
		req.PerPage = defaultPerPage
	}

	records, err := s.store.FindByTextMatch(r.Context(), req.Query, req.PerPage)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	articles := make([]model.NewsSummary, 0, len(records))
	for _, rec := range records {
		articles = append(articles, rec.Serialize())
	}

	var backgroundID string
	message := "立即返回 " + strconv.Itoa(len(articles)) + " 篇相關新聞"
	if len(articles) < req.PerPage {
		backgroundID = s.pipeline.Start(r.Context(), req.Query, 0).String()
		message += "，正在背景搜尋更多新聞"
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"articles":           articles,
		"page":               req.Page,
		"per_page":           req.PerPage,
		"total_immediate":    len(articles),
		"background_task_id": backgroundID,
		"message":            message,
	})
}

func (s *Server) handleSearchStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["task_id"])
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	t, err := s.registry.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

// taskBrief is the list view of a task, without its result payload.
type taskBrief struct {
	TaskID    uuid.UUID        `json:"task_id"`
	Query     string           `json:"query"`
	Status    model.TaskStatus `json:"status"`
	Progress  int              `json:"progress"`
	Message   string           `json:"message"`
	StartedAt time.Time        `json:"started_at"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := s.registry.List()
	briefs := make([]taskBrief, 0, len(tasks))
	for _, t := range tasks {
		briefs = append(briefs, taskBrief{
			TaskID:    t.ID,
			Query:     t.Query,
			Status:    t.Status,
			Progress:  t.Progress,
			Message:   t.Message,
			StartedAt: t.StartedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tasks": briefs,
		"total": len(briefs),
	})
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["task_id"])
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	switch err := s.registry.Cancel(id); {
	case errors.Is(err, task.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, task.ErrTerminal):
		s.writeError(w, http.StatusConflict, "任務已結束，無法取消")
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "任務已取消"})
	}
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	decodeJSON(r, &req)
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "Missing text parameter")
		return
	}

	audio, err := s.speech.Synthesize(r.Context(), req.Text, req.Language)
	if err != nil {
		s.logger.Error("synthesize failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "語音合成失敗: "+err.Error())
		return
	}
	s.writeAudio(w, audio)
}

// handleNewsAudio narrates one stored record: title, then summary.
func (s *Server) handleNewsAudio(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "News not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	text := record.Title + "。" + record.Summary
	audio, err := s.speech.Synthesize(r.Context(), text, "")
	if err != nil {
		s.logger.Error("news audio failed", zap.String("id", id.String()), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "新聞音頻生成失敗: "+err.Error())
		return
	}
	s.writeAudio(w, audio)
}

func (s *Server) writeAudio(w http.ResponseWriter, audio []byte) {
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		s.logger.Error("write audio", zap.Error(err))
	}
}

const podcastFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
    <channel>
        <title>Heario AI News</title>
        <description>AI-powered news summaries</description>
        <link>http://localhost:5001</link>
    </channel>
</rss>`

func (s *Server) handleRSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/rss+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(podcastFeed)); err != nil {
		s.logger.Error("write feed", zap.Error(err))
	}
}

// decodeJSON tolerates an empty or malformed body; handlers fall back to
// their defaults.
func decodeJSON(r *http.Request, v any) {
	if r.Body == nil {
		return
	}
	_ = json.NewDecoder(r.Body).Decode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
