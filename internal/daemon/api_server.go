package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"contentflow/internal/api"
	"contentflow/internal/config"
	"contentflow/internal/logging"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	server *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// ServeAPI runs the HTTP API until ctx is canceled. It returns nil when no
// bind address is configured.
func (d *Daemon) ServeAPI(ctx context.Context) error {
	srv := newAPIServer(d.cfg, d, d.logger)
	if srv == nil {
		return nil
	}
	listener, err := net.Listen("tcp", srv.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return srv.serve(ctx, listener)
}

func (s *apiServer) serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()
	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
		logging.String(logging.FieldEventType, "api_listen"),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown incomplete",
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_shutdown_failed"),
			logging.String(logging.FieldImpact, "open connections were dropped"),
		)
	}
	<-errCh
	return nil
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(s.requestContext)

	r.Get("/metrics", s.daemon.Metrics().Handler().ServeHTTP)

	// LinkedIn redirects the browser here; it carries no bearer token.
	r.Route("/api/auth/linkedin", func(r chi.Router) {
		r.Get("/connect", s.handleLinkedInConnect)
		r.Get("/callback", s.handleLinkedInCallback)
	})

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.token))

		r.Get("/api/status", s.handleStatus)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/logs", s.handleLogs)
		r.Get("/api/events", s.handleEvents)

		r.Route("/api/content", func(r chi.Router) {
			r.Get("/", s.handleListContent)
			r.Post("/", s.handleCreateContent)
			r.Delete("/", s.handleClearContent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetContent)
				r.Delete("/", s.handleRemoveContent)
				r.Post("/regenerate/{stage}", s.handleRegenerate)
				r.Post("/resume", s.handleResume)
				r.Post("/publish", s.handlePublish)
				r.Put("/text", s.handleEditText)
			})
		})

		r.Get("/api/config/make-webhook", s.handleGetWebhook)
		r.Post("/api/config/make-webhook", s.handleSetWebhook)
		r.Get("/api/publishing/methods", s.handleMethods)
		r.Post("/api/posts", s.handlePost)
	})
	return r
}

func (s *apiServer) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = services.WithRequestID(ctx, id)
		}
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).DaemonStatus())
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.daemon.Content().Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueStatsResponse{Counts: counts})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.Events()
	if hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, "events_unavailable", "Event stream is not enabled")
		return
	}
	hub.ServeWS(w, r)
}

func (s *apiServer) handleListContent(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid_status", fmt.Sprintf("Unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}
	items, err := s.daemon.Content().List(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []api.ContentItem{}
	}
	s.writeJSON(w, http.StatusOK, api.ContentListResponse{Items: items})
}

func (s *apiServer) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	var req api.CreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	item, err := s.daemon.Content().Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.ContentItemResponse{Item: *item})
}

func (s *apiServer) handleClearContent(w http.ResponseWriter, r *http.Request) {
	svc := s.daemon.Content()
	var (
		removed int64
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))) {
	case "all":
		removed, err = svc.Clear(r.Context())
	case string(queue.StatusCompleted):
		removed, err = svc.ClearCompleted(r.Context())
	case string(queue.StatusFailed):
		removed, err = svc.ClearFailed(r.Context())
	default:
		s.writeError(w, http.StatusBadRequest, "missing_parameters", "status must be all, completed, or failed")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

func (s *apiServer) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	item, err := s.daemon.Content().Describe(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("Item %d not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, api.ContentItemResponse{Item: *item})
}

func (s *apiServer) handleRemoveContent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	removed, err := s.daemon.Content().Remove(r.Context(), []int64{id})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if removed == 0 {
		s.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("Item %d not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

func (s *apiServer) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	stg, ok := pipeline.ParseStage(chi.URLParam(r, "stage"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid_stage", fmt.Sprintf("Unknown stage %q", chi.URLParam(r, "stage")))
		return
	}
	s.writeItem(w, r)(s.daemon.Content().Regenerate(r.Context(), id, stg))
}

func (s *apiServer) handleResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	s.writeItem(w, r)(s.daemon.Content().Resume(r.Context(), id))
}

func (s *apiServer) handlePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	var req api.PublishRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	s.writeItem(w, r)(s.daemon.Content().Publish(r.Context(), id, req.Method))
}

func (s *apiServer) handleEditText(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	var req api.EditTextRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeItem(w, r)(s.daemon.Content().EditText(r.Context(), id, req.Text))
}

func (s *apiServer) handleGetWebhook(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.daemon.Publishing().MakeWebhook(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *apiServer) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	var req api.WebhookConfig
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := s.daemon.Publishing().SetMakeWebhook(r.Context(), req.WebhookURL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *apiServer) handleMethods(w http.ResponseWriter, r *http.Request) {
	resp, err := s.daemon.Publishing().Methods(r.Context(), r.URL.Query().Get("platform"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handlePost(w http.ResponseWriter, r *http.Request) {
	var req api.PostRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.daemon.Publishing().Post(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleLinkedInConnect(w http.ResponseWriter, r *http.Request) {
	target, err := s.daemon.Relays().LinkedIn().AuthorizeURL(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *apiServer) handleLinkedInCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if reason := strings.TrimSpace(query.Get("error")); reason != "" {
		message := strings.TrimSpace(query.Get("error_description"))
		if message == "" {
			message = reason
		}
		s.writeError(w, http.StatusBadRequest, "linkedin_denied", message)
		return
	}
	conn, err := s.daemon.Relays().LinkedIn().CompleteAuthorization(r.Context(), query.Get("code"), query.Get("state"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("linkedin account connected",
		logging.String(logging.FieldPlatform, conn.Platform),
		logging.String(logging.FieldEventType, "linkedin_connected"),
	)
	s.writeJSON(w, http.StatusOK, api.WebhookConfig{Success: true, Message: "LinkedIn account connected"})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: []api.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := queryFlag(query.Get("follow"))
	tail := queryFlag(query.Get("tail"))

	filter := logging.LogFilter{
		Component: query.Get("component"),
		Stage:     query.Get("stage"),
		Platform:  query.Get("platform"),
	}
	if value := strings.TrimSpace(query.Get("item")); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			filter.ItemID = parsed
		}
	}

	var (
		raw  []logging.LogEvent
		next uint64
	)
	if tail && since == 0 && !follow {
		raw, next = hub.Tail(limit, filter)
	} else {
		var err error
		raw, next, err = hub.Fetch(r.Context(), since, limit, follow, filter)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, "log_stream_failed", err.Error())
			return
		}
	}

	filtered := api.FromLogEvents(raw)
	if filtered == nil {
		filtered = []api.LogEvent{}
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

func queryFlag(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}

func (s *apiServer) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid_id", fmt.Sprintf("Invalid item id %q", raw))
		return 0, false
	}
	return id, true
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return false
	}
	return true
}

func (s *apiServer) writeItem(w http.ResponseWriter, r *http.Request) func(*api.ContentItem, error) {
	return func(item *api.ContentItem, err error) {
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ContentItemResponse{Item: *item})
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
		)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	details := services.Details(err)
	status := statusForKind(details.Kind)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorCode, details.Code),
			logging.String(logging.FieldImpact, "request returned an error status"),
		)
	}
	s.writeJSON(w, status, api.ErrorResponse{
		Message: details.Message,
		Code:    details.Code,
		Kind:    string(details.Kind),
	})
}

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConfiguration:
		return http.StatusServiceUnavailable
	case services.KindExternal:
		return http.StatusBadGateway
	case services.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Message: message, Code: code})
}
