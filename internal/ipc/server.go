package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"contentflow/internal/api"
	"contentflow/internal/daemon"
	"contentflow/internal/logging"
	"contentflow/internal/logs"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
)

// ServiceName is the JSON-RPC receiver name.
const ServiceName = "Contentflow"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun contentflow stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// remoteError flattens service errors to their user-facing message; net/rpc
// only carries strings across the socket.
func remoteError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		return err
	}
	details := services.Details(err)
	if details.Code != "" {
		return fmt.Errorf("%s [%s]", details.Message, details.Code)
	}
	return errors.New(details.Message)
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).DaemonStatus()
	return nil
}

func (s *service) QueueStats(_ QueueStatsRequest, resp *QueueStatsResponse) error {
	counts, err := s.daemon.Content().Stats(s.ctx)
	if err != nil {
		return remoteError(err)
	}
	resp.Counts = counts
	return nil
}

func (s *service) ContentCreate(req ContentCreateRequest, resp *ContentItemResponse) error {
	item, err := s.daemon.Content().Create(s.ctx, req)
	if err != nil {
		return remoteError(err)
	}
	resp.Item = *item
	s.logger.Info("content item queued via IPC",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldPlatform, item.Platform),
		logging.String(logging.FieldEventType, "content_created"))
	return nil
}

func (s *service) ContentList(req ContentListRequest, resp *ContentListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, value := range req.Statuses {
		parsed, ok := queue.ParseStatus(value)
		if !ok {
			return fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, parsed)
	}
	items, err := s.daemon.Content().List(s.ctx, statuses...)
	if err != nil {
		return remoteError(err)
	}
	resp.Items = items
	return nil
}

func (s *service) ContentDescribe(req ContentIDRequest, resp *ContentItemResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid item id %d", req.ID)
	}
	item, err := s.daemon.Content().Describe(s.ctx, req.ID)
	if err != nil {
		return remoteError(err)
	}
	if item == nil {
		return fmt.Errorf("item %d not found", req.ID)
	}
	resp.Item = *item
	return nil
}

func (s *service) ContentRegenerate(req ContentRegenerateRequest, resp *ContentItemResponse) error {
	stg, ok := pipeline.ParseStage(req.Stage)
	if !ok {
		return fmt.Errorf("unknown stage %q", req.Stage)
	}
	return s.itemResult(resp)(s.daemon.Content().Regenerate(s.ctx, req.ID, stg))
}

func (s *service) ContentResume(req ContentIDRequest, resp *ContentItemResponse) error {
	return s.itemResult(resp)(s.daemon.Content().Resume(s.ctx, req.ID))
}

func (s *service) ContentPublish(req ContentPublishRequest, resp *ContentItemResponse) error {
	return s.itemResult(resp)(s.daemon.Content().Publish(s.ctx, req.ID, req.Method))
}

func (s *service) ContentEditText(req ContentEditTextRequest, resp *ContentItemResponse) error {
	return s.itemResult(resp)(s.daemon.Content().EditText(s.ctx, req.ID, req.Text))
}

func (s *service) itemResult(resp *ContentItemResponse) func(*api.ContentItem, error) error {
	return func(item *api.ContentItem, err error) error {
		if err != nil {
			return remoteError(err)
		}
		resp.Item = *item
		return nil
	}
}

func (s *service) ContentRemove(req ContentRemoveRequest, resp *CountResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("remove requires at least one id")
	}
	removed, err := s.daemon.Content().Remove(s.ctx, req.IDs)
	if err != nil {
		return remoteError(err)
	}
	resp.Count = removed
	return nil
}

func (s *service) QueueClear(req QueueClearRequest, resp *CountResponse) error {
	svc := s.daemon.Content()
	var (
		removed int64
		err     error
	)
	scope := strings.ToLower(strings.TrimSpace(req.Scope))
	switch scope {
	case "", "all":
		scope = "all"
		removed, err = svc.Clear(s.ctx)
	case string(queue.StatusCompleted):
		removed, err = svc.ClearCompleted(s.ctx)
	case string(queue.StatusFailed):
		removed, err = svc.ClearFailed(s.ctx)
	default:
		return fmt.Errorf("unknown clear scope %q", req.Scope)
	}
	if err != nil {
		return remoteError(err)
	}
	resp.Count = removed
	s.logger.Info("queue cleared",
		logging.String("scope", scope),
		logging.Int64("removed_count", removed),
		logging.String(logging.FieldEventType, "queue_clear"))
	return nil
}

func (s *service) QueueReset(_ QueueResetRequest, resp *CountResponse) error {
	updated, err := s.daemon.ResetStuck(s.ctx)
	if err != nil {
		return err
	}
	resp.Count = updated
	s.logger.Info("queue stuck items reset",
		logging.Int64("updated_count", updated),
		logging.String(logging.FieldEventType, "queue_reset_stuck"))
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	*resp = QueueHealthResponse(health)
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	*resp = DatabaseHealthResponse(health)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
		Match:  req.Match,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		return err
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}

func (s *service) WebhookGet(_ WebhookGetRequest, resp *WebhookResponse) error {
	cfg, err := s.daemon.Publishing().MakeWebhook(s.ctx)
	if err != nil {
		return remoteError(err)
	}
	*resp = cfg
	return nil
}

func (s *service) WebhookSet(req WebhookSetRequest, resp *WebhookResponse) error {
	cfg, err := s.daemon.Publishing().SetMakeWebhook(s.ctx, req.URL)
	if err != nil {
		return remoteError(err)
	}
	*resp = cfg
	return nil
}

func (s *service) PublishingMethods(req MethodsRequest, resp *MethodsResponse) error {
	methods, err := s.daemon.Publishing().Methods(s.ctx, req.Platform)
	if err != nil {
		return remoteError(err)
	}
	*resp = methods
	return nil
}

func (s *service) Post(req PostRequest, resp *PostResponse) error {
	result, err := s.daemon.Publishing().Post(s.ctx, req)
	if err != nil {
		return remoteError(err)
	}
	*resp = result
	return nil
}

func (s *service) LinkedInAuthorize(_ LinkedInAuthorizeRequest, resp *LinkedInAuthorizeResponse) error {
	linkedIn := s.daemon.Relays().LinkedIn()
	target, err := linkedIn.AuthorizeURL(s.ctx)
	if err != nil {
		return remoteError(err)
	}
	resp.URL = target
	resp.Connected = linkedIn.Connected(s.ctx)
	return nil
}
