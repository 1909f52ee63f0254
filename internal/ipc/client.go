package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// QueueStats returns per-status item counts.
func (c *Client) QueueStats() (*QueueStatsResponse, error) {
	return call[QueueStatsResponse](c, "QueueStats", QueueStatsRequest{})
}

// ContentCreate queues a new content idea.
func (c *Client) ContentCreate(req ContentCreateRequest) (*ContentItemResponse, error) {
	return call[ContentItemResponse](c, "ContentCreate", req)
}

// ContentList lists items filtered by status.
func (c *Client) ContentList(statuses []string) (*ContentListResponse, error) {
	return call[ContentListResponse](c, "ContentList", ContentListRequest{Statuses: statuses})
}

// ContentDescribe fetches one item.
func (c *Client) ContentDescribe(id int64) (*ContentItemResponse, error) {
	return call[ContentItemResponse](c, "ContentDescribe", ContentIDRequest{ID: id})
}

// ContentRegenerate re-runs one stage of an item.
func (c *Client) ContentRegenerate(id int64, stage string) (*ContentItemResponse, error) {
	return call[ContentItemResponse](c, "ContentRegenerate", ContentRegenerateRequest{ID: id, Stage: stage})
}

// ContentResume continues a paused or failed item.
func (c *Client) ContentResume(id int64) (*ContentItemResponse, error) {
	return call[ContentItemResponse](c, "ContentResume", ContentIDRequest{ID: id})
}

// ContentPublish requests the socialPost stage, optionally via method.
func (c *Client) ContentPublish(id int64, method string) (*ContentItemResponse, error) {
	return call[ContentItemResponse](c, "ContentPublish", ContentPublishRequest{ID: id, Method: method})
}

// ContentEditText replaces an item's drafted text.
func (c *Client) ContentEditText(id int64, text string) (*ContentItemResponse, error) {
	return call[ContentItemResponse](c, "ContentEditText", ContentEditTextRequest{ID: id, Text: text})
}

// ContentRemove removes items by id.
func (c *Client) ContentRemove(ids []int64) (*CountResponse, error) {
	return call[CountResponse](c, "ContentRemove", ContentRemoveRequest{IDs: ids})
}

// QueueClear removes items in scope (all, completed or failed).
func (c *Client) QueueClear(scope string) (*CountResponse, error) {
	return call[CountResponse](c, "QueueClear", QueueClearRequest{Scope: scope})
}

// QueueReset returns interrupted items to pending.
func (c *Client) QueueReset() (*CountResponse, error) {
	return call[CountResponse](c, "QueueReset", QueueResetRequest{})
}

// QueueHealth returns aggregate queue diagnostics.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	return call[QueueHealthResponse](c, "QueueHealth", QueueHealthRequest{})
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// TestNotification sends a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}

// WebhookGet reads the effective Make.com webhook.
func (c *Client) WebhookGet() (*WebhookResponse, error) {
	return call[WebhookResponse](c, "WebhookGet", WebhookGetRequest{})
}

// WebhookSet stores the Make.com webhook.
func (c *Client) WebhookSet(url string) (*WebhookResponse, error) {
	return call[WebhookResponse](c, "WebhookSet", WebhookSetRequest{URL: url})
}

// PublishingMethods lists relays for platform.
func (c *Client) PublishingMethods(platform string) (*MethodsResponse, error) {
	return call[MethodsResponse](c, "PublishingMethods", MethodsRequest{Platform: platform})
}

// Post publishes an ad-hoc message without queueing it.
func (c *Client) Post(req PostRequest) (*PostResponse, error) {
	return call[PostResponse](c, "Post", req)
}

// LinkedInAuthorize returns the LinkedIn consent URL.
func (c *Client) LinkedInAuthorize() (*LinkedInAuthorizeResponse, error) {
	return call[LinkedInAuthorizeResponse](c, "LinkedInAuthorize", LinkedInAuthorizeRequest{})
}
