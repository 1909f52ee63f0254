package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"contentflow/internal/content"
	"contentflow/internal/queue"
	"contentflow/internal/services"
)

const (
	linkedInScope      = "r_liteprofile w_member_social"
	oauthStateLifetime = 10 * time.Minute
	linkedInPlatform   = string(content.PlatformLinkedIn)
)

// ErrNotConnected means no usable OAuth grant is stored.
var ErrNotConnected = errors.New("Not authenticated with LinkedIn")

// ErrInvalidState means an OAuth callback carried an unknown or expired state.
var ErrInvalidState = errors.New("invalid or expired OAuth state")

// Connections is the store surface LinkedIn needs for OAuth grants.
type Connections interface {
	GetConnection(ctx context.Context, platform string) (*queue.Connection, error)
	SaveConnection(ctx context.Context, conn queue.Connection) error
	SaveOAuthState(ctx context.Context, state, platform string, expiresAt time.Time) error
	ConsumeOAuthState(ctx context.Context, state string, now time.Time) (string, bool, error)
}

// LinkedInConfig holds the OAuth application settings.
type LinkedInConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorURN    string
	AuthBaseURL  string
	APIBaseURL   string
}

// LinkedInRelay posts UGC posts with a stored member token and runs the
// OAuth authorization code flow that obtains it.
type LinkedInRelay struct {
	cfg    LinkedInConfig
	store  Connections
	client HTTPDoer
	now    func() time.Time
}

// NewLinkedInRelay constructs the direct LinkedIn relay.
func NewLinkedInRelay(cfg LinkedInConfig, store Connections, client HTTPDoer) *LinkedInRelay {
	cfg.AuthBaseURL = strings.TrimRight(strings.TrimSpace(cfg.AuthBaseURL), "/")
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = "https://www.linkedin.com"
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.linkedin.com"
	}
	return &LinkedInRelay{cfg: cfg, store: store, client: client, now: time.Now}
}

func (r *LinkedInRelay) Method() Method { return MethodDirect }

// Configured reports whether platform can be posted directly. Only
// LinkedIn supports direct posting.
func (r *LinkedInRelay) Configured(_ context.Context, platform content.Platform) bool {
	return platform == content.PlatformLinkedIn
}

// Connected reports whether a grant is stored and not yet expired.
func (r *LinkedInRelay) Connected(ctx context.Context) bool {
	conn, err := r.store.GetConnection(ctx, linkedInPlatform)
	if err != nil || conn == nil {
		return false
	}
	return conn.Active(r.now())
}

// AuthorizeURL creates a pending state and returns the LinkedIn consent URL.
func (r *LinkedInRelay) AuthorizeURL(ctx context.Context) (string, error) {
	if strings.TrimSpace(r.cfg.ClientID) == "" {
		return "", services.WithCode(services.Wrap(services.ErrConfiguration, stageName, "linkedin oauth",
			"LinkedIn client id is not configured", nil), "linkedin_not_configured")
	}
	state := uuid.NewString()
	if err := r.store.SaveOAuthState(ctx, state, linkedInPlatform, r.now().Add(oauthStateLifetime)); err != nil {
		return "", err
	}
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", r.cfg.ClientID)
	query.Set("redirect_uri", r.cfg.RedirectURI)
	query.Set("scope", linkedInScope)
	query.Set("state", state)
	return r.cfg.AuthBaseURL + "/oauth/v2/authorization?" + query.Encode(), nil
}

type tokenReply struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// CompleteAuthorization validates state, exchanges code for a token and
// stores the grant with its expiry.
func (r *LinkedInRelay) CompleteAuthorization(ctx context.Context, code, state string) (*queue.Connection, error) {
	platform, ok, err := r.store.ConsumeOAuthState(ctx, state, r.now())
	if err != nil {
		return nil, err
	}
	if !ok || platform != linkedInPlatform {
		return nil, services.Wrap(services.ErrValidation, stageName, "linkedin oauth", "OAuth state mismatch", ErrInvalidState)
	}
	if strings.TrimSpace(code) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "linkedin oauth", "Authorization code missing", nil)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", r.cfg.RedirectURI)
	form.Set("client_id", r.cfg.ClientID)
	form.Set("client_secret", r.cfg.ClientSecret)
	body, _, err := send(ctx, r.client, formRequest(MethodDirect, r.cfg.AuthBaseURL+"/oauth/v2/accessToken", form))
	if err != nil {
		return nil, err
	}
	var token tokenReply
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "linkedin oauth", "Token response missing access_token", err)
	}

	author := strings.TrimSpace(r.cfg.AuthorURN)
	if author == "" {
		author, err = r.resolveAuthor(ctx, token.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	conn := queue.Connection{
		Platform:     linkedInPlatform,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		AuthorURN:    author,
		ExpiresAt:    r.now().Add(time.Duration(token.ExpiresIn) * time.Second).UTC(),
	}
	if err := r.store.SaveConnection(ctx, conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *LinkedInRelay) resolveAuthor(ctx context.Context, accessToken string) (string, error) {
	body, _, err := send(ctx, r.client, request{
		method: MethodDirect,
		url:    r.cfg.APIBaseURL + "/v2/me",
		bearer: accessToken,
	})
	if err != nil {
		return "", err
	}
	var me struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &me); err != nil || me.ID == "" {
		return "", services.Wrap(services.ErrExternalTool, stageName, "linkedin profile", "Profile response missing id", err)
	}
	return "urn:li:person:" + me.ID, nil
}

// UGCPost builds the ugcPosts request body.
func UGCPost(author, text, imageURL string) map[string]any {
	share := map[string]any{
		"shareCommentary":    map[string]any{"text": text},
		"shareMediaCategory": "NONE",
	}
	if imageURL != "" {
		share["shareMediaCategory"] = "IMAGE"
		share["media"] = []map[string]any{{"status": "READY", "originalUrl": imageURL}}
	}
	return map[string]any{
		"author":          author,
		"lifecycleState":  "PUBLISHED",
		"specificContent": map[string]any{"com.linkedin.ugc.ShareContent": share},
		"visibility":      map[string]any{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
}

func (r *LinkedInRelay) Publish(ctx context.Context, post Post) (Result, error) {
	if post.Platform != content.PlatformLinkedIn {
		return Result{}, services.Wrap(services.ErrValidation, stageName, string(MethodDirect),
			fmt.Sprintf("No suitable method available to post to %s", post.Platform), nil)
	}
	conn, err := r.store.GetConnection(ctx, linkedInPlatform)
	if err != nil {
		return Result{}, err
	}
	if conn == nil || !conn.Active(r.now()) {
		return Result{}, services.WithCode(services.Wrap(services.ErrConfiguration, stageName, string(MethodDirect),
			ErrNotConnected.Error(), ErrNotConnected), "linkedin_not_connected")
	}
	author := firstNonEmpty(conn.AuthorURN, r.cfg.AuthorURN)
	if author == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, string(MethodDirect), "LinkedIn author URN unknown; reconnect the account", nil)
	}

	req, err := jsonRequest(MethodDirect, r.cfg.APIBaseURL+"/v2/ugcPosts", UGCPost(author, post.Text, post.ImageURL))
	if err != nil {
		return Result{}, err
	}
	req.bearer = conn.AccessToken
	req.headers = map[string]string{"X-Restli-Protocol-Version": "2.0.0"}
	body, header, err := send(ctx, r.client, req)
	if err != nil {
		return Result{}, err
	}
	id := strings.TrimSpace(header.Get("X-RestLi-Id"))
	if id == "" {
		var created struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(body, &created) == nil {
			id = created.ID
		}
	}
	result := Result{Success: true, Message: "Successfully posted to LinkedIn!", PostID: id}
	if id != "" {
		result.PostURL = "https://www.linkedin.com/feed/update/" + id
	}
	return result, nil
}
