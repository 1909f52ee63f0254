package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"contentflow/internal/content"
	"contentflow/internal/services"
)

// BufferRelay schedules posts through the Buffer API.
type BufferRelay struct {
	baseURL  string
	token    string
	profiles map[string]string
	client   HTTPDoer
}

// NewBufferRelay constructs the Buffer relay. profiles maps platform names
// to Buffer profile ids.
func NewBufferRelay(baseURL, token string, profiles map[string]string, client HTTPDoer) *BufferRelay {
	normalized := make(map[string]string, len(profiles))
	for platform, id := range profiles {
		if id = strings.TrimSpace(id); id != "" {
			normalized[strings.ToLower(strings.TrimSpace(platform))] = id
		}
	}
	return &BufferRelay{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:    strings.TrimSpace(token),
		profiles: normalized,
		client:   client,
	}
}

func (r *BufferRelay) Method() Method { return MethodBuffer }

// Configured reports whether a token is set. A missing profile is reported
// when publishing so the user sees which platform lacks one.
func (r *BufferRelay) Configured(context.Context, content.Platform) bool {
	return r.token != ""
}

type bufferReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updates []struct {
		ID         string `json:"id"`
		ServiceURL string `json:"service_link"`
	} `json:"updates"`
}

func (r *BufferRelay) Publish(ctx context.Context, post Post) (Result, error) {
	if r.token == "" {
		return Result{}, services.WithCode(services.Wrap(services.ErrConfiguration, stageName, string(MethodBuffer),
			"Buffer access token not configured", nil), "buffer_token_missing")
	}
	profile, ok := r.profiles[string(post.Platform)]
	if !ok {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, string(MethodBuffer),
			fmt.Sprintf("No Buffer profile configured for %s", post.Platform), nil)
	}

	form := url.Values{}
	form.Set("text", post.Text)
	form.Add("profile_ids[]", profile)
	if post.ImageURL != "" {
		form.Set("media[photo]", post.ImageURL)
	}
	req := formRequest(MethodBuffer, r.baseURL+"/updates/create.json", form)
	req.bearer = r.token

	body, _, err := send(ctx, r.client, req)
	if err != nil {
		return Result{}, err
	}
	var reply bufferReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, string(MethodBuffer), "Decode Buffer response", err)
	}
	if !reply.Success {
		msg := strings.TrimSpace(reply.Message)
		if msg == "" {
			msg = "Buffer rejected the update"
		}
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, string(MethodBuffer), msg, nil)
	}
	result := Result{Success: true, Message: fmt.Sprintf("Successfully scheduled post to %s via Buffer!", post.Platform)}
	if len(reply.Updates) > 0 {
		result.PostID = reply.Updates[0].ID
		result.PostURL = reply.Updates[0].ServiceURL
	}
	return result, nil
}
