package relay

import (
	"context"
	"fmt"
	"strings"

	"contentflow/internal/content"
)

// Method names a posting relay.
type Method string

const (
	MethodDirect Method = "direct"
	MethodMake   Method = "make"
	MethodZapier Method = "zapier"
	MethodBuffer Method = "buffer"
)

// DefaultMethod is used when neither the item nor the config picks one.
const DefaultMethod = MethodMake

// Methods lists every posting method in display order.
func Methods() []Method {
	return []Method{MethodDirect, MethodMake, MethodZapier, MethodBuffer}
}

// ParseMethod resolves a method name. An empty value yields DefaultMethod.
func ParseMethod(value string) (Method, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return DefaultMethod, nil
	}
	for _, m := range Methods() {
		if string(m) == value {
			return m, nil
		}
	}
	return "", fmt.Errorf("Unknown posting method: %s", value)
}

// Post is the content handed to a relay.
type Post struct {
	Platform content.Platform
	Text     string
	ImageURL string
	Hashtags []string
}

// Result is what a relay reports after publishing.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PostID  string `json:"post_id,omitempty"`
	PostURL string `json:"post_url,omitempty"`
}

// Relay publishes posts through one method.
type Relay interface {
	Method() Method
	// Configured reports whether the relay has what it needs to post for
	// platform without contacting the remote service.
	Configured(ctx context.Context, platform content.Platform) bool
	Publish(ctx context.Context, post Post) (Result, error)
}
