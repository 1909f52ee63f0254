// Package content holds the per-platform rules used when drafting,
// illustrating and publishing social media posts.
package content

import (
	"fmt"
	"strings"
)

// Platform names a social network a post targets.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
)

// DefaultPlatform is used when a request omits the platform.
const DefaultPlatform = PlatformLinkedIn

var knownPlatforms = []Platform{
	PlatformLinkedIn,
	PlatformTikTok,
	PlatformInstagram,
	PlatformTwitter,
	PlatformFacebook,
}

// Platforms lists every supported platform.
func Platforms() []Platform {
	out := make([]Platform, len(knownPlatforms))
	copy(out, knownPlatforms)
	return out
}

// ParsePlatform resolves a platform name case-insensitively. An empty value
// resolves to DefaultPlatform.
func ParsePlatform(value string) (Platform, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return DefaultPlatform, nil
	}
	if normalized == "x" {
		return PlatformTwitter, nil
	}
	for _, p := range knownPlatforms {
		if string(p) == normalized {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported platform %q", value)
}

// Label is the display heading for generated content.
func (p Platform) Label() string {
	switch p {
	case PlatformLinkedIn:
		return "LinkedIn Post"
	case PlatformTikTok:
		return "TikTok Script"
	case PlatformInstagram:
		return "Instagram Caption"
	case PlatformTwitter:
		return "Twitter Post"
	case PlatformFacebook:
		return "Facebook Post"
	default:
		return "Social Media Content"
	}
}

// CharacterLimit returns the maximum post length accepted by the platform.
func (p Platform) CharacterLimit() int {
	switch p {
	case PlatformLinkedIn:
		return 3000
	case PlatformTikTok, PlatformInstagram:
		return 2200
	case PlatformTwitter:
		return 280
	case PlatformFacebook:
		return 63206
	default:
		return 1000
	}
}

func (p Platform) String() string {
	return string(p)
}
