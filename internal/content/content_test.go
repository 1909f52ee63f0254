package content

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePlatform(t *testing.T) {
	cases := map[string]Platform{
		"":          PlatformLinkedIn,
		"LinkedIn":  PlatformLinkedIn,
		" tiktok ":  PlatformTikTok,
		"Instagram": PlatformInstagram,
		"x":         PlatformTwitter,
		"facebook":  PlatformFacebook,
	}
	for input, want := range cases {
		got, err := ParsePlatform(input)
		if err != nil {
			t.Fatalf("ParsePlatform(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParsePlatform(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParsePlatform("myspace"); err == nil {
		t.Fatal("expected unknown platform to fail")
	}
}

func TestLabels(t *testing.T) {
	if got := PlatformTikTok.Label(); got != "TikTok Script" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Platform("mastodon").Label(); got != "Social Media Content" {
		t.Fatalf("unexpected default label %q", got)
	}
}

func TestPromptMentionsIdea(t *testing.T) {
	got := Prompt(PlatformLinkedIn, "  remote work ")
	want := "Create professional LinkedIn post about: remote work. Include relevant hashtags. Keep it under 150 words. Focus on business value and professional insights."
	if got != want {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
	for _, p := range Platforms() {
		if !strings.Contains(Prompt(p, "coffee"), "coffee") {
			t.Fatalf("prompt for %s does not mention the idea", p)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(PlatformTwitter, "   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected empty content error, got %v", err)
	}
	if err := Validate(PlatformTwitter, strings.Repeat("a", 280)); err != nil {
		t.Fatalf("280 chars should fit: %v", err)
	}
	err := Validate(PlatformTwitter, strings.Repeat("a", 281))
	var limitErr *LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected limit error, got %v", err)
	}
	if got := err.Error(); got != "Content exceeds the twitter character limit of 280" {
		t.Fatalf("unexpected message %q", got)
	}
	if err := Validate(Platform("other"), strings.Repeat("é", 1000)); err != nil {
		t.Fatalf("default limit counts characters, got %v", err)
	}
	// Emoji outside the BMP take two UTF-16 units each.
	if err := Validate(PlatformTwitter, strings.Repeat("🚀", 140)); err != nil {
		t.Fatalf("140 emoji should fit: %v", err)
	}
	err = Validate(PlatformTwitter, strings.Repeat("🚀", 141))
	if !errors.As(err, &limitErr) || limitErr.Length != 282 {
		t.Fatalf("expected limit error of length 282, got %v", err)
	}
}

func TestExtractHashtags(t *testing.T) {
	got := ExtractHashtags("Ship it #golang #dev_ops and #שלום! #")
	want := []string{"golang", "dev_ops", "שלום"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected hashtags (-want +got):\n%s", diff)
	}
	if tags := ExtractHashtags("no tags here"); tags != nil {
		t.Fatalf("expected nil, got %v", tags)
	}
}

func TestImageSeed(t *testing.T) {
	// "abc" = 97+98+99
	if got := ImageSeed("abc"); got != 294 {
		t.Fatalf("expected 294, got %d", got)
	}
	if got := ImageSeed(strings.Repeat("z", 10)); got != 220 {
		t.Fatalf("expected 1220 mod 1000, got %d", got)
	}
	// astral characters count as two UTF-16 units
	if got := ImageSeed("😀"); got != (0xD83D+0xDE00)%1000 {
		t.Fatalf("unexpected seed for surrogate pair: %d", got)
	}
}

func TestHeadlineAndExcerpt(t *testing.T) {
	if got := Headline("  the future   of work "); got != "The Future Of Work" {
		t.Fatalf("unexpected headline %q", got)
	}
	if got := Excerpt("hello world again", 10); got != "hello w..." {
		t.Fatalf("unexpected excerpt %q", got)
	}
	if got := Excerpt("short", 10); got != "short" {
		t.Fatalf("unexpected excerpt %q", got)
	}
}
