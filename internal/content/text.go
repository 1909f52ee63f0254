package content

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrEmptyContent is returned when there is nothing to publish.
var ErrEmptyContent = errors.New("content is empty")

// LimitError reports a post exceeding its platform limit.
type LimitError struct {
	Platform Platform
	Limit    int
	Length   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Content exceeds the %s character limit of %d", e.Platform, e.Limit)
}

var hashtagPattern = regexp.MustCompile(`#[\w\x{0590}-\x{05FF}]+`)

// Validate checks that text can be posted to platform. Length is counted in
// UTF-16 code units, the way the relays' web clients count it.
func Validate(platform Platform, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyContent
	}
	limit := platform.CharacterLimit()
	length := len(utf16.Encode([]rune(text)))
	if length > limit {
		return &LimitError{Platform: platform, Limit: limit, Length: length}
	}
	return nil
}

// ExtractHashtags returns hashtags in order of appearance without the
// leading '#'.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.TrimPrefix(m, "#"))
	}
	return tags
}

// ImageSeed derives a stable seed in [0, 1000) from text by summing its
// UTF-16 code units.
func ImageSeed(text string) int {
	sum := 0
	for _, unit := range utf16.Encode([]rune(text)) {
		sum += int(unit)
	}
	return sum % 1000
}

// Headline title-cases a topic for notifications and listings.
func Headline(topic string) string {
	topic = strings.Join(strings.Fields(topic), " ")
	if topic == "" {
		return ""
	}
	return cases.Title(language.Und).String(topic)
}

// Excerpt shortens text to at most max runes, adding an ellipsis.
func Excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	if max <= 3 {
		return string(runes[:max])
	}
	return strings.TrimSpace(string(runes[:max-3])) + "..."
}
