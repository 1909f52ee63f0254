package content

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every text generation request.
const SystemPrompt = "You are a social media content creator"

// Prompt returns the user prompt for drafting a post about idea.
func Prompt(platform Platform, idea string) string {
	idea = strings.TrimSpace(idea)
	switch platform {
	case PlatformTikTok:
		return fmt.Sprintf("Create engaging TikTok script about: %s. Include hook, key points, and call to action. Keep it under 60 seconds when spoken. Use casual, energetic language.", idea)
	case PlatformInstagram:
		return fmt.Sprintf("Create Instagram caption about: %s. Include emojis and 5-7 relevant hashtags. Keep it under 100 words. Make it visually descriptive and engaging.", idea)
	case PlatformTwitter:
		return fmt.Sprintf("Create a tweet about: %s. Include 1-2 relevant hashtags. Keep it under 280 characters including hashtags. Make it punchy and conversational.", idea)
	case PlatformFacebook:
		return fmt.Sprintf("Create Facebook post about: %s. Include a question to spark discussion and 2-3 relevant hashtags. Keep it under 120 words. Use a warm, friendly tone.", idea)
	default:
		return fmt.Sprintf("Create professional LinkedIn post about: %s. Include relevant hashtags. Keep it under 150 words. Focus on business value and professional insights.", idea)
	}
}
