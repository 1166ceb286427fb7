package modify

import (
	"strings"

	"github.com/markis/ai-cli/internal/client"
)

const systemPrompt = `You will receive the content of a file and instructions for changing it.
Return the complete modified file content and nothing else.
Do not include explanations, comments about the changes, diff markers or code fences.
Reply as if you were writing the new file from scratch.`

// BuildMessages returns the chat messages that ask for a modified version of
// content. extra is optional context, such as piped input.
func BuildMessages(instruction, extra, content string) []client.Message {
	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\n")
	if extra = strings.TrimSpace(extra); extra != "" {
		sb.WriteString("Additional context:\n")
		sb.WriteString(extra)
		sb.WriteString("\n\n")
	}
	sb.WriteString("File content:\n")
	sb.WriteString(content)

	return []client.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

// StripFence removes a single code fence wrapping the whole response, with
// or without a language tag. Other responses are returned unchanged.
func StripFence(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") {
		return response
	}

	open, body, ok := strings.Cut(trimmed, "\n")
	if !ok || strings.Contains(open[3:], "`") {
		return response
	}
	body = strings.TrimSuffix(body, "```")
	if strings.Contains(body, "\n```") {
		return response
	}
	return body
}

// matchFinalNewline makes suggested end with a newline exactly when original
// does, so a dropped terminator does not show up as a change.
func matchFinalNewline(original, suggested string) string {
	if original == "" || suggested == "" {
		return suggested
	}
	if strings.HasSuffix(original, "\n") {
		if !strings.HasSuffix(suggested, "\n") {
			return suggested + "\n"
		}
		return suggested
	}
	return strings.TrimSuffix(suggested, "\n")
}
