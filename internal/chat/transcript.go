package chat

import (
	"context"
	"fmt"
	"html"
	"strings"

	"counselweb/internal/models"
)

const transcriptHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
.message { margin: 1.5rem 0; }
.role { font-weight: bold; color: #555; margin-bottom: 0.25rem; }
pre { background: #272822; color: #f8f8f2; padding: 0.75rem; overflow-x: auto; }
</style>
</head>
<body>
<h1>%s</h1>
`

// Transcript renders a session's conversation as a standalone HTML page. Assistant
// replies are rendered as markdown with highlighted code blocks; user messages are
// escaped verbatim.
func Transcript(ctx context.Context, store Store, sessionID string) (string, error) {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get sessions: %w", err)
	}

	title := "Conversation"
	for _, session := range sessions {
		if session.ID == sessionID {
			title = session.Title
			break
		}
	}

	messages, err := store.Messages(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}

	var sb strings.Builder
	escaped := html.EscapeString(title)
	fmt.Fprintf(&sb, transcriptHeader, escaped, escaped)

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}

		body := "<p>" + html.EscapeString(msg.Content) + "</p>"
		if msg.Role == models.RoleAssistant {
			rendered, err := models.RenderMarkdown(msg.Content)
			if err != nil {
				return "", err
			}
			body = rendered
		}

		fmt.Fprintf(&sb, "<div class=\"message\">\n<div class=\"role\">%s</div>\n%s</div>\n",
			roleLabel(msg.Role), body)
	}

	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

func roleLabel(role models.Role) string {
	switch role {
	case models.RoleUser:
		return "You"
	case models.RoleAssistant:
		return "Assistant"
	case models.RoleSystem:
		return "System"
	default:
		return "Unknown"
	}
}
