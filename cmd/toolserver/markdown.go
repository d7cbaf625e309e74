package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type markdownToEmailArgs struct {
	MarkdownText string `json:"markdown_text"`
	EmailAddress string `json:"email_address"`
	Subject      string `json:"subject"`
}

type emailResult struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// markdownToEmail renders markdown content into a plain-text email. The
// subject falls back to the first heading when none is given.
func markdownToEmail(ctx context.Context, payload json.RawMessage) (any, error) {
	var args markdownToEmailArgs
	if err := json.Unmarshal(payload, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.MarkdownText == "" {
		return nil, fmt.Errorf("markdown_text is required")
	}
	if args.EmailAddress == "" {
		return nil, fmt.Errorf("email_address is required")
	}

	subject := args.Subject
	var body strings.Builder
	for _, line := range strings.Split(args.MarkdownText, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := strings.CutPrefix(trimmed, "#"); ok {
			heading = strings.TrimSpace(strings.TrimLeft(heading, "#"))
			if subject == "" {
				subject = heading
			}
			body.WriteString(strings.ToUpper(heading))
			body.WriteString("\n")
			continue
		}
		trimmed = strings.TrimPrefix(trimmed, "- ")
		trimmed = strings.ReplaceAll(trimmed, "**", "")
		trimmed = strings.ReplaceAll(trimmed, "`", "")
		body.WriteString(trimmed)
		body.WriteString("\n")
	}
	if subject == "" {
		subject = "Report"
	}

	return emailResult{
		To:      args.EmailAddress,
		Subject: subject,
		Body:    body.String(),
	}, nil
}
