package email

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"kinesis/internal/domain/plan"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// AssignmentNotice is the data rendered into an assignment email.
type AssignmentNotice struct {
	ClientName string
	Email      string
	Plan       plan.Plan
}

// RenderAssignment builds the email telling a client a plan was assigned.
// Exercise notes are markdown and are rendered to HTML; raw HTML in notes is
// dropped by goldmark's default renderer.
// PRE: n.Email is non-empty
// POST: Returns a request with both HTML and text bodies
func RenderAssignment(n AssignmentNotice) (SendRequest, error) {
	var body, text strings.Builder

	fmt.Fprintf(&body, "<p>Ciao %s,</p>\n", html.EscapeString(n.ClientName))
	fmt.Fprintf(&body, "<p>your trainer assigned you the plan <strong>%s</strong>.</p>\n", html.EscapeString(n.Plan.Name))
	fmt.Fprintf(&text, "Ciao %s,\n\nyour trainer assigned you the plan %q.\n", n.ClientName, n.Plan.Name)

	for day := 1; day <= n.Plan.Days.Count(); day++ {
		entries := n.Plan.Days[day]
		fmt.Fprintf(&body, "<h3>Day %d</h3>\n", day)
		fmt.Fprintf(&text, "\nDay %d\n", day)
		if len(entries) == 0 {
			body.WriteString("<p>Rest day</p>\n")
			text.WriteString("  rest day\n")
			continue
		}
		body.WriteString("<ul>\n")
		for _, e := range entries {
			line := describeEntry(e)
			fmt.Fprintf(&body, "<li>%s", html.EscapeString(line))
			fmt.Fprintf(&text, "  - %s\n", line)
			if strings.TrimSpace(e.Notes) != "" {
				var notes bytes.Buffer
				if err := md.Convert([]byte(e.Notes), &notes); err != nil {
					return SendRequest{}, fmt.Errorf("render notes for %q: %w", e.Name, err)
				}
				body.Write(notes.Bytes())
				fmt.Fprintf(&text, "    %s\n", strings.ReplaceAll(strings.TrimSpace(e.Notes), "\n", "\n    "))
			}
			body.WriteString("</li>\n")
		}
		body.WriteString("</ul>\n")
	}

	return SendRequest{
		To:      []string{n.Email},
		Subject: fmt.Sprintf("New workout plan: %s", n.Plan.Name),
		HTML:    body.String(),
		Text:    text.String(),
	}, nil
}

func describeEntry(e plan.Entry) string {
	parts := []string{e.Name}
	if e.Sets > 0 && e.Reps > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", e.Sets, e.Reps))
	} else if e.Sets > 0 {
		parts = append(parts, fmt.Sprintf("%d sets", e.Sets))
	} else if e.Reps > 0 {
		parts = append(parts, fmt.Sprintf("%d reps", e.Reps))
	}
	if e.Weight > 0 {
		parts = append(parts, fmt.Sprintf("%gkg", e.Weight))
	}
	if e.Rest > 0 {
		parts = append(parts, fmt.Sprintf("rest %ds", e.Rest))
	}
	return strings.Join(parts, " · ")
}
