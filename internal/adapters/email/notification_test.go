package email

import (
	"context"
	"strings"
	"testing"

	"kinesis/internal/domain/plan"
)

func pushDay() plan.Plan {
	return plan.Plan{
		ID:   "w1",
		Name: "Push Day",
		Days: plan.Days{
			1: {
				{Name: "Panca Piana", Sets: 4, Reps: 8, Rest: 90, Weight: 60, Notes: "Keep the **elbows** tucked"},
				{Name: "Dip", Sets: 3, Rest: 60},
			},
			2: {},
		},
	}
}

// TestRenderAssignment tests the rendered bodies.
func TestRenderAssignment(t *testing.T) {
	req, err := RenderAssignment(AssignmentNotice{ClientName: "Mario <M>", Email: "mario@example.com", Plan: pushDay()})
	if err != nil {
		t.Fatalf("RenderAssignment() error = %v", err)
	}
	if len(req.To) != 1 || req.To[0] != "mario@example.com" {
		t.Errorf("To = %v", req.To)
	}
	if req.Subject != "New workout plan: Push Day" {
		t.Errorf("Subject = %q", req.Subject)
	}

	checks := []struct {
		name string
		body string
		want string
	}{
		{"escaped name", req.HTML, "Mario &lt;M&gt;"},
		{"entry line", req.HTML, "Panca Piana · 4x8 · 60kg · rest 90s"},
		{"sets only", req.HTML, "Dip · 3 sets · rest 60s"},
		{"markdown notes", req.HTML, "<strong>elbows</strong>"},
		{"rest day", req.HTML, "<h3>Day 2</h3>\n<p>Rest day</p>"},
		{"text entry", req.Text, "  - Panca Piana · 4x8 · 60kg · rest 90s"},
		{"text notes raw", req.Text, "Keep the **elbows** tucked"},
	}
	for _, c := range checks {
		if !strings.Contains(c.body, c.want) {
			t.Errorf("%s: body missing %q\n%s", c.name, c.want, c.body)
		}
	}
}

// TestRenderAssignment_RawHTMLDropped tests that notes cannot inject markup.
func TestRenderAssignment_RawHTMLDropped(t *testing.T) {
	p := pushDay()
	p.Days[1][0].Notes = "<script>alert(1)</script>"
	req, err := RenderAssignment(AssignmentNotice{ClientName: "Mario", Email: "m@example.com", Plan: p})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(req.HTML, "<script>") {
		t.Errorf("raw HTML leaked into body: %s", req.HTML)
	}
}

// TestNoopSender tests that sends are recorded.
func TestNoopSender(t *testing.T) {
	s := NewNoopSender()
	res, err := s.Send(context.Background(), SendRequest{To: []string{"a@example.com"}, Subject: "hi"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.HasPrefix(res.MessageID, "noop-") {
		t.Errorf("MessageID = %q", res.MessageID)
	}
	sent := s.Sent()
	if len(sent) != 1 || sent[0].Subject != "hi" {
		t.Errorf("Sent() = %+v", sent)
	}
}
