package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestWithContextAddsRequestScope(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, OrganizationIDKey, "org-1")
	log.WithContext(ctx).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if line["request_id"] != "req-1" || line["organization_id"] != "org-1" {
		t.Fatalf("missing context attributes: %v", line)
	}
	if _, ok := line["user_id"]; ok {
		t.Fatalf("unexpected user_id: %v", line)
	}
}

func TestIndexWriteFailedIsWarning(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("production", &buf).IndexWriteFailed("leads_by_stage", "insert", "lead-1", errors.New("timeout"))

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"table":"leads_by_stage"`) {
		t.Fatalf("unexpected log line %s", out)
	}
}

func TestDevelopmentUsesText(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("development", &buf).Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("expected text debug output, got %q", buf.String())
	}
}
