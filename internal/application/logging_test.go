package application

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLogOutcome(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logOutcome(context.Background(), logger, ErrUnauthorized, "failed", "succeeded", "user_id", "u-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "failed" || record["level"] != "ERROR" || record["error_kind"] != "unauthorized" {
		t.Fatalf("unexpected failure record: %#v", record)
	}
	if _, ok := record["user_id"]; ok {
		t.Fatalf("success attributes must not be attached to failures: %#v", record)
	}

	buf.Reset()
	logOutcome(context.Background(), logger, nil, "failed", "succeeded", "user_id", "u-1")
	record = nil
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "succeeded" || record["user_id"] != "u-1" {
		t.Fatalf("unexpected success record: %#v", record)
	}
}
