package logger

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/skypro1111/feelcard-service/internal/config"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		l := New(config.LoggingConfig{Level: tt.level, Format: "text", Output: "stdout"})
		if l.GetLevel() != tt.expected {
			t.Errorf("level %q: expected %v, got %v", tt.level, tt.expected, l.GetLevel())
		}
	}
}

func TestNewJSONFormat(t *testing.T) {
	l := New(config.LoggingConfig{Level: "info", Format: "json", Output: filepath.Join(t.TempDir(), "out.log")})

	var buf bytes.Buffer
	l.SetOutput(&buf)
	Component(l, "pipeline").WithField("card_id", "abc").Info("run finished")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "pipeline" || entry["card_id"] != "abc" {
		t.Errorf("Unexpected fields: %v", entry)
	}
}

func TestRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/items", nil)
	if id := RequestID(r); len(id) != 36 {
		t.Errorf("Expected generated uuid, got %q", id)
	}

	r.Header.Set("X-Request-ID", "given")
	if id := RequestID(r); id != "given" {
		t.Errorf("Expected caller request id, got %q", id)
	}
}
