package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestGet_BeforeInit(t *testing.T) {
	l := Get()
	if l == nil {
		t.Fatal("Get() returned nil before Init")
	}
	// Must not panic
	l.Info("no-op", zap.String("k", "v"))
}

func TestInit(t *testing.T) {
	if err := Init(&Config{Level: "debug", ServiceName: "test", Development: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		mu.Lock()
		global = nil
		mu.Unlock()
	}()

	if !Get().Zap().Core().Enabled(zap.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
	Get().With(zap.String("reference", "ref-1")).Debug("initialized")
}

func TestNew_UnknownLevel(t *testing.T) {
	l, err := New(&Config{Level: "verbose"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.Zap().Core().Enabled(zap.DebugLevel) {
		t.Error("Expected info level fallback for production config")
	}
}
