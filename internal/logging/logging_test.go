package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ldcshop/storefront/internal/config"
	log "github.com/sirupsen/logrus"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "storefront.log")
	closer, err := Setup(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	log.WithField("order_id", "O1").Debug("hello file")
	if errClose := closer.Close(); errClose != nil {
		t.Fatalf("close: %v", errClose)
	}

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		t.Fatalf("read: %v", errRead)
	}
	if !strings.Contains(string(data), "hello file") || !strings.Contains(string(data), "order_id=O1") {
		t.Fatalf("unexpected log content %q", string(data))
	}
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level")
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
