package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestConfigureLevelAndJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Configure(&buf, "warn", false)
	log.Info().Msg("dropped")
	log.Warn().Uint64("booking_id", 7).Msg("kept")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "kept" || line["level"] != "warn" || line["booking_id"] != float64(7) {
		t.Fatalf("unexpected line %v", line)
	}
}

func TestConfigureUnknownLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	Configure(&bytes.Buffer{}, "chatty", false)
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Fatalf("expected info, got %s", got)
	}
}
