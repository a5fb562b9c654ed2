package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupLoggerWritesFile(t *testing.T) {
	prevLevel, prevLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	})

	path := filepath.Join(t.TempDir(), "logs", "tender.log")
	logger := SetupLogger(Config{LogFile: path, LogLevel: "WARN"}, "tender-worker")
	logger.Info().Msg("dropped")
	logger.Warn().Int64("job", 3).Msg("kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") || !strings.Contains(out, `"app":"tender-worker"`) || !strings.Contains(out, `"job":3`) {
		t.Fatalf("log=%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zerolog.Level{
		"":       zerolog.InfoLevel,
		"debug":  zerolog.DebugLevel,
		" Error": zerolog.ErrorLevel,
		"noise":  zerolog.InfoLevel,
	} {
		if got := parseLevel(in); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}
