package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitLevels(t *testing.T) {
	var buf bytes.Buffer
	log := Init(&buf, false)
	log.Debug().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug event logged without debug mode: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn event missing: %q", out)
	}

	buf.Reset()
	log = Init(&buf, true)
	log.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug event missing in debug mode: %q", buf.String())
	}
}
