package transcriber

import (
	"fmt"
	"os"
	"strings"

	"radiocat/internal/constants"
)

// WriteSRT renders segments as a SubRip subtitle file.
func WriteSRT(segments []Segment, path string) error {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(s.Start), FormatTimestamp(s.End))
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(s.Text))
	}

	if err := os.WriteFile(path, []byte(b.String()), constants.FilePermissions); err != nil {
		return fmt.Errorf("write srt file: %w", err)
	}
	return nil
}

// FormatTimestamp renders seconds in SRT form, HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	millis %= 3600000
	m := millis / 60000
	millis %= 60000
	s := millis / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
