// Package transcriber wraps the external whisper tool that renders audio
// into text, and owns the on-disk transcript formats.
package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"radiocat/internal/constants"
	"radiocat/internal/domain"
	"radiocat/internal/logger"
)

// Segment is one timed span of transcript text.
type Segment struct {
	ID      int     `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// whisperOutput is the subset of whisper's JSON output we consume.
type whisperOutput struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Result holds a finished transcription run.
type Result struct {
	Transcript string
	Segments   []Segment
	WordCount  int
	Speakers   int
	// Outputs maps format tag to the file written for it.
	Outputs map[domain.TranscriptionFormat]string
}

// Options control a single transcription run.
type Options struct {
	Language string
	Formats  []domain.TranscriptionFormat
}

// Whisper invokes the whisper command line tool.
type Whisper struct {
	Bin    string
	Model  string
	Logger *logger.Logger
}

// New returns a wrapper after verifying the tool is installed.
func New(bin, model string, log *logger.Logger) (*Whisper, error) {
	w := &Whisper{Bin: bin, Model: model, Logger: log.WithComponent("transcriber")}

	if _, err := exec.LookPath(w.Bin); err != nil {
		return nil, fmt.Errorf("whisper is not installed or not accessible: %w", err)
	}
	return w, nil
}

// Transcribe runs whisper on audioPath and writes the requested formats
// into outDir. Whisper itself produces the JSON output; txt and srt are
// derived from it so their content stays consistent.
func (w *Whisper) Transcribe(ctx context.Context, audioPath, outDir string, opts Options) (*Result, error) {
	if err := os.MkdirAll(outDir, constants.DirPermissions); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	args := []string{
		audioPath,
		"--model", w.Model,
		"--output_dir", outDir,
		"--output_format", "json",
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}

	w.Logger.Info("Running whisper", "audio", audioPath, "model", w.Model)
	cmd := exec.CommandContext(ctx, w.Bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("whisper: %w: %s", err, firstLine(string(out)))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, base+".json")

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}

	result := &Result{
		Transcript: strings.TrimSpace(out.Text),
		Segments:   out.Segments,
		WordCount:  len(strings.Fields(out.Text)),
		Speakers:   countSpeakers(out.Segments),
		Outputs:    map[domain.TranscriptionFormat]string{},
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = []domain.TranscriptionFormat{domain.FormatJSON, domain.FormatTXT}
	}

	for _, format := range formats {
		switch format {
		case domain.FormatJSON:
			result.Outputs[domain.FormatJSON] = jsonPath
		case domain.FormatTXT:
			txtPath := filepath.Join(outDir, base+".txt")
			if err := os.WriteFile(txtPath, []byte(result.Transcript+"\n"), constants.FilePermissions); err != nil {
				return nil, fmt.Errorf("write txt transcript: %w", err)
			}
			result.Outputs[domain.FormatTXT] = txtPath
		case domain.FormatSRT:
			srtPath := filepath.Join(outDir, base+".srt")
			if err := WriteSRT(result.Segments, srtPath); err != nil {
				return nil, err
			}
			result.Outputs[domain.FormatSRT] = srtPath
		}
	}

	return result, nil
}

// countSpeakers counts distinct speaker labels when the whisper variant
// emits them; plain whisper does not, so the floor is one.
func countSpeakers(segments []Segment) int {
	seen := make(map[string]bool)
	for _, s := range segments {
		if s.Speaker != "" {
			seen[s.Speaker] = true
		}
	}
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
