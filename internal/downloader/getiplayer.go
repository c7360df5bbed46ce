// Package downloader wraps the external get_iplayer tool used to discover
// and fetch BBC radio programmes.
package downloader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"radiocat/internal/logger"
)

// Programme is one entry from a get_iplayer listing.
type Programme struct {
	PID        string
	Name       string
	Episode    string
	Desc       string
	Channel    string
	FirstBcast string
	Duration   int
	Categories []string
	Thumbnail  string
	Web        string
}

// ProgressFunc receives download progress percentages. Returning an error
// aborts the download; the wrapper kills the subprocess.
type ProgressFunc func(percent float64) error

// GetIPlayer invokes the get_iplayer command line tool.
type GetIPlayer struct {
	Bin     string
	Options map[string]string
	Logger  *logger.Logger
}

// New returns a wrapper after verifying that the tool is installed.
func New(bin string, options map[string]string, log *logger.Logger) (*GetIPlayer, error) {
	g := &GetIPlayer{Bin: bin, Options: options, Logger: log.WithComponent("downloader")}

	out, err := exec.Command(g.Bin, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("get_iplayer is not installed or not accessible: %w", err)
	}
	g.Logger.Debug("get_iplayer available", "version", strings.TrimSpace(firstLine(string(out))))
	return g, nil
}

// buildArgs combines the base arguments with default and call options.
// Options are sorted for deterministic commands.
func (g *GetIPlayer) buildArgs(base []string, options map[string]string) []string {
	args := append([]string{}, base...)

	merged := make(map[string]string, len(g.Options)+len(options))
	for k, v := range g.Options {
		merged[k] = v
	}
	for k, v := range options {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := merged[k]
		if v == "" {
			args = append(args, "--"+k)
			continue
		}
		args = append(args, "--"+k, v)
	}
	return args
}

func (g *GetIPlayer) run(ctx context.Context, args []string) (string, string, error) {
	g.Logger.Debug("Running get_iplayer", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, g.Bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return stdout.String(), stderr.String(), ctx.Err()
	}
	if err != nil && !strings.Contains(stdout.String(), "INFO:") {
		return stdout.String(), stderr.String(), fmt.Errorf("get_iplayer: %w: %s", err, firstLine(stderr.String()))
	}
	if strings.Contains(stderr.String(), "ERROR") {
		return stdout.String(), stderr.String(), fmt.Errorf("get_iplayer: %s", firstLine(stderr.String()))
	}
	return stdout.String(), stderr.String(), nil
}

// RefreshCache refreshes the get_iplayer programme cache.
func (g *GetIPlayer) RefreshCache(ctx context.Context) error {
	if _, _, err := g.run(ctx, g.buildArgs([]string{"--refresh"}, nil)); err != nil {
		return fmt.Errorf("refresh cache: %w", err)
	}
	g.Logger.Info("get_iplayer cache refreshed")
	return nil
}

// List returns the cached programme listing, optionally restricted to a
// channel. An empty query matches everything in the cache.
func (g *GetIPlayer) List(ctx context.Context, query, channel string) ([]Programme, error) {
	options := map[string]string{
		"listformat": listFormat,
	}
	if channel != "" {
		options["channel"] = channel
	}

	stdout, _, err := g.run(ctx, g.buildArgs([]string{query}, options))
	if err != nil {
		return nil, fmt.Errorf("list programmes: %w", err)
	}
	return ParseListing(stdout), nil
}

// Download fetches a programme by pid into outDir, streaming progress to fn
// when provided. Returns the saved file path when get_iplayer reports one.
func (g *GetIPlayer) Download(ctx context.Context, pid, outDir string, fn ProgressFunc) (string, error) {
	options := map[string]string{
		"pid":    pid,
		"output": outDir,
	}
	args := g.buildArgs([]string{"--get"}, options)
	g.Logger.Debug("Running get_iplayer", "args", strings.Join(args, " "))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, g.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("download %s: %w", pid, err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("download %s: %w", pid, err)
	}

	var output strings.Builder
	var aborted error
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		output.WriteString(line)
		output.WriteByte('\n')

		if fn == nil || aborted != nil {
			continue
		}
		if percent, ok := ParseProgress(line); ok {
			if err := fn(percent); err != nil {
				aborted = err
				cancel()
			}
		}
	}

	waitErr := cmd.Wait()
	if aborted != nil {
		return "", aborted
	}
	if runCtx.Err() != nil {
		return "", runCtx.Err()
	}

	path, saved := ParseOutputPath(output.String())
	if !saved {
		detail := firstLine(stderr.String())
		if detail == "" {
			detail = "no file saved"
		}
		if waitErr != nil {
			return "", fmt.Errorf("download %s: %w: %s", pid, waitErr, detail)
		}
		return "", fmt.Errorf("download %s: %s", pid, detail)
	}
	return path, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
