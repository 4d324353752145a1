package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/3-lines-studio/cssextract/internal/core"
)

type FileResult struct {
	Path     string
	Duration time.Duration
	Deps     int
	Error    string
	Details  []string
}

type colorizer interface {
	Green(text string) string
	Yellow(text string) string
	Red(text string) string
	Gray(text string) string
}

// CompileReport collects per-file outcomes. Add is safe for concurrent use.
type CompileReport struct {
	colors    colorizer
	mu        sync.Mutex
	files     []FileResult
	startTime time.Time
	outputDir string
}

func NewCompileReport(colors colorizer, outputDir string) *CompileReport {
	return &CompileReport{
		colors:    colors,
		startTime: time.Now(),
		outputDir: outputDir,
	}
}

func (r *CompileReport) AddSuccess(path string, duration time.Duration, deps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, FileResult{Path: path, Duration: duration, Deps: deps})
}

func (r *CompileReport) AddFailure(path string, duration time.Duration, err error) {
	message, details := describeError(err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, FileResult{Path: path, Duration: duration, Error: message, Details: details})
}

func (r *CompileReport) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.Error != "" {
			return true
		}
	}
	return false
}

// Render prints files in path order, failures last with their details.
func (r *CompileReport) Render(out, errOut io.Writer) {
	r.mu.Lock()
	files := append([]FileResult(nil), r.files...)
	r.mu.Unlock()

	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var failed []FileResult
	for _, f := range files {
		if f.Error != "" {
			failed = append(failed, f)
			continue
		}
		fmt.Fprintf(out, "  %s %s %s\n", r.colors.Green("✓"), f.Path,
			r.colors.Gray(fmt.Sprintf("(%s, %d deps)", formatDuration(f.Duration), f.Deps)))
	}

	for _, f := range failed {
		fmt.Fprintf(errOut, "  %s %s\n", r.colors.Red("✗"), f.Path)
		fmt.Fprintf(errOut, "    %s\n", f.Error)
		for _, detail := range deduplicateStrings(f.Details) {
			fmt.Fprintf(errOut, "      • %s\n", detail)
		}
	}

	duration := time.Since(r.startTime)
	fmt.Fprintln(out)
	if len(failed) > 0 {
		fmt.Fprintf(errOut, "  %s\n", r.colors.Red(fmt.Sprintf("%d of %d files failed after %s", len(failed), len(files), formatDuration(duration))))
	} else {
		fmt.Fprintf(out, "  %s%d files compiled in %s\n", r.colors.Green("✓ "), len(files), formatDuration(duration))
	}

	if r.outputDir != "" {
		fmt.Fprintf(out, "\n  %s\n", r.colors.Gray("Output: "+r.outputDir))
	}
}

func describeError(err error) (string, []string) {
	var ce *core.CompileError
	if !errors.As(err, &ce) {
		return err.Error(), nil
	}

	message := ce.Kind.String()
	if ce.Message != "" {
		message += ": " + ce.Message
	}
	if ce.ExportKey != "" {
		message += fmt.Sprintf(" (export %q)", ce.ExportKey)
	}

	details := make([]string, 0, len(ce.Errors))
	for _, d := range ce.Errors {
		if d.File != "" {
			details = append(details, fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message))
		} else {
			details = append(details, d.Message)
		}
	}
	return message, details
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.1fs", float64(d)/float64(time.Second))
}

// deduplicateStrings keeps first occurrences in order and annotates repeats.
func deduplicateStrings(items []string) []string {
	if len(items) <= 1 {
		return items
	}

	counts := make(map[string]int)
	var order []string
	for _, item := range items {
		if counts[item] == 0 {
			order = append(order, item)
		}
		counts[item]++
	}

	result := make([]string, 0, len(order))
	for _, item := range order {
		if counts[item] > 1 {
			result = append(result, fmt.Sprintf("%s (%d occurrences)", item, counts[item]))
		} else {
			result = append(result, item)
		}
	}
	return result
}
