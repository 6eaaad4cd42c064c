package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/drpaneas/voiceprint/internal/pipeline"
)

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
	"pct":  func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	// quote keeps a multi-line post inside one markdown blockquote.
	"quote": func(s string) string { return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n> ") },
}

var (
	styleTmpl  = template.Must(template.New("style").Funcs(funcs).Parse(styleTemplate))
	resultTmpl = template.Must(template.New("result").Funcs(funcs).Parse(resultTemplate))
)

// Writer persists styles and results under one directory per profile:
//
//	<dir>/<profile>/style.md
//	<dir>/<profile>/style.json
//	<dir>/<profile>/<result-id>.json
//	<dir>/<profile>/<result-id>.md
type Writer struct {
	outputDir string
}

// NewWriter returns a Writer that writes to outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// RenderStyle writes the markdown rendering of sr to w.
func RenderStyle(w io.Writer, sr *pipeline.StyleResult) error {
	if sr == nil || sr.Signature == nil {
		return fmt.Errorf("style result has no signature")
	}
	if err := styleTmpl.Execute(w, sr); err != nil {
		return fmt.Errorf("executing style template: %w", err)
	}
	return nil
}

// RenderResult writes the markdown rendering of res to w.
func RenderResult(w io.Writer, res *pipeline.Result) error {
	if res == nil || res.Style.Signature == nil {
		return fmt.Errorf("result has no style signature")
	}
	if err := resultTmpl.Execute(w, res); err != nil {
		return fmt.Errorf("executing result template: %w", err)
	}
	return nil
}

// RecordStyle writes style.md and style.json for sr's profile.
func (w *Writer) RecordStyle(_ context.Context, sr *pipeline.StyleResult) error {
	var md bytes.Buffer
	if err := RenderStyle(&md, sr); err != nil {
		return err
	}
	if _, err := w.write(sr.ProfileID, "style.md", md.Bytes()); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sr, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding style: %w", err)
	}
	_, err = w.write(sr.ProfileID, "style.json", append(data, '\n'))
	return err
}

// Record writes res as JSON and markdown under its profile's directory.
func (w *Writer) Record(_ context.Context, res *pipeline.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", res.ID, err)
	}
	if _, err := w.write(res.ProfileID, res.ID+".json", append(data, '\n')); err != nil {
		return err
	}

	var md bytes.Buffer
	if err := RenderResult(&md, res); err != nil {
		return err
	}
	_, err = w.write(res.ProfileID, res.ID+".md", md.Bytes())
	return err
}

func (w *Writer) write(profile, name string, data []byte) (string, error) {
	if profile == "" || strings.ContainsAny(profile, `/\`) || profile == "." || profile == ".." {
		return "", fmt.Errorf("invalid profile directory %q", profile)
	}
	dir := filepath.Join(w.outputDir, profile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}

	slog.Info("wrote report", "path", path)
	return path, nil
}
