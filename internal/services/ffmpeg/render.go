package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"contentflow/internal/services/procexec"
)

const (
	bodyFontSize   = 36
	bodyLineHeight = 50
	labelFontSize  = 28
	brandFontSize  = 20
	textMargin     = 200
	// average glyph advance relative to font size for a sans face
	glyphWidthRatio = 0.55
)

// Spec describes one preview render.
type Spec struct {
	ImagePath string
	AudioPath string
	Text      string
	Label     string
	Branding  string
	FontFile  string
	Accent    string
	Width     int
	Height    int
	Duration  time.Duration
	Output    string
}

// Progress is a parsed snapshot of ffmpeg's -progress output.
type Progress struct {
	Percent float64
	OutTime time.Duration
	Speed   string
	Done    bool
}

// Option configures the renderer.
type Option func(*Renderer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Renderer drives the ffmpeg binary.
type Renderer struct {
	binary  string
	timeout time.Duration
	exec    procexec.Executor
}

// New constructs a renderer for binary (ffmpeg when empty).
func New(binary string, timeout time.Duration, opts ...Option) *Renderer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	r := &Renderer{binary: binary, timeout: timeout, exec: procexec.CommandExecutor{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the command the renderer invokes.
func (r *Renderer) Binary() string {
	return r.binary
}

// Render writes the overlay text files, runs ffmpeg and reports progress.
func (r *Renderer) Render(ctx context.Context, spec Spec, onProgress func(Progress)) error {
	spec = spec.withDefaults()
	if strings.TrimSpace(spec.Output) == "" {
		return errors.New("ffmpeg: output path required")
	}
	workDir := filepath.Dir(spec.Output)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("ffmpeg: create output directory: %w", err)
	}

	files := overlayPaths(workDir)
	contents := map[string]string{
		files.body:  strings.Join(WrapLines(spec.Text, spec.Width), "\n"),
		files.label: spec.Label,
		files.brand: spec.Branding,
	}
	for path, body := range contents {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return fmt.Errorf("ffmpeg: write overlay text: %w", err)
		}
	}
	defer func() {
		for path := range contents {
			_ = os.Remove(path)
		}
	}()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	parser := newProgressParser(spec.Duration)
	onLine := func(line string) {
		if snapshot, ok := parser.feed(line); ok && onProgress != nil {
			onProgress(snapshot)
		}
	}
	if err := r.exec.Run(runCtx, r.binary, BuildArgs(spec), onLine); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ffmpeg: render timed out after %s: %w", r.timeout, context.DeadlineExceeded)
		}
		return fmt.Errorf("ffmpeg: render: %w", err)
	}

	info, err := os.Stat(spec.Output)
	if err != nil {
		return fmt.Errorf("ffmpeg: output missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("ffmpeg: output is empty")
	}
	return nil
}

func (s Spec) withDefaults() Spec {
	if s.Width <= 0 {
		s.Width = 1280
	}
	if s.Height <= 0 {
		s.Height = 720
	}
	if s.Duration <= 0 {
		s.Duration = 10 * time.Second
	}
	if strings.TrimSpace(s.Accent) == "" {
		s.Accent = "#4f46e5"
	}
	return s
}

// overlayFiles names the drawtext inputs for a render.
type overlayFiles struct {
	body  string
	label string
	brand string
}

func overlayPaths(dir string) overlayFiles {
	return overlayFiles{
		body:  filepath.Join(dir, "overlay-text.txt"),
		label: filepath.Join(dir, "overlay-label.txt"),
		brand: filepath.Join(dir, "overlay-brand.txt"),
	}
}

// WrapLines breaks text so each line fits the frame width less the side
// margins at the body font size.
func WrapLines(body string, frameWidth int) []string {
	usable := frameWidth - textMargin
	perLine := int(float64(usable) / (bodyFontSize * glyphWidthRatio))
	if perLine < 10 {
		perLine = 10
	}
	var lines []string
	for _, paragraph := range strings.Split(body, "\n") {
		paragraph = strings.Join(strings.Fields(paragraph), " ")
		if paragraph == "" {
			continue
		}
		wrapped := text.WrapSoft(paragraph, perLine)
		for _, line := range strings.Split(wrapped, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// BuildArgs assembles the ffmpeg command line for spec. Overlay text files
// live next to the output.
func BuildArgs(spec Spec) []string {
	spec = spec.withDefaults()
	files := overlayPaths(filepath.Dir(spec.Output))
	args := []string{"-y", "-hide_banner", "-nostats", "-loglevel", "error", "-progress", "pipe:1"}
	if strings.TrimSpace(spec.ImagePath) != "" {
		args = append(args, "-loop", "1", "-i", spec.ImagePath)
	} else {
		args = append(args, "-f", "lavfi", "-i", fmt.Sprintf("color=c=black:s=%dx%d", spec.Width, spec.Height))
	}
	hasAudio := strings.TrimSpace(spec.AudioPath) != ""
	if hasAudio {
		args = append(args, "-i", spec.AudioPath)
	}
	args = append(args, "-filter_complex", filterGraph(spec, files), "-map", "[v]")
	if hasAudio {
		args = append(args, "-map", "1:a", "-c:a", "aac", "-b:a", "128k")
	}
	args = append(args,
		"-c:v", "libx264",
		"-t", formatSeconds(spec.Duration),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-profile:v", "baseline",
		"-level", "3.0",
		spec.Output,
	)
	return args
}

func filterGraph(spec Spec, files overlayFiles) string {
	w, h := spec.Width, spec.Height
	font := ""
	if strings.TrimSpace(spec.FontFile) != "" {
		font = ":fontfile=" + escapeValue(spec.FontFile)
	}
	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", w, h),
		"setsar=1",
		"drawbox=x=0:y=0:w=iw:h=ih:color=black@0.5:t=fill",
		fmt.Sprintf("drawtext=textfile=%s:expansion=none%s:fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=50",
			escapeValue(files.label), font, ffmpegColor(spec.Accent), labelFontSize),
		fmt.Sprintf("drawtext=textfile=%s:expansion=none%s:fontcolor=white:fontsize=%d:line_spacing=%d:x=(w-text_w)/2:y=(h-text_h)/2",
			escapeValue(files.body), font, bodyFontSize, bodyLineHeight-bodyFontSize),
		fmt.Sprintf("drawtext=textfile=%s:expansion=none%s:fontcolor=white@0.8:fontsize=%d:x=(w-text_w)/2:y=h-60",
			escapeValue(files.brand), font, brandFontSize),
		"format=yuv420p",
	}
	return "[0:v]" + strings.Join(filters, ",") + "[v]"
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(math.Round(d.Seconds()*1000)/1000, 'f', -1, 64)
}

// ffmpegColor converts #rrggbb to the 0xRRGGBB form filter options accept.
func ffmpegColor(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "#") {
		return "0x" + strings.ToUpper(value[1:])
	}
	return value
}

// escapeValue quotes a filter option value.
func escapeValue(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return "'" + replacer.Replace(value) + "'"
}
