// Package probe derives playable duration and a still-frame preview
// image from a media file by briefly decoding it with ffprobe/ffmpeg.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of probing one media file. Available is false
// when the file could not be decoded (corrupt file, unsupported codec,
// probe timeout); call sites fall back to zero duration and no preview
// instead of failing ingestion.
type Result struct {
	Available       bool
	DurationSeconds float64
	// Preview is a jpeg-encoded still frame, nil when none was
	// captured.
	Preview []byte
}

// unavailable is the degraded result used on every probe failure.
func unavailable() Result {
	return Result{}
}

type Options struct {
	// FFprobePath and FFmpegPath are the decode binaries, default
	// "ffprobe" and "ffmpeg" from PATH.
	FFprobePath string
	FFmpegPath  string
	// Timeout caps one probe, files that never finish decoding count
	// as failed. Default 8s.
	Timeout time.Duration
	// PreviewMaxWidth is the width previews are downscaled to, aspect
	// preserved. Default 320.
	PreviewMaxWidth int
}

type Prober struct {
	ffprobePath     string
	ffmpegPath      string
	timeout         time.Duration
	previewMaxWidth int
}

func New(o Options) *Prober {
	p := &Prober{
		ffprobePath:     strings.TrimSpace(o.FFprobePath),
		ffmpegPath:      strings.TrimSpace(o.FFmpegPath),
		timeout:         o.Timeout,
		previewMaxWidth: o.PreviewMaxWidth,
	}
	if p.ffprobePath == "" {
		p.ffprobePath = "ffprobe"
	}
	if p.ffmpegPath == "" {
		p.ffmpegPath = "ffmpeg"
	}
	if p.timeout <= 0 {
		p.timeout = 8 * time.Second
	}
	if p.previewMaxWidth <= 0 {
		p.previewMaxWidth = 320
	}
	return p
}

// Probe decodes just enough of the file to obtain its duration, then
// captures one frame near the start as a preview image. Every failure
// path yields the unavailable result; the subprocesses are bounded by
// the per-probe timeout and reaped by CommandContext on every exit
// path.
func (p *Prober) Probe(ctx context.Context, path string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	duration, err := p.inspectDuration(ctx, path)
	if err != nil {
		log.Printf("probe %s: %s", path, err)
		return unavailable()
	}

	frame, err := p.extractFrame(ctx, path, seekPoint(duration))
	if err != nil {
		log.Printf("probe %s: %s", path, err)
		return unavailable()
	}
	preview, err := renderPreview(frame, p.previewMaxWidth)
	if err != nil {
		log.Printf("probe %s: %s", path, err)
		return unavailable()
	}

	return Result{
		Available:       true,
		DurationSeconds: duration,
		Preview:         preview,
	}
}

// inspectDuration executes ffprobe and decodes the container duration
// from its JSON output.
func (p *Prober) inspectDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseDuration(output)
}

// parseDuration extracts format.duration from ffprobe JSON output.
func parseDuration(output []byte) (float64, error) {
	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("ffprobe: no usable duration %q", result.Format.Duration)
	}
	return duration, nil
}

// seekPoint picks the timestamp of the preview frame: the 10s mark for
// longer files, early in the file for short ones.
func seekPoint(duration float64) float64 {
	if duration > 10 {
		return 10
	}
	return min(duration*0.1, 2)
}

// extractFrame has ffmpeg decode a single frame at the seek point and
// write it png-encoded to stdout.
func (p *Prober) extractFrame(ctx context.Context, path string, seek float64) ([]byte, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 2, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame: %w", err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("ffmpeg frame: empty output")
	}
	return output, nil
}
