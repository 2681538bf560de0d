package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoDuration is returned when ffprobe reports no usable container duration.
var ErrNoDuration = errors.New("duration not available in format metadata")

// Stream is one media stream as reported by ffprobe.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Duration   string `json:"duration,omitempty"`
}

// Format is the container section of ffprobe's output.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// ProbeResult holds the metadata ffprobe reports for one file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// DurationMs returns the container duration in milliseconds.
func (r *ProbeResult) DurationMs() (int64, error) {
	if r.Format.Duration == "" || r.Format.Duration == "N/A" {
		return 0, ErrNoDuration
	}
	seconds, err := strconv.ParseFloat(r.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", r.Format.Duration, err)
	}
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, ErrNoDuration
	}
	return int64(math.Round(seconds * 1000)), nil
}

// StreamsOfType returns the streams with the given codec type (video, audio, ...).
func (r *ProbeResult) StreamsOfType(codecType string) []Stream {
	var streams []Stream
	for _, s := range r.Streams {
		if s.CodecType == codecType {
			streams = append(streams, s)
		}
	}
	return streams
}

// FFprobe runs ffprobe to read media metadata.
type FFprobe struct {
	// Binary is the ffprobe executable. Empty means "ffprobe" on PATH.
	Binary string
}

// Probe reads format and stream metadata of file.
func (p FFprobe) Probe(ctx context.Context, file string) (*ProbeResult, error) {
	binary := p.Binary
	if binary == "" {
		binary = "ffprobe"
	}
	path, err := ResolveBinary(binary)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		file,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffprobe %s: %w: %s", file, err, msg)
		}
		return nil, fmt.Errorf("ffprobe %s: %w", file, err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &result, nil
}

// ProbeDuration returns the duration of input in milliseconds.
func (p FFprobe) ProbeDuration(ctx context.Context, input string) (int64, error) {
	result, err := p.Probe(ctx, input)
	if err != nil {
		return 0, err
	}
	return result.DurationMs()
}
