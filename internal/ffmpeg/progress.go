package ffmpeg

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var errNegativeTimestamp = errors.New("negative timestamp")

// Progress is one completed block from ffmpeg's -progress output.
// Nil fields were not reported in that block.
type Progress struct {
	Frame          *int64   `json:"frame,omitempty"`
	FPS            *float64 `json:"fps,omitempty"`
	BitrateKbps    *float64 `json:"bitrate_kbps,omitempty"`
	TotalSizeBytes *int64   `json:"total_size_bytes,omitempty"`
	OutTimeMs      *int64   `json:"out_time_ms,omitempty"`
	DurationMs     *int64   `json:"duration_ms,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
	DropFrames     *int64   `json:"drop_frames,omitempty"`
	DupFrames      *int64   `json:"dup_frames,omitempty"`

	// Completion is OutTimeMs/DurationMs clamped to [0,1]. Nil unless both are known.
	Completion *float64 `json:"completion,omitempty"`

	// Final is set on the block terminated by progress=end.
	Final bool `json:"final"`
}

// ProgressParser accumulates key=value lines until a progress= terminator
// and then emits a Progress. It is not safe for concurrent use; feed it from
// the goroutine draining stdout.
type ProgressParser struct {
	durationMs *int64
	pending    map[string]string
}

// NewProgressParser creates a parser. durationMs is the total input duration
// from a probe step; pass nil when unknown and Completion is never computed.
func NewProgressParser(durationMs *int64) *ProgressParser {
	var d *int64
	if durationMs != nil && *durationMs > 0 {
		v := *durationMs
		d = &v
	}
	return &ProgressParser{
		durationMs: d,
		pending:    make(map[string]string),
	}
}

// Feed consumes one stdout line. It returns a Progress and true when the line
// terminated a block. Lines that are not key=value pairs and unknown keys are
// ignored.
func (p *ProgressParser) Feed(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if key == "progress" {
		snapshot := p.build(value == "end")
		clear(p.pending)
		return snapshot, true
	}

	if isProgressKey(key) {
		p.pending[key] = value
	}
	return Progress{}, false
}

// Reset drops a partially accumulated block.
func (p *ProgressParser) Reset() {
	clear(p.pending)
}

func isProgressKey(key string) bool {
	switch key {
	case "frame", "fps", "bitrate", "total_size", "out_time_us", "out_time_ms", "out_time",
		"speed", "drop_frames", "dup_frames":
		return true
	}
	return false
}

func (p *ProgressParser) build(final bool) Progress {
	snapshot := Progress{
		Frame:          parseInt(p.pending["frame"]),
		FPS:            parseFloat(p.pending["fps"]),
		BitrateKbps:    parseFloat(strings.TrimSuffix(p.pending["bitrate"], "kbits/s")),
		TotalSizeBytes: parseInt(p.pending["total_size"]),
		OutTimeMs:      p.outTimeMs(),
		Speed:          parseFloat(strings.TrimSuffix(p.pending["speed"], "x")),
		DropFrames:     parseInt(p.pending["drop_frames"]),
		DupFrames:      parseInt(p.pending["dup_frames"]),
		Final:          final,
	}

	if p.durationMs != nil {
		d := *p.durationMs
		snapshot.DurationMs = &d
		if snapshot.OutTimeMs != nil {
			ratio := float64(*snapshot.OutTimeMs) / float64(d)
			ratio = min(max(ratio, 0), 1)
			snapshot.Completion = &ratio
		}
	}
	return snapshot
}

// outTimeMs prefers the microsecond counters. ffmpeg's out_time_ms is also
// in microseconds despite its name.
func (p *ProgressParser) outTimeMs() *int64 {
	for _, key := range []string{"out_time_us", "out_time_ms"} {
		if us := parseInt(p.pending[key]); us != nil {
			if *us < 0 {
				return nil
			}
			ms := *us / 1000
			return &ms
		}
	}
	if raw, ok := p.pending["out_time"]; ok {
		if d, err := ParseTimestamp(raw); err == nil {
			ms := d.Milliseconds()
			return &ms
		}
	}
	return nil
}

// ParseTimestamp parses ffmpeg's HH:MM:SS.micro timestamp format.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	// ffmpeg reports a huge negative out_time before the first packet is muxed
	if strings.HasPrefix(value, "-") {
		return 0, errNegativeTimestamp
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, &strconv.NumError{Func: "ParseTimestamp", Num: value, Err: strconv.ErrSyntax}
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return 0, errNegativeTimestamp
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second)), nil
}

// parseInt returns nil for missing, N/A or malformed values.
func parseInt(value string) *int64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
