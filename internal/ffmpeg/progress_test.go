package ffmpeg

import (
	"math"
	"strings"
	"testing"
	"time"
)

const sampleBlock = `frame=120
fps=29.97
stream_0_0_q=28.0
bitrate=1523.4kbits/s
total_size=1048576
out_time_us=4000000
out_time_ms=4000000
out_time=00:00:04.000000
dup_frames=2
drop_frames=1
speed=1.95x
progress=continue`

func feedAll(p *ProgressParser, input string) []Progress {
	var snapshots []Progress
	for _, line := range strings.Split(input, "\n") {
		if s, ok := p.Feed(line); ok {
			snapshots = append(snapshots, s)
		}
	}
	return snapshots
}

func int64Ptr(v int64) *int64 { return &v }

func TestProgressParserBlock(t *testing.T) {
	p := NewProgressParser(int64Ptr(8000))
	snapshots := feedAll(p, sampleBlock)
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	s := snapshots[0]

	if s.Frame == nil || *s.Frame != 120 {
		t.Errorf("Frame = %v, want 120", s.Frame)
	}
	if s.FPS == nil || *s.FPS != 29.97 {
		t.Errorf("FPS = %v, want 29.97", s.FPS)
	}
	if s.BitrateKbps == nil || *s.BitrateKbps != 1523.4 {
		t.Errorf("BitrateKbps = %v, want 1523.4", s.BitrateKbps)
	}
	if s.TotalSizeBytes == nil || *s.TotalSizeBytes != 1048576 {
		t.Errorf("TotalSizeBytes = %v, want 1048576", s.TotalSizeBytes)
	}
	if s.OutTimeMs == nil || *s.OutTimeMs != 4000 {
		t.Errorf("OutTimeMs = %v, want 4000", s.OutTimeMs)
	}
	if s.DurationMs == nil || *s.DurationMs != 8000 {
		t.Errorf("DurationMs = %v, want 8000", s.DurationMs)
	}
	if s.Speed == nil || *s.Speed != 1.95 {
		t.Errorf("Speed = %v, want 1.95", s.Speed)
	}
	if s.DropFrames == nil || *s.DropFrames != 1 {
		t.Errorf("DropFrames = %v, want 1", s.DropFrames)
	}
	if s.DupFrames == nil || *s.DupFrames != 2 {
		t.Errorf("DupFrames = %v, want 2", s.DupFrames)
	}
	if s.Completion == nil || *s.Completion != 0.5 {
		t.Errorf("Completion = %v, want 0.5", s.Completion)
	}
	if s.Final {
		t.Error("continue block should not be final")
	}
}

func TestProgressParserEndBlock(t *testing.T) {
	p := NewProgressParser(int64Ptr(6840))
	snapshots := feedAll(p, "out_time_us=6840000\nprogress=end")
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	s := snapshots[0]
	if !s.Final {
		t.Error("progress=end should mark the snapshot final")
	}
	if s.Completion == nil || math.Abs(*s.Completion-1.0) > 1e-9 {
		t.Errorf("Completion = %v, want 1.0", s.Completion)
	}
}

func TestProgressParserNotAvailable(t *testing.T) {
	p := NewProgressParser(nil)
	snapshots := feedAll(p, "frame=0\nfps=0.00\nbitrate=N/A\ntotal_size=N/A\nout_time_us=N/A\nout_time=N/A\nspeed=N/A\nprogress=continue")
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	s := snapshots[0]
	if s.BitrateKbps != nil || s.TotalSizeBytes != nil || s.OutTimeMs != nil || s.Speed != nil {
		t.Errorf("N/A values should be absent: %+v", s)
	}
	if s.DurationMs != nil || s.Completion != nil {
		t.Error("duration and completion should be absent without a duration")
	}
	if s.Frame == nil || *s.Frame != 0 {
		t.Errorf("Frame = %v, want 0", s.Frame)
	}
}

func TestProgressParserNegativeOutTime(t *testing.T) {
	p := NewProgressParser(int64Ptr(1000))
	snapshots := feedAll(p, "out_time_us=-9223372036854775807\nout_time=-2562047788:00:54.775807\nprogress=continue")
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].OutTimeMs != nil {
		t.Errorf("negative out time should be absent, got %d", *snapshots[0].OutTimeMs)
	}
	if snapshots[0].Completion != nil {
		t.Error("completion should be absent without out time")
	}
}

func TestProgressParserCompletionClamped(t *testing.T) {
	p := NewProgressParser(int64Ptr(1000))
	snapshots := feedAll(p, "out_time_us=1500000\nprogress=continue")
	if c := snapshots[0].Completion; c == nil || *c != 1 {
		t.Errorf("Completion = %v, want 1", c)
	}
}

func TestProgressParserOutTimeFallback(t *testing.T) {
	p := NewProgressParser(nil)
	snapshots := feedAll(p, "out_time=00:01:02.500000\nprogress=continue")
	if s := snapshots[0]; s.OutTimeMs == nil || *s.OutTimeMs != 62500 {
		t.Errorf("OutTimeMs = %v, want 62500", s.OutTimeMs)
	}
}

func TestProgressParserAccumulatorCleared(t *testing.T) {
	p := NewProgressParser(nil)
	snapshots := feedAll(p, "frame=10\nfps=25\nprogress=continue\nspeed=1.0x\nprogress=continue")
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}
	if snapshots[1].Frame != nil || snapshots[1].FPS != nil {
		t.Error("second block should not carry fields of the first")
	}
	if snapshots[1].Speed == nil || *snapshots[1].Speed != 1.0 {
		t.Errorf("Speed = %v, want 1.0", snapshots[1].Speed)
	}
}

func TestProgressParserIgnoresNoise(t *testing.T) {
	p := NewProgressParser(nil)
	snapshots := feedAll(p, "hello world\n\n  frame = 7 \nunknown_key=1\nfps=abc\nprogress=continue")
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	s := snapshots[0]
	if s.Frame == nil || *s.Frame != 7 {
		t.Errorf("Frame = %v, want 7", s.Frame)
	}
	if s.FPS != nil {
		t.Errorf("malformed fps should be absent, got %v", *s.FPS)
	}
}

func TestProgressParserReset(t *testing.T) {
	p := NewProgressParser(nil)
	p.Feed("frame=10")
	p.Reset()
	s, ok := p.Feed("progress=continue")
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if s.Frame != nil {
		t.Error("Reset should drop the partial block")
	}
}

func TestProgressParserIgnoresNonPositiveDuration(t *testing.T) {
	p := NewProgressParser(int64Ptr(0))
	s, _ := p.Feed("progress=continue")
	if s.DurationMs != nil {
		t.Error("zero duration should be treated as unknown")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"00:00:04.000000", 4 * time.Second, false},
		{"01:02:03.5", time.Hour + 2*time.Minute + 3500*time.Millisecond, false},
		{"N/A", 0, true},
		{"12:34", 0, true},
		{"-00:00:01.000000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
