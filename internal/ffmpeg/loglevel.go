package ffmpeg

import (
	"log/slog"
	"regexp"
)

// levelTag matches the "[level] " marker ffmpeg prints with -loglevel
// level+..., optionally after a "[component @ 0x...] " context.
var levelTag = regexp.MustCompile(`^(\[[^\]]+\] )?\[(quiet|panic|fatal|error|warning|info|verbose|debug|trace)\] `)

// ParseLogLevel maps a stderr line to a slog level and strips the level
// marker, keeping any component context. Untagged lines are Info.
//
//	"[in#0 @ 0x55] [error] Error opening input" -> Error, "[in#0 @ 0x55] Error opening input"
func ParseLogLevel(line string) (slog.Level, string) {
	m := levelTag.FindStringSubmatchIndex(line)
	if m == nil {
		return slog.LevelInfo, line
	}
	component := ""
	if m[2] >= 0 {
		component = line[m[2]:m[3]]
	}
	return toolLevel(line[m[4]:m[5]]), component + line[m[1]:]
}

func toolLevel(name string) slog.Level {
	switch name {
	case "panic", "fatal", "error":
		return slog.LevelError
	case "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
