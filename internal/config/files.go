package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/ffrun/internal/ffmpeg"
	"github.com/smazurov/ffrun/internal/logging"
)

// patternsFile is the [patterns] table of the config file.
type patternsFile struct {
	Patterns *struct {
		ffmpeg.PatternTable
		// ReplaceDefaults drops the built-in patterns instead of extending them.
		ReplaceDefaults bool `toml:"replace_defaults"`
	} `toml:"patterns"`
}

// LoadPatterns returns the diagnostic pattern table. Patterns from the
// [patterns] table are added to the defaults unless replace_defaults is set.
// An empty path or a missing file yields the defaults. Patterns are not
// compiled here; the runner reports invalid ones as a config error.
//
//	[patterns]
//	error = ['^\[h264 @ [^\]]+\] error while decoding']
//	warning = ['^frame=.* dup=']
func LoadPatterns(path string) (ffmpeg.PatternTable, error) {
	defaults := ffmpeg.DefaultPatterns()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("failed to read config: %w", err)
	}

	var file patternsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return defaults, fmt.Errorf("invalid [patterns] table in %s: %w", path, err)
	}
	if file.Patterns == nil {
		return defaults, nil
	}
	if file.Patterns.ReplaceDefaults {
		return file.Patterns.PatternTable, nil
	}
	return defaults.Merge(file.Patterns.PatternTable), nil
}

// LoadLoggingConfig reads the [logging] table. Keys other than level,
// format, output and journal are per-module levels. Returns the default
// config if the file is absent or unreadable.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Output:  "stderr",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	doc, err := readTOML(configPath)
	if err != nil {
		return cfg
	}
	table, ok := doc["logging"].(map[string]any)
	if !ok {
		return cfg
	}

	for key, value := range table {
		switch key {
		case "journal":
			if b, isBool := value.(bool); isBool {
				cfg.Journal = b
			}
			continue
		case "modules":
			if modules, isTable := value.(map[string]any); isTable {
				for module, level := range modules {
					if s, isString := level.(string); isString {
						cfg.Modules[module] = s
					}
				}
			}
			continue
		}

		s, isString := value.(string)
		if !isString {
			continue
		}
		switch strings.ToLower(key) {
		case "level":
			cfg.Level = s
		case "format":
			cfg.Format = s
		case "output":
			cfg.Output = s
		default:
			cfg.Modules[key] = s
		}
	}
	return cfg
}
