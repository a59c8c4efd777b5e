package statehash

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// Config is the optional per-state-directory configuration, read from an
// ini file named `config` inside the state directory. A missing file is not
// an error; every getter falls back to its default.
type Config struct {
	configPath string
	ini        *ini.File
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	Threads    int    // Number of concurrent hash workers (default: 1)
	ReadBuffer string // Per-worker read buffer size (default: "4M")
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// LoadConfig loads the state directory's config file if one exists
func LoadConfig(stateDir string) (*Config, error) {
	configPath := filepath.Join(stateDir, "config")

	cfg := &Config{
		configPath: configPath,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg.ini = iniFile

	return cfg, nil
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		Threads:    DefaultThreads, // fallback default
		ReadBuffer: "4M",           // fallback default
	}

	if c.ini != nil && c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("threads") {
			if threads, err := section.Key("threads").Int(); err == nil {
				performanceConfig.Threads = threads
			}
		}
		if section.HasKey("read_buffer") {
			if bufferSize := section.Key("read_buffer").String(); bufferSize != "" {
				performanceConfig.ReadBuffer = bufferSize
			}
		}
	}

	return performanceConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{
		Level: 0,  // fallback default
		Debug: "", // fallback default
	}

	if c.ini != nil && c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// ValidateThreads validates that the worker count is reasonable
func ValidateThreads(threads int) error {
	if threads < 1 {
		return fmt.Errorf("threads must be at least 1, got: %d", threads)
	}
	if threads > 64 {
		return fmt.Errorf("threads should not exceed 64, got: %d", threads)
	}
	return nil
}

// ParseReadBuffer parses human-readable size strings (e.g. "4M", "512K")
// into a byte count
func ParseReadBuffer(sizeStr string) (int, error) {
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	var numPart string
	var suffix string
	for i, char := range sizeStr {
		if char >= '0' && char <= '9' || char == '.' {
			numPart += string(char)
		} else {
			suffix = sizeStr[i:]
			break
		}
	}

	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var multiplier int64 = 1
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", suffix)
	}

	result := int64(num * float64(multiplier))
	if result <= 0 {
		return 0, fmt.Errorf("size must be positive: %s", sizeStr)
	}
	if result > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}

	return int(result), nil
}
