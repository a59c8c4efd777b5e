package statehash

import (
	"fmt"
	"os"
	"strings"
)

var globalVerboseLevel int
var debugFlags map[string]bool

// SetVerboseLevel sets the global verbose level
func SetVerboseLevel(level int) {
	globalVerboseLevel = level
}

// GetVerboseLevel returns the current verbose level
func GetVerboseLevel() int {
	return globalVerboseLevel
}

// VerboseLog logs a message to stderr at the specified verbose level
func VerboseLog(level int, format string, args ...interface{}) {
	if globalVerboseLevel >= level {
		fmt.Fprintf(os.Stderr, "[VERBOSE-%d] ", level)
		fmt.Fprintf(os.Stderr, format, args...)
		if !strings.HasSuffix(format, "\n") {
			fmt.Fprintf(os.Stderr, "\n")
		}
	}
}

// SetDebugFlags sets the debug flags from a comma-separated string.
// Supports both simple flags ("snapshot,walk") and key:value format
// ("snapshot:true,walk:off")
func SetDebugFlags(flagsStr string) {
	debugFlags = make(map[string]bool)
	if flagsStr == "" {
		return
	}

	flags := strings.Split(flagsStr, ",")
	for _, flag := range flags {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		parts := strings.SplitN(flag, ":", 2)
		flagName := strings.ToLower(parts[0])
		flagValue := true

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "true", "1", "yes", "on":
				flagValue = true
			case "false", "0", "no", "off":
				flagValue = false
			default:
				flagValue = true
			}
		}

		debugFlags[flagName] = flagValue
	}
}

// IsDebugEnabled returns true if the specified debug flag is enabled
func IsDebugEnabled(flag string) bool {
	if debugFlags == nil {
		return false
	}
	return debugFlags[strings.ToLower(flag)]
}
