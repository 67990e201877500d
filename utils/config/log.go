package config

import "log"

// Verbose and Debug are set from the persistent CLI flags before any command runs.
var (
	Verbose bool
	Debug   bool
)

// VerboseLog prints a message when verbose or debug output is enabled
func VerboseLog(format string, args ...interface{}) {
	if Verbose || Debug {
		log.Printf("[INFO] "+format+"\n", args...)
	}
}

// DebugLog prints a message only when debug output is enabled
func DebugLog(format string, args ...interface{}) {
	if Debug {
		log.Printf("[DEBUG] "+format+"\n", args...)
	}
}

// WarnLog always prints a warning
func WarnLog(format string, args ...interface{}) {
	log.Printf("[WARN] "+format+"\n", args...)
}
