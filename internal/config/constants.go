package config

import (
	"path/filepath"
	"strings"
)

const SourceFileExt = ".em"

// Version is reported by `ember version`.
const Version = "0.1.0"

// ConfigFileNames are the project configuration files, in lookup order.
var ConfigFileNames = []string{"ember.yaml", "ember.yml", "ember.toml"}

// Environment variables that override the configuration.
const (
	PathEnv     = "EMBER_PATH"      // list of module directories
	ModuleDBEnv = "EMBER_MODULE_DB" // SQLite module store
)

// HistoryFileName is the REPL history file, kept in the user's home.
const HistoryFileName = ".ember_history"

// IsSourceFile reports whether path has the source extension.
func IsSourceFile(path string) bool {
	return strings.HasSuffix(path, SourceFileExt)
}

// TrimSourceExt removes the source extension for display.
func TrimSourceExt(path string) string {
	return strings.TrimSuffix(path, SourceFileExt)
}

// ModuleName derives an importable name from a source file path.
func ModuleName(path string) string {
	return TrimSourceExt(filepath.Base(path))
}
