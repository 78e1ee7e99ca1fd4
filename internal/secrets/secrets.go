// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider API keys from a directory of plain-text
// files. Each file in the directory represents one secret: the filename is
// the key name and the file contents (trimmed) are the value.
//
// Supported key files: video-api-key, media-api-key, games-api-key,
// retail-api-key.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory or missing files are not errors; Load
// returns an empty map. Unreadable files produce a warning on warnings
// (usually stderr) but do not abort.
func Load(dir string, warnings io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(warnings, "warning: could not read secret %s: %v\n", entry.Name(), err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[entry.Name()] = value
		}
	}

	return secrets, nil
}

// APIKeyFor maps a source name to its secret file and returns the loaded
// key, or "" when absent. Sources without a key file (trends, music) are
// keyless by design.
func APIKeyFor(loaded map[string]string, source string) string {
	return loaded[source+"-api-key"]
}
