// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: serpapi-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key names looked up by the CLI and server.
const (
	SearchAPIKey = "serpapi-api-key"
	ModelAPIKey  = "openai-api-key"
)

// Environment fallbacks checked when the key file is absent.
var envFallbacks = map[string]string{
	SearchAPIKey: "SERPAPI_KEY",
	ModelAPIKey:  "OPENAI_API_KEY",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Get returns the named secret, falling back to the matching environment
// variable when the key file is absent. Missing both returns "".
func Get(secrets map[string]string, key string) string {
	if v, ok := secrets[key]; ok {
		return v
	}
	if env, ok := envFallbacks[key]; ok {
		return os.Getenv(env)
	}
	return ""
}

// Require returns the named secret or an error naming the key file and env
// variable the operator must set. Used for keys whose absence is a fatal
// startup condition.
func Require(secrets map[string]string, key string) (string, error) {
	if v := Get(secrets, key); v != "" {
		return v, nil
	}
	env := envFallbacks[key]
	return "", fmt.Errorf("missing required secret %q: create .secrets/%s or set %s", key, key, env)
}
