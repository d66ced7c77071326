package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// KeyEnvPrefix prefixes environment variables that override keys, e.g.
// KNOWLEDGENET_KEY_OPENAI_API_KEY sets openai_api_key.
const KeyEnvPrefix = DefaultEnvPrefix + "_KEY_"

type keysFile struct {
	Keys map[string]string `toml:"keys"`
}

// LoadKeys reads the [keys] table of a TOML file and applies environment
// overrides. An empty path or missing file yields only the environment keys.
func LoadKeys(path string) (map[string]string, error) {
	return loadKeys(path, os.Environ())
}

func loadKeys(path string, environ []string) (map[string]string, error) {
	keys := map[string]string{}

	if path != "" {
		var kf keysFile
		_, err := toml.DecodeFile(path, &kf)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to parse keys file: %w", err)
		default:
			for k, v := range kf.Keys {
				keys[k] = v
			}
		}
	}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, KeyEnvPrefix) || value == "" {
			continue
		}
		keys[strings.ToLower(strings.TrimPrefix(name, KeyEnvPrefix))] = value
	}
	return keys, nil
}

// SaveKeys writes keys as a [keys] table with owner-only permissions.
func SaveKeys(path string, keys map[string]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create keys file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(keysFile{Keys: keys}); err != nil {
		return fmt.Errorf("failed to encode keys: %w", err)
	}
	return nil
}
