package notify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ServerEnvironment returns the process environment minus the keys defined
// in envFile and the keys matched by exclude. An exclude entry ending in "*"
// matches by prefix. A missing envFile excludes nothing.
func ServerEnvironment(envFile string, exclude []string) (map[string]string, error) {
	var fileKeys map[string]string

	if envFile != "" {
		keys, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		default:
			fileKeys = keys
		}
	}

	env := make(map[string]string)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}

		if _, secret := fileKeys[key]; secret {
			continue
		}

		if excluded(key, exclude) {
			continue
		}

		env[key] = value
	}

	return env, nil
}

func excluded(key string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(key, prefix) {
				return true
			}
			continue
		}

		if key == p {
			return true
		}
	}

	return false
}
