package vision

import (
	"fmt"
	"os"
	"path/filepath"
)

// ModelsDir resolves the directory holding detector and captioner assets.
// Resolution order: the explicit override (if non-empty), a models directory
// next to the running binary, then ~/.strobe/models. A missing directory is
// a startup-fatal condition — the caller should exit, not retry per request.
func ModelsDir(override string) (string, error) {
	candidates := make([]string, 0, 3)

	if override != "" {
		candidates = append(candidates, override)
	}

	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "models"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".strobe", "models"))
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}

	return "", fmt.Errorf("no models directory found (looked in %v)", candidates)
}
