package engine

import (
	"errors"
	"io/fs"

	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
)

// DefaultConfigPath is read when the application does not name a file.
const DefaultConfigPath = "prism.toml"

// LoadConfig reads path, or the built-in defaults when the file does not
// exist. A file that exists but does not parse is an error.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogInfo("no configuration at %s, using defaults", path)
		return config.Default(), nil
	}
	if err != nil {
		core.LogError("failed to load configuration %s: %s", path, err)
		return nil, err
	}
	return cfg, nil
}
