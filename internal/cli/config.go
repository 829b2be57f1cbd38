package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tailscale/hujson"

	"github.com/drbh/bspc"
)

// ConfigFileName is the default config file name looked up in the
// working directory.
const ConfigFileName = ".bspc.json"

// LoadChunkConfig resolves the chunk configuration: defaults, overridden
// by one config file. That file is path when non-empty (it must exist);
// otherwise it is .bspc.json in the working directory, if that exists.
// Only one file is ever read.
//
// Config files are HuJSON: comments and trailing commas are permitted.
// Zero-valued fields in the file keep their defaults.
func LoadChunkConfig(path string) (bspc.ChunkConfig, error) {
	cfg := bspc.DefaultChunkConfig()

	explicit := path != ""
	if !explicit {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return bspc.ChunkConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return bspc.ChunkConfig{}, fmt.Errorf("config %s: invalid JSONC: %w", path, err)
	}

	var loaded bspc.ChunkConfig

	if err := json.Unmarshal(standardized, &loaded); err != nil {
		return bspc.ChunkConfig{}, fmt.Errorf("config %s: invalid JSON: %w", path, err)
	}

	if loaded.MemoryLimitMB != 0 {
		cfg.MemoryLimitMB = loaded.MemoryLimitMB
	}

	if loaded.BloomHashCount != 0 {
		cfg.BloomHashCount = loaded.BloomHashCount
	}

	if loaded.ChunkSize != 0 {
		cfg.ChunkSize = loaded.ChunkSize
	}

	if err := cfg.Validate(); err != nil {
		return bspc.ChunkConfig{}, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}
