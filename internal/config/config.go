package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Build struct {
		IncludeRoot string   `yaml:"include_root"`
		Strict      bool     `yaml:"strict"` // fail the build on the first unparseable file
		Jobs        int      `yaml:"jobs"`
		Ignored     []string `yaml:"ignored"`
	} `yaml:"build"`
	Passes struct {
		Enabled     []string `yaml:"enabled"` // empty means the canonical order
		FixpointCap int      `yaml:"fixpoint_cap"`
	} `yaml:"passes"`
	Export struct {
		Database string `yaml:"database"`
	} `yaml:"export"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Build.Jobs = 4
	cfg.Build.Ignored = []string{".git", "vendor", "node_modules", "testdata"}
	cfg.Passes.FixpointCap = 5
	cfg.Export.Database = "cpg.db"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config; a missing file means defaults.
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, err
			}
		}
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("CPG_INCLUDE_ROOT"); root != "" {
		cfg.Build.IncludeRoot = root
	}
	if jobs := os.Getenv("CPG_JOBS"); jobs != "" {
		if n, err := strconv.Atoi(jobs); err == nil && n > 0 {
			cfg.Build.Jobs = n
		}
	}
	if db := os.Getenv("CPG_DB"); db != "" {
		cfg.Export.Database = db
	}

	if cfg.Build.Jobs <= 0 {
		cfg.Build.Jobs = 1
	}
	return cfg, nil
}
