package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel  = "warn"
	DefaultDB        = "typescan.db"
	DefaultCacheSize = 256
	DefaultMaxDepth  = 64
)

type Config struct {
	LoadPath struct {
		Roots      []string `yaml:"roots"`
		UnitSuffix string   `yaml:"unit_suffix"`
	} `yaml:"load_path"`
	Scan struct {
		ArchiveSuffixes []string `yaml:"archive_suffixes"`
		MaxDepth        int      `yaml:"max_depth"`
	} `yaml:"scan"`
	Cache struct {
		Size int `yaml:"size"` // materialized type handles; 0 disables
	} `yaml:"cache"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Export struct {
		Enabled bool   `yaml:"enabled"`
		DB      string `yaml:"db"`
	} `yaml:"export"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.LoadPath.UnitSuffix = ".go"
	cfg.Scan.ArchiveSuffixes = []string{".zip", ".jar"}
	cfg.Scan.MaxDepth = DefaultMaxDepth
	cfg.Cache.Size = DefaultCacheSize
	cfg.Log.Level = DefaultLogLevel
	cfg.Export.DB = DefaultDB
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config over the defaults; a missing file keeps them
	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := validateYAML(file); err != nil {
				return nil, fmt.Errorf("invalid config %s: %w", path, err)
			}
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if roots := os.Getenv("TYPESCAN_PATH"); roots != "" {
		cfg.LoadPath.Roots = filepath.SplitList(roots)
	}
	if level := os.Getenv("TYPESCAN_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if db := os.Getenv("TYPESCAN_DB"); db != "" {
		cfg.Export.DB = db
	}
	if size := os.Getenv("TYPESCAN_CACHE_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return nil, fmt.Errorf("invalid TYPESCAN_CACHE_SIZE %q: %w", size, err)
		}
		cfg.Cache.Size = n
	}

	return cfg, nil
}
