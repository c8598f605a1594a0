package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Paths         []string       `toml:"paths"`
	Exclude       Exclude        `toml:"exclude"`
	Analysis      Analysis       `toml:"analysis"`
	Costs         map[string]int `toml:"costs"`
	Watch         Watch          `toml:"watch"`
	Output        Output         `toml:"output"`
	Cache         Cache          `toml:"cache"`
	Observability Observability  `toml:"observability"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Analysis struct {
	// MinOccurrences is the break-even reference count below which
	// caching patterns are not reported.
	MinOccurrences  int      `toml:"min_occurrences"`
	EnabledPatterns []string `toml:"enabled_patterns"`
	AutoRewrite     bool     `toml:"auto_rewrite"`
	// NoInline lists function names excluded from single-call-function
	// reporting.
	NoInline []string `toml:"no_inline"`
	Workers  int      `toml:"workers"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// MaxReanalysesPerSecond throttles re-analysis churn in watch mode.
	MaxReanalysesPerSecond float64 `toml:"max_reanalyses_per_second"`
}

type Output struct {
	Markdown string `toml:"markdown"`
	SARIF    string `toml:"sarif"`
	TSV      string `toml:"tsv"`
}

type Cache struct {
	Path string `toml:"path"`
}

type Observability struct {
	Listen       string `toml:"listen"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Default() *Config {
	return &Config{
		Paths: []string{"."},
		Exclude: Exclude{
			Dirs:  []string{".git", "__pycache__", ".venv", "venv", "build"},
			Files: []string{"test_*.py", "*_test.py", "conftest.py"},
		},
		Analysis: Analysis{
			MinOccurrences: 4,
			Workers:        0, // 0 means GOMAXPROCS
		},
		Watch: Watch{
			Debounce:               500 * time.Millisecond,
			MaxReanalysesPerSecond: 20,
		},
		Cache: Cache{
			Path: ".upysize.db",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Analysis.MinOccurrences < 2 {
		return fmt.Errorf("analysis.min_occurrences must be at least 2, got %d", c.Analysis.MinOccurrences)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	if len(c.Paths) == 0 {
		c.Paths = []string{"."}
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	return nil
}

// PatternEnabled reports whether a pattern kind should run. An empty
// enabled_patterns list enables everything.
func (c *Config) PatternEnabled(kind string) bool {
	if len(c.Analysis.EnabledPatterns) == 0 {
		return true
	}
	for _, p := range c.Analysis.EnabledPatterns {
		if p == kind {
			return true
		}
	}
	return false
}
