package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-louvain/pkg/louvain"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration of the command
type fileConfig struct {
	Input       string         `yaml:"input"`
	Relabel     bool           `yaml:"relabel"`
	MetricsAddr string         `yaml:"metrics_addr"`
	LogLevel    string         `yaml:"log_level"`
	Assignments bool           `yaml:"assignments"`
	Top         int            `yaml:"top"`
	Louvain     louvain.Config `yaml:"louvain"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		LogLevel: "info",
		Top:      10,
		Louvain:  louvain.DefaultConfig(),
	}
}

// loadConfig reads path on top of the defaults; an empty path returns the defaults
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// flagValues holds the command line flags
type flagValues struct {
	configFile     string
	input          string
	relabel        bool
	metricsAddr    string
	logLevel       string
	assignments    bool
	top            int
	maxLevel       int
	maxIterations  int
	concurrency    int
	seed           int64
	randomNeighbor bool
}

func registerFlags(fs *flag.FlagSet, defaults fileConfig) *flagValues {
	v := &flagValues{}
	fs.StringVar(&v.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&v.input, "input", "", "Edge list to cluster (.sz for snappy compressed)")
	fs.BoolVar(&v.relabel, "relabel", false, "Map node ids of the input onto dense ids")
	fs.StringVar(&v.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	fs.StringVar(&v.logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&v.assignments, "assignments", false, "Include the community of every node in the output")
	fs.IntVar(&v.top, "top", defaults.Top, "Number of largest communities to describe")
	fs.IntVar(&v.maxLevel, "max-level", defaults.Louvain.MaxLevel, "Maximum number of levels")
	fs.IntVar(&v.maxIterations, "max-iterations", defaults.Louvain.MaxIterations, "Maximum local search rounds per level")
	fs.IntVar(&v.concurrency, "concurrency", defaults.Louvain.Concurrency, "Speculative tasks per round")
	fs.Int64Var(&v.seed, "seed", defaults.Louvain.Seed, "Random seed")
	fs.BoolVar(&v.randomNeighbor, "random-neighbor", false, "Move nodes to a random neighbouring community")
	return v
}

// apply overrides cfg with every flag that was set explicitly
func (v *flagValues) apply(fs *flag.FlagSet, cfg *fileConfig) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input = v.input
		case "relabel":
			cfg.Relabel = v.relabel
		case "metrics-addr":
			cfg.MetricsAddr = v.metricsAddr
		case "log-level":
			cfg.LogLevel = v.logLevel
		case "assignments":
			cfg.Assignments = v.assignments
		case "top":
			cfg.Top = v.top
		case "max-level":
			cfg.Louvain.MaxLevel = v.maxLevel
		case "max-iterations":
			cfg.Louvain.MaxIterations = v.maxIterations
		case "concurrency":
			cfg.Louvain.Concurrency = v.concurrency
		case "seed":
			cfg.Louvain.Seed = v.seed
		case "random-neighbor":
			cfg.Louvain.RandomNeighbor = v.randomNeighbor
		}
	})
}

// parseArgs resolves the configuration from args: defaults, then the config file, then flags
func parseArgs(args []string) (fileConfig, error) {
	fs := flag.NewFlagSet("louvain", flag.ContinueOnError)
	v := registerFlags(fs, defaultFileConfig())
	if err := fs.Parse(args); err != nil {
		return fileConfig{}, err
	}

	cfg, err := loadConfig(v.configFile)
	if err != nil {
		return cfg, err
	}
	v.apply(fs, &cfg)

	if cfg.Input == "" && fs.NArg() > 0 {
		cfg.Input = fs.Arg(0)
	}
	if cfg.Input == "" {
		return cfg, fmt.Errorf("no input edge list given")
	}
	if cfg.Top < 0 {
		return cfg, fmt.Errorf("top must be non-negative, got %d", cfg.Top)
	}
	return cfg, cfg.Louvain.Validate()
}
