package louvain

import (
	"fmt"
	"runtime"

	"github.com/dd0wney/cluso-louvain/pkg/parallel"
	"github.com/dd0wney/cluso-louvain/pkg/validation"
)

// Config holds the invocation parameters of a clustering run
type Config struct {
	// MaxLevel caps the number of coarsening levels; 0 returns the identity mapping
	MaxLevel int `yaml:"max_level" json:"max_level"`
	// MaxIterations caps the local search rounds per level
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
	// Concurrency is the number of speculative tasks per round
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"min=1"`
	// RandomNeighbor moves nodes to a random neighbouring community
	RandomNeighbor bool `yaml:"random_neighbor" json:"random_neighbor"`
	// Seed makes runs with Concurrency > 1 reproducible
	Seed int64 `yaml:"seed" json:"seed"`
	// InitialCommunities optionally seeds level 0 with a partition of the input nodes
	InitialCommunities []uint64 `yaml:"initial_communities,omitempty" json:"initial_communities,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxLevel:      10,
		MaxIterations: 10,
		Concurrency:   runtime.GOMAXPROCS(0),
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	err := validation.NewConfigValidator("louvain.Config").
		Struct(&c).
		NonNegative("MaxLevel", c.MaxLevel).
		NonNegative("MaxIterations", c.MaxIterations).
		MaxInt("Concurrency", c.Concurrency, parallel.MaxWorkers).
		When(len(c.InitialCommunities) > 0, func(cv *validation.ConfigValidator) {
			cv.Positive("MaxLevel", c.MaxLevel)
		}).
		Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
