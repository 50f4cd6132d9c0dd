package engine

import (
	"fmt"
	"time"

	"github.com/FocuswithJustin/Bolder/core/block"
	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/core/visibility"
)

// maxThreshold bounds the length thresholds. The classifier compiles them
// into regexp repetition counts, which Go caps at 1000.
const maxThreshold = 100

// DefaultSweepInterval is the period of the safety-net sweep.
const DefaultSweepInterval = 5 * time.Second

// Config is the static configuration of an engine. It is read once at
// construction; changing it requires a new engine.
type Config struct {
	MinUppercaseLen   int           `yaml:"min_uppercase_len" json:"min_uppercase_len"`
	MinCapitalizedLen int           `yaml:"min_capitalized_len" json:"min_capitalized_len"`
	Terminators       string        `yaml:"terminators" json:"terminators"`
	BlockTags         []string      `yaml:"block_tags" json:"block_tags"`
	ExcludedTags      []string      `yaml:"excluded_tags" json:"excluded_tags"`
	ExcludeSelectors  []string      `yaml:"exclude_selectors" json:"exclude_selectors"`
	MinWordsInBlock   int           `yaml:"min_words_in_block" json:"min_words_in_block"`
	SweepInterval     time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		MinUppercaseLen:   2,
		MinCapitalizedLen: 3,
		Terminators:       ".!?…:;",
		BlockTags:         append([]string(nil), block.DefaultBlockTags...),
		ExcludedTags:      append([]string(nil), visibility.DefaultExcludedTags...),
		SweepInterval:     DefaultSweepInterval,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.MinUppercaseLen < 1 || c.MinUppercaseLen > maxThreshold {
		return errors.NewValidation("min_uppercase_len", fmt.Sprintf("must be between 1 and %d", maxThreshold))
	}
	if c.MinCapitalizedLen < 1 || c.MinCapitalizedLen > maxThreshold {
		return errors.NewValidation("min_capitalized_len", fmt.Sprintf("must be between 1 and %d", maxThreshold))
	}
	if c.Terminators == "" {
		return errors.NewValidation("terminators", "must not be empty")
	}
	if c.MinWordsInBlock < 0 {
		return errors.NewValidation("min_words_in_block", "must not be negative")
	}
	if c.SweepInterval <= 0 {
		return errors.NewValidation("sweep_interval", "must be positive")
	}
	return nil
}
