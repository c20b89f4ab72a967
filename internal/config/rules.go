package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/engine"
	"github.com/pefman/quantum-battleships/internal/game"
)

// Sampler kinds accepted in the rules file.
const (
	SamplerSeeded   = "seeded"
	SamplerParallel = "parallel"
)

// EnvPrefix prefixes environment overrides of rule keys, e.g. QB_SAMPLES.
const EnvPrefix = "QB"

// Rules are the game rules plus the measurement backend choice.
type Rules struct {
	game.Config `mapstructure:",squash"`
	Sampler     string `mapstructure:"sampler"`
	Workers     int    `mapstructure:"workers"`
	// Seed fixes the sampler seed; 0 draws a fresh seed per session.
	Seed int64 `mapstructure:"seed"`
}

// DefaultRules are the standard rules with a freshly seeded sequential sampler.
func DefaultRules() Rules {
	return Rules{Config: game.DefaultConfig(), Sampler: SamplerSeeded, Workers: 4}
}

// Validate checks the rules.
func (r Rules) Validate() error {
	if err := r.Config.Validate(); err != nil {
		return err
	}
	switch r.Sampler {
	case SamplerSeeded:
	case SamplerParallel:
		if r.Workers < 1 {
			return fmt.Errorf("parallel sampler needs at least one worker, got %d", r.Workers)
		}
	default:
		return fmt.Errorf("unknown sampler %q", r.Sampler)
	}
	return nil
}

// NewSampler builds the configured sampler for one session.
func (r Rules) NewSampler() (engine.Sampler, error) {
	seed := r.Seed
	if seed == 0 {
		s, err := engine.NewSeed()
		if err != nil {
			return nil, err
		}
		seed = s
	}
	if r.Sampler == SamplerParallel {
		return engine.NewParallelSampler(seed, r.Workers), nil
	}
	return engine.NewSeededSampler(seed), nil
}

// RulesStore holds the current rules. With a rules file the store follows
// edits to it; sessions already running keep the rules they started with.
type RulesStore struct {
	mu    sync.RWMutex
	v     *viper.Viper
	rules Rules
	log   *zap.Logger
}

// LoadRules reads defaults, the optional file at path and QB_* overrides.
func LoadRules(path string, log *zap.Logger) (*RulesStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := viper.New()
	def := DefaultRules()
	v.SetDefault("samples", def.Samples)
	v.SetDefault("board_size", def.BoardSize)
	v.SetDefault("ships_per_player", def.ShipsPerPlayer)
	v.SetDefault("destroy_threshold", def.DestroyThreshold)
	v.SetDefault("sampler", def.Sampler)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("seed", def.Seed)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &RulesStore{v: v, log: log}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read rules file %s: %w", path, err)
		}
	}
	rules, err := s.decode()
	if err != nil {
		return nil, err
	}
	s.rules = rules

	if path != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := s.apply(); err != nil {
				log.Warn("rules reload rejected", zap.String("file", e.Name), zap.Error(err))
				return
			}
			log.Info("rules reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}
	return s, nil
}

// Current returns the rules new sessions should use.
func (s *RulesStore) Current() Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// apply swaps in the rules viper currently holds if they validate.
func (s *RulesStore) apply() error {
	rules, err := s.decode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	return nil
}

func (s *RulesStore) decode() (Rules, error) {
	var rules Rules
	if err := s.v.Unmarshal(&rules); err != nil {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	rules.Sampler = strings.ToLower(strings.TrimSpace(rules.Sampler))
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules: %w", err)
	}
	return rules, nil
}
