package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PortfolioConfig carries the lending policy knobs that operations tunes
// without a redeploy: accepted loan terms and the delinquency grace.
type PortfolioConfig struct {
	// AllowedTermWeeks lists the loan terms origination accepts.
	AllowedTermWeeks []int `mapstructure:"allowedTermWeeks"`
	// DefaultRate is the flat rate applied when a request omits one.
	DefaultRate float64 `mapstructure:"defaultRate"`
	// FirstWeekGrace exempts a loan from delinquency during the week it
	// was signed. Off by default: classification is strictly week-scoped.
	FirstWeekGrace bool `mapstructure:"firstWeekGrace"`
}

func DefaultPortfolioConfig() PortfolioConfig {
	return PortfolioConfig{
		AllowedTermWeeks: []int{10, 12, 14, 16, 20},
		DefaultRate:      0.40,
		FirstWeekGrace:   false,
	}
}

// PortfolioConfigHolder exposes the current policy and hot-reloads it when
// the backing file changes.
type PortfolioConfigHolder struct {
	current atomic.Value // holds PortfolioConfig
}

func NewPortfolioConfigHolder() (*PortfolioConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("portfolio")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/credia/config") // Volume-mounted config
	v.AddConfigPath("/etc/credia")            // System config
	v.AddConfigPath(".")                      // Current directory (dev mode)

	v.SetEnvPrefix("CREDIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPortfolioConfig()
		v.SetDefault("portfolio.allowedTermWeeks", defaults.AllowedTermWeeks)
		v.SetDefault("portfolio.defaultRate", defaults.DefaultRate)
		v.SetDefault("portfolio.firstWeekGrace", defaults.FirstWeekGrace)
	}

	var cfg PortfolioConfig
	if err := v.UnmarshalKey("portfolio", &cfg); err != nil {
		return nil, err
	}
	if err := validatePortfolioConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PortfolioConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PortfolioConfig
		if err := v.UnmarshalKey("portfolio", &updated); err != nil {
			log.Printf("[portfolio-config] reload failed: %v", err)
			return
		}
		if err := validatePortfolioConfig(updated); err != nil {
			log.Printf("[portfolio-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[portfolio-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPortfolioConfigHolder wraps a fixed policy with no file watching.
// Tests and one-shot tooling use it in place of the viper-backed holder.
func NewStaticPortfolioConfigHolder(cfg PortfolioConfig) (*PortfolioConfigHolder, error) {
	if err := validatePortfolioConfig(cfg); err != nil {
		return nil, err
	}
	holder := &PortfolioConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *PortfolioConfigHolder) Get() PortfolioConfig {
	return h.current.Load().(PortfolioConfig)
}

func validatePortfolioConfig(cfg PortfolioConfig) error {
	if len(cfg.AllowedTermWeeks) == 0 {
		return errors.New("portfolio.allowedTermWeeks cannot be empty")
	}
	for _, weeks := range cfg.AllowedTermWeeks {
		if weeks <= 0 {
			return errors.New("portfolio.allowedTermWeeks must be positive")
		}
	}
	if cfg.DefaultRate < 0 {
		return errors.New("portfolio.defaultRate cannot be negative")
	}
	return nil
}
