package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ValueRange buckets a line total value for the analysis report.
// A nil Max marks the open-ended top bucket.
type ValueRange struct {
	Label string   `mapstructure:"label"`
	Max   *float64 `mapstructure:"max"`
}

// Policy holds statement rules that operators may tune without a restart.
type Policy struct {
	// DefaultRetentionPercentage applies while previewing a statement that has
	// no deductions configuration. Posting never uses it.
	DefaultRetentionPercentage float64      `mapstructure:"defaultRetentionPercentage"`
	ValueRanges                []ValueRange `mapstructure:"valueRanges"`
	LogLevel                   string       `mapstructure:"logLevel"`
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultRetentionPercentage: 5,
		ValueRanges: []ValueRange{
			{Label: "small", Max: floatPtr(50_000)},
			{Label: "medium", Max: floatPtr(200_000)},
			{Label: "large", Max: floatPtr(500_000)},
			{Label: "xlarge", Max: nil},
		},
	}
}

func floatPtr(v float64) *float64 { return &v }

type PolicyHolder struct {
	current atomic.Value // holds Policy

	mu        sync.Mutex
	listeners []func(Policy)
}

// NewPolicyHolder reads statement.yml from the configured file or the usual
// config paths. A missing file falls back to DefaultPolicy.
func NewPolicyHolder(cfg Config) (*PolicyHolder, error) {
	v := viper.New()

	if cfg.PolicyFile != "" {
		v.SetConfigFile(cfg.PolicyFile)
	} else {
		v.SetConfigName("statement")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/sitebill")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SITEBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("statement.defaultRetentionPercentage", defaults.DefaultRetentionPercentage)
	v.SetDefault("statement.valueRanges", defaults.ValueRanges)

	holder := &PolicyHolder{}
	fileLoaded := true
	if cfg.PolicyFile != "" {
		if _, err := os.Stat(cfg.PolicyFile); errors.Is(err, fs.ErrNotExist) {
			fileLoaded = false
		}
	}
	if fileLoaded {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
			fileLoaded = false
		}
	}

	var policy Policy
	if err := v.UnmarshalKey("statement", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	holder.current.Store(policy)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			var updated Policy
			if err := v.UnmarshalKey("statement", &updated); err != nil {
				log.Printf("[statement-policy] reload failed: %v", err)
				return
			}
			if err := validatePolicy(updated); err != nil {
				log.Printf("[statement-policy] invalid policy ignored: %v", err)
				return
			}
			holder.set(updated)
			log.Printf("[statement-policy] reloaded from %s", e.Name)
		})
		v.WatchConfig()
	}

	return holder, nil
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

// OnChange registers fn to run after every successful reload.
func (h *PolicyHolder) OnChange(fn func(Policy)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *PolicyHolder) set(p Policy) {
	h.current.Store(p)
	h.mu.Lock()
	listeners := append([]func(Policy){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

func validatePolicy(p Policy) error {
	if p.DefaultRetentionPercentage < 0 || p.DefaultRetentionPercentage > 100 {
		return errors.New("statement.defaultRetentionPercentage must be between 0 and 100")
	}
	if len(p.ValueRanges) == 0 {
		return errors.New("statement.valueRanges cannot be empty")
	}
	last := p.ValueRanges[len(p.ValueRanges)-1]
	if last.Max != nil {
		return errors.New("statement.valueRanges must end with an open-ended range")
	}
	prev := 0.0
	for _, r := range p.ValueRanges[:len(p.ValueRanges)-1] {
		if r.Max == nil || *r.Max <= prev {
			return errors.New("statement.valueRanges must be strictly increasing")
		}
		prev = *r.Max
	}
	return nil
}
