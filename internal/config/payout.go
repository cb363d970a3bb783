package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PayoutPolicy tunes the payout engine without a redeploy.
type PayoutPolicy struct {
	Workers   int           `mapstructure:"workers"`
	LockTTL   time.Duration `mapstructure:"lockTTL"`
	LockWait  time.Duration `mapstructure:"lockWait"`
	FeedSheet string        `mapstructure:"feedSheet"`
}

func DefaultPayoutPolicy() PayoutPolicy {
	return PayoutPolicy{
		Workers:   8,
		LockTTL:   30 * time.Second,
		LockWait:  10 * time.Second,
		FeedSheet: "",
	}
}

type PayoutPolicyHolder struct {
	current atomic.Value // holds PayoutPolicy
}

// NewStaticPayoutPolicyHolder pins a policy; used by tools and tests.
func NewStaticPayoutPolicyHolder(policy PayoutPolicy) *PayoutPolicyHolder {
	holder := &PayoutPolicyHolder{}
	holder.current.Store(policy.withDefaults())
	return holder
}

func NewPayoutPolicyHolder(path string) (*PayoutPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("payout")
	v.SetConfigType("yml")
	if path = strings.TrimSpace(path); path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("/etc/partnerpayout")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARTNERPAYOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPayoutPolicy()
	v.SetDefault("payout.workers", defaults.Workers)
	v.SetDefault("payout.lockTTL", defaults.LockTTL)
	v.SetDefault("payout.lockWait", defaults.LockWait)
	v.SetDefault("payout.feedSheet", defaults.FeedSheet)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var policy PayoutPolicy
	if err := v.UnmarshalKey("payout", &policy); err != nil {
		return nil, err
	}
	if err := validatePayoutPolicy(policy); err != nil {
		return nil, err
	}

	holder := &PayoutPolicyHolder{}
	holder.current.Store(policy.withDefaults())

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated PayoutPolicy
			if err := v.UnmarshalKey("payout", &updated); err != nil {
				log.Printf("[payout-policy] reload failed: %v", err)
				return
			}
			if err := validatePayoutPolicy(updated); err != nil {
				log.Printf("[payout-policy] invalid policy ignored: %v", err)
				return
			}
			holder.current.Store(updated.withDefaults())
			log.Printf("[payout-policy] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *PayoutPolicyHolder) Get() PayoutPolicy {
	if h == nil {
		return DefaultPayoutPolicy()
	}
	policy, ok := h.current.Load().(PayoutPolicy)
	if !ok {
		return DefaultPayoutPolicy()
	}
	return policy
}

func (p PayoutPolicy) withDefaults() PayoutPolicy {
	defaults := DefaultPayoutPolicy()
	if p.Workers <= 0 {
		p.Workers = defaults.Workers
	}
	if p.LockTTL <= 0 {
		p.LockTTL = defaults.LockTTL
	}
	if p.LockWait <= 0 {
		p.LockWait = defaults.LockWait
	}
	return p
}

func validatePayoutPolicy(p PayoutPolicy) error {
	if p.Workers < 0 {
		return errors.New("payout.workers cannot be negative")
	}
	if p.Workers > 256 {
		return errors.New("payout.workers cannot exceed 256")
	}
	if p.LockTTL < 0 || p.LockWait < 0 {
		return errors.New("payout lock durations cannot be negative")
	}
	return nil
}
