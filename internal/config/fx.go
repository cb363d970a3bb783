package config

import "go.uber.org/fx"

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(ProvidePayoutPolicyHolder),
)

// ProvidePayoutPolicyHolder loads the payout policy using the configured search path.
func ProvidePayoutPolicyHolder(cfg Config) (*PayoutPolicyHolder, error) {
	return NewPayoutPolicyHolder(cfg.PayoutPolicyPath)
}
