package logger

import (
	"context"

	"github.com/smallbiznis/sitebill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type result struct {
	fx.Out

	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// NewFromConfig creates a zap logger from Config and replaces globals.
func NewFromConfig(appCfg config.Config) (result, error) {
	log, level, err := New(appCfg.Logger.Level)
	if err != nil {
		return result{}, err
	}
	return result{Logger: log, Level: level}, nil
}

func registerHooks(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			_ = log.Sync()
			return nil
		},
	})
}

func watchPolicyLevel(policy *config.PolicyHolder, level zap.AtomicLevel, log *zap.Logger) {
	policy.OnChange(func(p config.Policy) {
		if SetLevel(level, p.LogLevel) {
			log.Info("log level changed", zap.String("level", p.LogLevel))
		}
	})
}

// Module wires the global zap logger for the application.
var Module = fx.Module("logger",
	fx.Provide(
		NewFromConfig,
	),
	fx.Invoke(registerHooks),
	fx.Invoke(watchPolicyLevel),
)
