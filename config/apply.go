package config

import (
	"github.com/storekit/backstop/breaker"
	"github.com/storekit/backstop/queue"
)

// RegistryConfig converts the breaker section into a registry config.
// Alert dispatch, logging and hooks are wired by the caller.
func (c BreakerConfig) RegistryConfig() breaker.Config {
	return breaker.Config{
		FailureThreshold: c.FailureThreshold,
		Cooldown:         c.CooldownDuration(),
	}
}

// ManagerConfig converts the queue section into a manager config.
// Scheduler, logging and hooks are wired by the caller.
func (c QueueConfig) ManagerConfig() queue.Config {
	cfg := queue.Config{
		Defaults: queue.ServiceConfig{
			MaxConcurrent: c.Defaults.MaxConcurrent,
			MaxQueueSize:  c.Defaults.MaxQueueSize,
			QueueTimeout:  c.Defaults.QueueTimeoutDuration(),
		},
		HealthyDepthPercent: c.HealthyDepthPercent,
	}

	if len(c.Overrides) > 0 {
		cfg.Overrides = make(map[string]queue.ServiceConfig, len(c.Overrides))
		for service, o := range c.Overrides {
			cfg.Overrides[service] = queue.ServiceConfig{
				MaxConcurrent: o.MaxConcurrent,
				MaxQueueSize:  o.MaxQueueSize,
				QueueTimeout:  o.QueueTimeoutDuration(),
			}
		}
	}

	return cfg
}
