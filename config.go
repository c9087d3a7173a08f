package fuse

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

// PolicyConfig is the declarative form of a policy's pattern settings.
// It unmarshals from JSON (or YAML, via the parallel tags) so it can be
// embedded in an application's own config struct; [PolicyConfig.Options]
// turns it into functional options for [NewPolicy].
//
// All fields are pointers: a nil field means the pattern is absent, which
// is distinct from a zero value.
type PolicyConfig struct {
	// CircuitBreaker enables the circuit breaker pattern.
	CircuitBreaker *CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Retry enables the retry pattern.
	Retry *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// Timeout is a [time.ParseDuration] string, e.g. "2s".
	Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Hedge is the hedged-request delay as a duration string, e.g. "200ms".
	Hedge *string `json:"hedge,omitempty" yaml:"hedge,omitempty"`
	// RateLimit is the allowed calls per second.
	RateLimit *float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	// Bulkhead is the concurrent-call cap.
	Bulkhead *int `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
}

// CircuitBreakerConfig holds the breaker's declarative settings. The
// failure classifier is a predicate and has no config representation;
// pass [FailureCondition] to [GetPolicy] or [NewPolicy] alongside the
// loaded config.
type CircuitBreakerConfig struct {
	// RecoveryTimeout is how long the breaker stays open before admitting
	// a trial call, as a duration string, e.g. "30s".
	RecoveryTimeout *string `json:"recovery_timeout,omitempty" yaml:"recovery_timeout,omitempty"`
	// FailureThreshold is the consecutive classified failures that open
	// the breaker.
	FailureThreshold *int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
}

// RetryConfig holds the retry pattern's declarative settings.
type RetryConfig struct {
	// Backoff names the strategy: "constant", "linear", "exponential",
	// or "exponential_jitter". Required.
	Backoff *string `json:"backoff,omitempty" yaml:"backoff,omitempty"`
	// BaseDelay seeds the backoff as a duration string, e.g. "100ms".
	// Required.
	BaseDelay *string `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
	// MaxDelay caps the computed backoff delay.
	MaxDelay *string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	// MaxAttempts bounds the total attempts. Required.
	MaxAttempts *int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

type configFile struct {
	Policies map[string]PolicyConfig `json:"policies"`
}

// LoadConfig parses the JSON file at path and returns a [Registry] holding
// the policy configurations it declares. Policies are instantiated lazily
// by [GetPolicy], which is where type parameters and code-level options
// (hooks, classifiers, fallbacks) come in. Every declared policy is
// validated here, so a malformed file fails at load time rather than on
// first use.
func LoadConfig(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fuse: read config: %w", err)
	}

	var file configFile
	if err = json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("fuse: parse config: %w", err)
	}

	for name, pc := range file.Policies {
		if _, buildErr := BuildOptions(&pc); buildErr != nil {
			return nil, fmt.Errorf("fuse: policy %q: %w", name, buildErr)
		}
	}

	reg := NewRegistry()
	reg.mu.Lock()
	reg.configs = file.Policies
	reg.mu.Unlock()

	return reg, nil
}

// BuildOptions converts pc into option values for [NewPolicy]. Use it
// directly when [PolicyConfig] is embedded in an application config struct
// and [LoadConfig] is not in the picture.
func BuildOptions(pc *PolicyConfig) ([]any, error) {
	var opts []any

	if pc.Timeout != nil {
		d, err := time.ParseDuration(*pc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}

		opts = append(opts, WithTimeout(d))
	}

	if pc.CircuitBreaker != nil {
		cbOpts, err := pc.CircuitBreaker.options()
		if err != nil {
			return nil, err
		}

		opts = append(opts, WithCircuitBreaker(cbOpts...))
	}

	if pc.Retry != nil {
		retryOpt, err := pc.Retry.option()
		if err != nil {
			return nil, err
		}

		opts = append(opts, retryOpt)
	}

	if pc.RateLimit != nil {
		opts = append(opts, WithRateLimit(*pc.RateLimit))
	}

	if pc.Bulkhead != nil {
		opts = append(opts, WithBulkhead(*pc.Bulkhead))
	}

	if pc.Hedge != nil {
		d, err := time.ParseDuration(*pc.Hedge)
		if err != nil {
			return nil, fmt.Errorf("hedge: %w", err)
		}

		opts = append(opts, WithHedge(d))
	}

	return opts, nil
}

func (cc *CircuitBreakerConfig) options() ([]CircuitBreakerOption, error) {
	var cbOpts []CircuitBreakerOption

	if cc.FailureThreshold != nil {
		cbOpts = append(cbOpts, FailureThreshold(*cc.FailureThreshold))
	}

	if cc.RecoveryTimeout != nil {
		d, err := time.ParseDuration(*cc.RecoveryTimeout)
		if err != nil {
			return nil, fmt.Errorf("circuit_breaker.recovery_timeout: %w", err)
		}

		cbOpts = append(cbOpts, RecoveryTimeout(d))
	}

	return cbOpts, nil
}

func (rc *RetryConfig) option() (any, error) {
	strategy, err := parseBackoffStrategy(rc.Backoff, rc.BaseDelay)
	if err != nil {
		return nil, fmt.Errorf("retry: %w", err)
	}

	var retryOpts []RetryOption

	if rc.MaxDelay != nil {
		maxDel, maxDelErr := time.ParseDuration(*rc.MaxDelay)
		if maxDelErr != nil {
			return nil, fmt.Errorf("retry.max_delay: %w", maxDelErr)
		}

		retryOpts = append(retryOpts, MaxDelay(maxDel))
	}

	var maxAttempts int
	if rc.MaxAttempts != nil {
		maxAttempts = *rc.MaxAttempts
	}

	return WithRetry(maxAttempts, strategy, retryOpts...), nil
}

// parseBackoffStrategy resolves a strategy name and base delay into a
// [BackoffStrategy]. Both fields are required.
//
//nolint:ireturn // strategies are interface values
func parseBackoffStrategy(name, baseDelay *string) (BackoffStrategy, error) {
	const errCtx = "parsing backoff strategy"

	if name == nil {
		return nil, fmt.Errorf("%s: backoff is required", errCtx)
	}

	if baseDelay == nil {
		return nil, fmt.Errorf("%s: base_delay is required", errCtx)
	}

	base, err := time.ParseDuration(*baseDelay)
	if err != nil {
		return nil, fmt.Errorf("base_delay: %w", err)
	}

	switch *name {
	case "constant":
		return ConstantBackoff(base), nil
	case "linear":
		return LinearBackoff(base), nil
	case "exponential":
		return ExponentialBackoff(base), nil
	case "exponential_jitter":
		return ExponentialJitterBackoff(base), nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy: %q", *name)
	}
}

// GetPolicy builds a typed [Policy] from the configuration stored under
// name in a [LoadConfig]-produced registry. Names absent from the config
// yield a bare policy carrying only opts. User options are appended after
// config-derived ones, so they win on conflict; this is where hooks,
// clocks, classifiers, and fallbacks get attached.
func GetPolicy[T any](reg *Registry, name string, opts ...any) *Policy[T] {
	reg.mu.Lock()
	pc, ok := reg.configs[name]
	reg.mu.Unlock()

	allOpts := []any{WithRegistry(reg)}

	if ok {
		configOpts, err := BuildOptions(&pc)
		if err != nil {
			// LoadConfig validated every policy, so an invalid entry here
			// means the registry's configs were tampered with after load.
			panic(fmt.Sprintf("fuse: policy %q: %v", name, err))
		}

		allOpts = append(allOpts, configOpts...)
	}

	allOpts = append(allOpts, opts...)

	return NewPolicy[T](name, allOpts...)
}
