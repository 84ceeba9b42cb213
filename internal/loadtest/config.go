// internal/loadtest/config.go
package loadtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// Payload kinds
const (
	PayloadNone PayloadKind = "none"
	PayloadRaw  PayloadKind = "raw"
	PayloadJSON PayloadKind = "json"
)

// PayloadKind selects which arm of a Payload is populated.
type PayloadKind string

// Payload is a request body: absent, opaque bytes, or a JSON value.
type Payload struct {
	Kind PayloadKind     `json:"kind"`
	Raw  []byte          `json:"raw,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
}

// Bytes returns the body to send, nil when the payload is absent.
func (p *Payload) Bytes() ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	switch p.Kind {
	case PayloadNone, "":
		return nil, nil
	case PayloadRaw:
		return p.Raw, nil
	case PayloadJSON:
		return p.JSON, nil
	default:
		return nil, fmt.Errorf("loadtest: unknown payload kind %q", p.Kind)
	}
}

// ContentType returns the content type implied by the payload kind,
// or "" when the caller should not set one.
func (p *Payload) ContentType() string {
	if p != nil && p.Kind == PayloadJSON {
		return "application/json"
	}
	return ""
}

// LoadTestConfig specifies one run. It is never mutated once a run starts.
type LoadTestConfig struct {
	Name                 string            `json:"name"`
	TargetURL            string            `json:"target_url"`
	Method               string            `json:"method"`
	Headers              map[string]string `json:"headers,omitempty"`
	Body                 *Payload          `json:"body,omitempty"`
	DurationSeconds      int               `json:"duration_seconds"`
	ConcurrentUsers      int               `json:"concurrent_users"`
	RampUpSeconds        int               `json:"ramp_up_seconds,omitempty"`
	ThinkTimeMillis      int               `json:"think_time_ms,omitempty"`
	MaxRequestsPerSecond int               `json:"max_requests_per_second,omitempty"`
}

// ApplyDefaults fills in default values.
func (c *LoadTestConfig) ApplyDefaults() {
	if c.Method == "" {
		c.Method = "GET"
	}
	if c.Name == "" {
		c.Name = c.TargetURL
	}
}

// Validate checks configuration.
func (c *LoadTestConfig) Validate() error {
	if c.TargetURL == "" {
		return errors.New("loadtest: target url is required")
	}
	u, err := url.Parse(c.TargetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("loadtest: invalid target url %q", c.TargetURL)
	}
	if c.DurationSeconds <= 0 {
		return errors.New("loadtest: duration must be positive")
	}
	if c.ConcurrentUsers <= 0 {
		return errors.New("loadtest: concurrent users must be positive")
	}
	if c.RampUpSeconds < 0 {
		return errors.New("loadtest: ramp-up time cannot be negative")
	}
	if c.ThinkTimeMillis < 0 {
		return errors.New("loadtest: think time cannot be negative")
	}
	if c.MaxRequestsPerSecond < 0 {
		return errors.New("loadtest: request rate cap cannot be negative")
	}
	if c.Body != nil && c.Body.Kind == PayloadJSON && !json.Valid(c.Body.JSON) {
		return errors.New("loadtest: body is not valid JSON")
	}
	return nil
}

// StressTestConfig extends a load test with an escalation schedule.
// Each step runs for UserIncrementIntervalSeconds at the current user count,
// then the count grows by UserIncrementStep until MaxUsers or until the
// step's failure rate exceeds FailureThresholdPercent.
type StressTestConfig struct {
	LoadTestConfig
	MaxUsers                     int     `json:"max_users"`
	UserIncrementStep            int     `json:"user_increment_step"`
	UserIncrementIntervalSeconds int     `json:"user_increment_interval_seconds"`
	FailureThresholdPercent      float64 `json:"failure_threshold_percent"`
}

// Validate checks configuration. The base duration is ignored for stress
// tests; each step uses the increment interval instead.
func (c *StressTestConfig) Validate() error {
	if c.UserIncrementIntervalSeconds <= 0 {
		return errors.New("loadtest: user increment interval must be positive")
	}
	base := c.LoadTestConfig
	base.DurationSeconds = c.UserIncrementIntervalSeconds
	if err := base.Validate(); err != nil {
		return err
	}
	if c.MaxUsers < c.ConcurrentUsers {
		return errors.New("loadtest: max users cannot be below the initial user count")
	}
	if c.UserIncrementStep <= 0 {
		return errors.New("loadtest: user increment step must be positive")
	}
	if c.FailureThresholdPercent < 0 {
		return errors.New("loadtest: failure threshold cannot be negative")
	}
	return nil
}
