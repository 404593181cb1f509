package config

import "github.com/samber/oops"

// Validate checks the service-level settings. Engine settings are checked
// by [Config.Engine].
func (c Config) Validate() error {
	fail := oops.Code("CONFIG_INVALID")
	switch {
	case c.HTTP.Addr == "":
		return fail.Errorf("http.addr is required")
	case c.HTTP.MaxBodyBytes <= 0:
		return fail.With("http.max_body_bytes", c.HTTP.MaxBodyBytes).Errorf("http.max_body_bytes must be > 0")
	case c.Redis.URL == "":
		return fail.Errorf("redis.url is required")
	case c.Log.Format != "json" && c.Log.Format != "text":
		return fail.With("log.format", c.Log.Format).Errorf("log.format must be json or text")
	case c.Metrics.Enabled && c.Metrics.Addr == "":
		return fail.Errorf("metrics.addr is required when metrics are enabled")
	case c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1:
		return fail.With("tracing.sample_ratio", c.Tracing.SampleRatio).Errorf("tracing.sample_ratio must be within [0, 1]")
	case c.StartupTimeout <= 0:
		return fail.Errorf("startup_timeout must be > 0")
	}
	return nil
}
