package config

import "github.com/spf13/pflag"

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"http-addr":     "http.addr",
	"metrics-addr":  "metrics.addr",
	"redis-url":     "redis.url",
	"database-url":  "database.url",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"otlp-endpoint": "tracing.endpoint",
}

// RegisterFlags adds the overridable settings to fs. Defaults shown in help
// come from [Defaults]; only flags set on the command line take effect.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and probe listen address")
	fs.String("redis-url", d.Redis.URL, "Redis URL")
	fs.String("database-url", d.Database.URL, "PostgreSQL URL (empty keeps accounts in memory)")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "log format: json or text")
	fs.String("otlp-endpoint", d.Tracing.Endpoint, "OTLP/HTTP trace endpoint (empty disables export)")
}
