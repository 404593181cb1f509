package config

import (
	"strings"

	"github.com/MrEthical07/identity"
	"github.com/samber/oops"
)

// Engine converts the settings into an engine configuration and validates
// it.
func (c Config) Engine() (identity.Config, error) {
	out := identity.DefaultConfig()

	out.Token.Secret = []byte(c.Token.Secret)
	out.Token.SigningMethod = strings.ToLower(strings.TrimSpace(c.Token.Algorithm))
	out.Token.TTL = c.Token.TTL
	out.Token.Issuer = c.Token.Issuer
	out.Token.Audience = c.Token.Audience

	out.Password.Algorithm = strings.ToLower(strings.TrimSpace(c.Password.Algorithm))
	out.Password.BcryptCost = c.Password.BcryptCost
	out.Password.MinLength = c.Password.MinLength
	out.Password.PoolSize = c.Password.PoolSize

	out.RateLimit.Requests = c.RateLimit.Requests
	out.RateLimit.Window = c.RateLimit.Window
	out.RateLimit.FailOpen = c.RateLimit.FailOpen

	out.Account.DefaultRole = identity.Role(strings.ToLower(strings.TrimSpace(c.Account.DefaultRole)))
	out.Account.AllowAdminSignup = c.Account.AllowAdminSignup
	out.Account.AutoLogin = c.Account.AutoLogin

	switch c.Audit.Sink {
	case "none", "":
		out.Audit.Enabled = false
	case "log", "stdout":
		out.Audit.Enabled = true
	default:
		return identity.Config{}, oops.Code("CONFIG_INVALID").With("audit.sink", c.Audit.Sink).
			Errorf("audit sink must be log, stdout or none")
	}

	if err := out.Validate(); err != nil {
		return identity.Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return out, nil
}
