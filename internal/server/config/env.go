package config

import "github.com/caarlos0/env/v10"

// EnvPrefix is prepended to every variable name in the Config env tags,
// e.g. GOPHAUTH_SECRET_KEY.
const EnvPrefix = "GOPHAUTH_"

// parseEnv overlays variables that are present in the environment. Unset
// variables leave the current value untouched.
func parseEnv(config *Config) error {
	return env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix})
}
