// config/load.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "VTOLAI"

// setDefaults registers every Autopilot setting with v so that values
// missing from the file and environment fall back to Default().
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("surface", d.Surface)
	for _, f := range Fields() {
		v.SetDefault(f.String(), d.Get(f))
	}
	v.SetDefault("poweredSteering", d.PoweredSteering)
	v.SetDefault("broadsideAttack", d.BroadsideAttack)
	v.SetDefault("broadsideDirection", string(d.BroadsideDirection))
	v.SetDefault("terrainAlertFrequency", d.TerrainAlertFrequency)
	v.SetDefault("maneuverRCS", d.ManeuverRCS)
	v.SetDefault("extendedRange", d.ExtendedRange)
	v.SetDefault("pathCacheSize", d.PathCacheSize)
	v.SetDefault("pathCacheTicks", d.PathCacheTicks)
}

// Load reads an Autopilot configuration from the file at path (JSON,
// YAML, or TOML, by extension). Settings may be overridden by
// environment variables such as VTOLAI_MAXSPEED. An empty path uses the
// defaults and environment only.
func Load(path string) (*Autopilot, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var c Autopilot
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
