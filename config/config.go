// Package config loads the server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server Server `mapstructure:"server"`
	Robot  Robot  `mapstructure:"robot"`
}

type Server struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
	Debug     bool   `mapstructure:"debug"`
}

type Robot struct {
	// ConfigDir holds the board definition JSON files.
	ConfigDir string `mapstructure:"config_dir"`
	// KeymapFile optionally overrides the default key bindings.
	KeymapFile string `mapstructure:"keymap_file"`
}

// Load reads config.yaml from path. Environment variables override file
// values. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_dir", "./static")
	v.SetDefault("server.debug", false)
	v.SetDefault("robot.config_dir", "./configs")
	v.SetDefault("robot.keymap_file", "")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
