// Package config registers every setting with its default and loads overrides from
// the TOML file in the config directory and from PLAYENGINE_* environment variables.
package config

import (
	"errors"
	"strings"

	"github.com/playengine/playengine/constant"
	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps a key like autoload.subtitle.mode to its variable suffix.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup loads defaults, environment bindings and the config file, in increasing precedence.
// A missing config file is not an error.
func Setup() error {
	viper.SetFs(filesystem.API())
	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	viper.SetTypeByDefaultValue(true)

	for _, name := range EnvExposed {
		viper.MustBindEnv(name)
	}
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}
