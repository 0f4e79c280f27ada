package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Base images the build container derives from.
const (
	DefaultAL2Image    = "docker.io/amazonlinux:2"
	DefaultLambdaImage = "docker.io/lambci/lambda:build-provided.al2"
)

// Load reads the optional config file and environment overrides. An
// empty path means the default location under the XDG config dir; a
// missing file there is not an error, only defaults apply.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("container_cmd", "")
	v.SetDefault("rust_version", "stable")
	v.SetDefault("cache_dir", filepath.Join(xdg.CacheHome, "crateship"))
	v.SetDefault("images.al2", DefaultAL2Image)
	v.SetDefault("images.lambda", DefaultLambdaImage)
	v.SetDefault("repo.revision", "main")
	v.SetDefault("clean.max_age", 30*24*time.Hour)

	v.SetEnvPrefix("CRATESHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"container_cmd", "rust_version", "cache_dir"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "crateship"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}
