package config

import "time"

type ImageConfig struct {
	AL2    string `mapstructure:"al2"`
	Lambda string `mapstructure:"lambda"`
}

type RepoConfig struct {
	URL      string `mapstructure:"url"`
	Revision string `mapstructure:"revision"`
}

type CleanConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
}

type AppConfig struct {
	ContainerCmd string      `mapstructure:"container_cmd"`
	RustVersion  string      `mapstructure:"rust_version"`
	CacheDir     string      `mapstructure:"cache_dir"`
	Images       ImageConfig `mapstructure:"images"`
	Repo         RepoConfig  `mapstructure:"repo"`
	Clean        CleanConfig `mapstructure:"clean"`
}
