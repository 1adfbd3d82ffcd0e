// Package config loads process configuration with viper.
//
// Each process embeds ServiceConfig in its own config struct and calls
// LoadConfig once at startup:
//
//	var cfg service.Config
//	if err := config.LoadConfig("transcriber-api", &cfg); err != nil { ... }
//
// Values from config.yml are overridden by the environment. Every key of
// the config struct is bound to its upper-case underscore path, e.g.
// REDIS_ADDR or CACHE_RETENTION_SECONDS. A .env file, parsed with
// godotenv, only fills variables the environment leaves unset. File
// lookup goes through afero so tests can use an in-memory filesystem.
package config
