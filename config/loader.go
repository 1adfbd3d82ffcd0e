package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/kbukum/transcriber/logger"
)

// LoaderConfig names files explicitly instead of searching for them.
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
}

// LoaderOption adjusts a LoadConfig call.
type LoaderOption func(*LoaderConfig)

func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Resolver finds the config.yml and .env for a process on Fs.
type Resolver struct {
	Fs afero.Fs
}

// ResolvedFiles are the files a load will read. Empty means none found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles keeps explicit paths and searches for the rest. For
// "transcriber-api" the search covers ./cmd/transcriber-api/, ./cmd/api/,
// ./config/, the working directory and /etc/transcriber/ in that order.
func (r *Resolver) ResolveFiles(processName string, lc LoaderConfig) ResolvedFiles {
	out := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if out.ConfigFile == "" {
		out.ConfigFile = r.first(searchDirs(processName, "/etc/transcriber"), "config.yml")
	}
	if out.EnvFile == "" {
		out.EnvFile = r.first(searchDirs(processName), ".env."+processName, ".env")
	}
	return out
}

func (r *Resolver) first(dirs []string, names ...string) string {
	for _, name := range names {
		for _, dir := range dirs {
			p := dir + "/" + name
			if ok, _ := afero.Exists(r.Fs, p); ok {
				return p
			}
		}
	}
	return ""
}

func searchDirs(processName string, extra ...string) []string {
	dirs := []string{"./cmd/" + processName}
	if i := strings.LastIndex(processName, "-"); i >= 0 {
		dirs = append(dirs, "./cmd/"+processName[i+1:])
	}
	dirs = append(dirs, "../cmd/"+processName, "./config", "../config", ".", "..")
	return append(dirs, extra...)
}

// LoadConfig fills cfg for processName. Values come from config.yml, then
// the environment. A .env file only supplies variables the environment
// does not already set. Every mapstructure key of cfg can be set from the
// environment under its upper-case, underscore path: cache.reaper_schedule
// is CACHE_REAPER_SCHEDULE, redis.addr is REDIS_ADDR.
func LoadConfig(processName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	fs := afero.NewOsFs()
	files := (&Resolver{Fs: fs}).ResolveFiles(processName, lc)
	return load(fs, files, cfg)
}

func load(fs afero.Fs, files ResolvedFiles, cfg interface{}) error {
	v := viper.New()
	v.SetFs(fs)

	if files.ConfigFile != "" {
		if ok, _ := afero.Exists(fs, files.ConfigFile); ok {
			v.SetConfigFile(files.ConfigFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
			}
		}
	}
	if files.EnvFile != "" {
		if err := loadEnvFile(fs, files.EnvFile); err != nil {
			logger.Warn("ignoring .env file", logger.Fields(logger.FieldPath, files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys(reflect.TypeOf(cfg), "") {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// loadEnvFile exports the file's variables that are not already set.
// A missing file is not an error.
func loadEnvFile(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return err
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); !set {
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// configKeys lists the dotted mapstructure keys of every leaf field of t.
// Squashed embedded structs contribute their keys without a prefix.
func configKeys(t reflect.Type, prefix string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if strings.Contains(opts, "squash") {
			keys = append(keys, configKeys(ft, prefix)...)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := prefix + name
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			keys = append(keys, configKeys(ft, key+".")...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
