package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the source root.
const DefaultFile = "gamesetup.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GAMESETUP_"

type Config struct {
	SDLVersion string            `yaml:"sdl_version"`
	BaseURL    string            `yaml:"base_url"`
	ExternDir  string            `yaml:"extern_dir"`
	CacheDir   string            `yaml:"cache_dir"`
	Marker     string            `yaml:"marker"`
	CMake      string            `yaml:"cmake"`
	HdiUtil    string            `yaml:"hdiutil"`
	Defines    map[string]string `yaml:"defines"`
	LogFile    string            `yaml:"log_file"`
	Verbose    bool              `yaml:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		SDLVersion: "2.0.14",
		BaseURL:    "http://libsdl.org/release",
		ExternDir:  "extern",
		CacheDir:   "cache",
		Marker:     "src/Enemies/Enemy_WorkerBee.c",
		CMake:      "cmake",
		HdiUtil:    "hdiutil",
	}
}

// LoadFrom reads a YAML config file over the defaults. A missing file
// yields the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.SDLVersion == "" {
		c.SDLVersion = def.SDLVersion
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.ExternDir == "" {
		c.ExternDir = def.ExternDir
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.Marker == "" {
		c.Marker = def.Marker
	}
	if c.CMake == "" {
		c.CMake = def.CMake
	}
	if c.HdiUtil == "" {
		c.HdiUtil = def.HdiUtil
	}
}

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from GAMESETUP_* variables. Variables from
// dotenvPath are used when the process environment does not set them;
// a missing dotenv file is ignored.
func (c *Config) ApplyEnv(dotenvPath string, lookup LookupFunc) error {
	fileVars := map[string]string{}
	if dotenvPath != "" {
		vars, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		if vars != nil {
			fileVars = vars
		}
	}
	get := func(name string) (string, bool) {
		key := EnvPrefix + name
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	for name, field := range map[string]*string{
		"SDL_VERSION": &c.SDLVersion,
		"BASE_URL":    &c.BaseURL,
		"EXTERN_DIR":  &c.ExternDir,
		"CACHE_DIR":   &c.CacheDir,
		"MARKER":      &c.Marker,
		"CMAKE":       &c.CMake,
		"HDIUTIL":     &c.HdiUtil,
		"LOG_FILE":    &c.LogFile,
	} {
		if v, ok := get(name); ok && v != "" {
			*field = v
		}
	}
	if v, ok := get("VERBOSE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sVERBOSE: %w", EnvPrefix, err)
		}
		c.Verbose = b
	}
	return nil
}

// Validate checks the fields every run depends on.
func (c *Config) Validate() error {
	if !semver.IsValid("v" + c.SDLVersion) {
		return fmt.Errorf("sdl_version %q is not a semantic version", c.SDLVersion)
	}
	if c.BaseURL == "" {
		return errors.New("base_url is empty")
	}
	if c.ExternDir == "" || c.CacheDir == "" {
		return errors.New("extern_dir and cache_dir must be set")
	}
	if c.Marker == "" {
		return errors.New("marker is empty")
	}
	for k := range c.Defines {
		if k == "" || strings.ContainsAny(k, " =") {
			return fmt.Errorf("invalid define name %q", k)
		}
	}
	return nil
}
