package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "wydely.yaml"
	DefaultDotEnvFile = ".env"
)

// Flag names understood by ApplyFlags.
const (
	FlagConfig     = "config"
	FlagEnv        = "env"
	FlagLogLevel   = "log-level"
	FlagAPIURL     = "api-url"
	FlagDataFolder = "data-folder"
	FlagMockAddr   = "mock-addr"
)

var validate = validator.New()

// Defaults returns settings suitable for local development against the mock backend.
func Defaults() *Settings {
	s := &Settings{
		Env:        "DEV",
		LogLevel:   "info",
		AppName:    "Wydely",
		AppVersion: "dev",
	}
	s.API.BaseURL = "http://localhost:8080"
	s.API.Timeout = 30 * time.Second
	s.Session.SweepInterval = 30 * time.Second
	s.Storage.DataFolder = defaultDataFolder()
	s.Mock.ListenAddr = "localhost:8080"
	s.Mock.OTP = "123456"
	s.Mock.AccessTTL = 15 * time.Minute
	return s
}

func defaultDataFolder() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wydely")
	}
	return "./data"
}

// LoadFile applies a YAML file. A missing file is only an error when required.
func (s *Settings) LoadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, DefaultConfigFile, "YAML configuration file")
	fs.String(FlagEnv, "", "Environment (DEV, TEST, PROD)")
	fs.StringP(FlagLogLevel, "l", "", "Logging level (trace, debug, info, warn, error)")
	fs.String(FlagAPIURL, "", "Wydely API base URL")
	fs.String(FlagDataFolder, "", "Folder holding the stored session")
	fs.String(FlagMockAddr, "", "Listen address of the mock backend")
}

// ApplyFlags copies every flag the user set on fs into s.
func (s *Settings) ApplyFlags(fs *pflag.FlagSet) {
	targets := map[string]*string{
		FlagEnv:        &s.Env,
		FlagLogLevel:   &s.LogLevel,
		FlagAPIURL:     &s.API.BaseURL,
		FlagDataFolder: &s.Storage.DataFolder,
		FlagMockAddr:   &s.Mock.ListenAddr,
	}
	for name, target := range targets {
		flag := fs.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		*target = flag.Value.String()
	}
}

// Validate checks the resolved settings.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load resolves settings in layers: defaults, the YAML file, the .env file,
// the process environment, then flags set on fs. fs may be nil.
func Load(fs *pflag.FlagSet, getenv func(string) string) (*Settings, error) {
	s := Defaults()

	configFile, required := DefaultConfigFile, false
	if fs != nil {
		if flag := fs.Lookup(FlagConfig); flag != nil && flag.Changed {
			configFile, required = flag.Value.String(), true
		}
	}
	if err := s.LoadFile(configFile, required); err != nil {
		return nil, err
	}
	if err := s.LoadDotEnv(DefaultDotEnvFile); err != nil {
		return nil, err
	}
	if err := s.LoadEnv(getenv); err != nil {
		return nil, err
	}
	if fs != nil {
		s.ApplyFlags(fs)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
