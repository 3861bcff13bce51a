package config

import "time"

// Config is everything the CLI needs, split per concern so components depend
// only on the getters they use.
type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	StorageConfig
	MockConfig
}

type EnvConfig interface {
	GetEnv() string
	GetLogLevel() string
	GetAppName() string
	GetAppVersion() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

type SessionConfig interface {
	GetSweepInterval() time.Duration
}

type StorageConfig interface {
	GetDataFolder() string
	// GetEncryptionKey returns a hex encoded key; empty stores values unencrypted.
	GetEncryptionKey() string
}

type MockConfig interface {
	GetMockListenAddr() string
	GetMockSecret() string
	GetMockOTP() string
	GetMockAccessTTL() time.Duration
	GetMockAllowedOrigins() []string
}

var _ Config = (*Settings)(nil)

// Settings holds the resolved configuration. See Load for how layers combine.
type Settings struct {
	Env        string `yaml:"env" validate:"required,oneof=DEV TEST PROD"`
	LogLevel   string `yaml:"logLevel" validate:"oneof=trace debug info warn error"`
	AppName    string `yaml:"appName"`
	AppVersion string `yaml:"appVersion"`

	API struct {
		BaseURL string        `yaml:"baseURL" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	} `yaml:"api"`

	Session struct {
		SweepInterval time.Duration `yaml:"sweepInterval" validate:"gt=0"`
	} `yaml:"session"`

	Storage struct {
		DataFolder    string `yaml:"dataFolder" validate:"required"`
		EncryptionKey string `yaml:"encryptionKey" validate:"omitempty,hexadecimal,len=64"`
	} `yaml:"storage"`

	Mock struct {
		ListenAddr     string        `yaml:"listenAddr"`
		Secret         string        `yaml:"secret"`
		OTP            string        `yaml:"otp" validate:"omitempty,len=6,numeric"`
		AccessTTL      time.Duration `yaml:"accessTTL" validate:"gt=0"`
		AllowedOrigins []string      `yaml:"allowedOrigins"`
	} `yaml:"mock"`
}

func (s *Settings) GetEnv() string                   { return s.Env }
func (s *Settings) GetLogLevel() string              { return s.LogLevel }
func (s *Settings) GetAppName() string               { return s.AppName }
func (s *Settings) GetAppVersion() string            { return s.AppVersion }
func (s *Settings) GetAPIBaseURL() string            { return s.API.BaseURL }
func (s *Settings) GetRequestTimeout() time.Duration { return s.API.Timeout }
func (s *Settings) GetSweepInterval() time.Duration  { return s.Session.SweepInterval }
func (s *Settings) GetDataFolder() string            { return s.Storage.DataFolder }
func (s *Settings) GetEncryptionKey() string         { return s.Storage.EncryptionKey }
func (s *Settings) GetMockListenAddr() string        { return s.Mock.ListenAddr }
func (s *Settings) GetMockSecret() string            { return s.Mock.Secret }
func (s *Settings) GetMockOTP() string               { return s.Mock.OTP }
func (s *Settings) GetMockAccessTTL() time.Duration  { return s.Mock.AccessTTL }
func (s *Settings) GetMockAllowedOrigins() []string  { return s.Mock.AllowedOrigins }
