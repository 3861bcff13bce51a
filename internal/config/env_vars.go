package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envVar            = "WYDELY_ENV"
	logLevelVar       = "WYDELY_LOG_LEVEL"
	appNameVar        = "WYDELY_APP_NAME"
	appVersionVar     = "WYDELY_APP_VERSION"
	apiURLVar         = "WYDELY_API_URL"
	requestTimeoutVar = "WYDELY_REQUEST_TIMEOUT"
	sweepIntervalVar  = "WYDELY_SWEEP_INTERVAL"
	folderEnvVar      = "WYDELY_DATA_FOLDER"
	encryptionKeyVar  = "WYDELY_ENCRYPTION_KEY"
	mockAddrVar       = "WYDELY_MOCK_ADDR"
	mockSecretVar     = "WYDELY_MOCK_SECRET"
	mockOTPVar        = "WYDELY_MOCK_OTP"
	mockAccessTTLVar  = "WYDELY_MOCK_ACCESS_TTL"
	mockOriginsVar    = "WYDELY_MOCK_ORIGINS"
)

// LoadDotEnv applies variables from a .env file. A missing file is not an error.
func (s *Settings) LoadDotEnv(path string) error {
	envMap, err := godotenv.Read(path)
	switch {
	case err == nil:
		return s.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}
}

// LoadEnv applies every non-empty variable getenv returns.
func (s *Settings) LoadEnv(getenv func(string) string) error {
	setString := func(o *string) func(string) error {
		return func(value string) error {
			*o = value
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(string) error {
		return func(value string) error {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		envVar:            setString(&s.Env),
		logLevelVar:       setString(&s.LogLevel),
		appNameVar:        setString(&s.AppName),
		appVersionVar:     setString(&s.AppVersion),
		apiURLVar:         setString(&s.API.BaseURL),
		requestTimeoutVar: setDuration(&s.API.Timeout),
		sweepIntervalVar:  setDuration(&s.Session.SweepInterval),
		folderEnvVar:      setString(&s.Storage.DataFolder),
		encryptionKeyVar:  setString(&s.Storage.EncryptionKey),
		mockAddrVar:       setString(&s.Mock.ListenAddr),
		mockSecretVar:     setString(&s.Mock.Secret),
		mockOTPVar:        setString(&s.Mock.OTP),
		mockAccessTTLVar:  setDuration(&s.Mock.AccessTTL),
		mockOriginsVar: func(value string) error {
			s.Mock.AllowedOrigins = splitList(value)
			return nil
		},
	}

	for key, parseFn := range envMap {
		value := strings.TrimSpace(getenv(key))
		if value == "" {
			continue
		}
		if err := parseFn(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// GetEnv returns the process variable envVar or defaultValue when unset.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
