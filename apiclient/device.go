package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
	"github.com/jrsteele09/wydely-client/kvstore"
)

// DeviceIDKey is where the generated device id is kept.
const DeviceIDKey = "wydely-device-id"

const (
	deviceTypeDesktop = "desktop"
	unknownValue      = "unknown"
	osReleasePath     = "/etc/os-release"
)

// DeviceInfo identifies the installation on every request.
type DeviceInfo struct {
	ID         string
	OS         string
	Type       string
	OSVersion  string
	AppVersion string
	UserAgent  string
	Model      string
}

// apply sets the device identification headers on h.
func (d DeviceInfo) apply(h http.Header) {
	h.Set("device-id", d.ID)
	h.Set("device-os", d.OS)
	h.Set("device-type", d.Type)
	h.Set("device-os-version", d.OSVersion)
	h.Set("device-app-version", d.AppVersion)
	h.Set("device-user-agent", d.UserAgent)
	h.Set("device-model", d.Model)
}

// DetectDevice describes the current machine. The device id is generated once
// and kept in kv so it is stable across runs.
func DetectDevice(ctx context.Context, kv kvstore.Store, appVersion string) (DeviceInfo, error) {
	id, err := deviceID(ctx, kv)
	if err != nil {
		return DeviceInfo{}, err
	}
	if appVersion == "" {
		appVersion = unknownValue
	}
	return DeviceInfo{
		ID:         id,
		OS:         runtime.GOOS,
		Type:       deviceTypeDesktop,
		OSVersion:  osVersion(),
		AppVersion: appVersion,
		UserAgent:  fmt.Sprintf("wydely-cli/%s (%s; %s)", appVersion, runtime.GOOS, runtime.GOARCH),
		Model:      runtime.GOARCH,
	}, nil
}

func deviceID(ctx context.Context, kv kvstore.Store) (string, error) {
	value, err := kv.Get(ctx, DeviceIDKey)
	if err == nil {
		if id, perr := uuid.ParseBytes(value); perr == nil {
			return id.String(), nil
		}
	} else if !apperrors.Is(err, kvstore.ErrNotFound) {
		return "", fmt.Errorf("[DetectDevice] read device id: %w", err)
	}

	id := uuid.New().String()
	if err := kv.Set(ctx, DeviceIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("[DetectDevice] store device id: %w", err)
	}
	return id, nil
}

// osVersion reads VERSION_ID from os-release where the platform has one.
func osVersion() string {
	release, err := godotenv.Read(osReleasePath)
	if err != nil {
		return unknownValue
	}
	if v := release["VERSION_ID"]; v != "" {
		return v
	}
	return unknownValue
}
