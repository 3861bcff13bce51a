package apiclient_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/jrsteele09/wydely-client/apiclient"
	"github.com/jrsteele09/wydely-client/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDevice(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()

	first, err := apiclient.DetectDevice(ctx, kv, "2.1.0")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, runtime.GOOS, first.OS)
	assert.Equal(t, "desktop", first.Type)
	assert.Equal(t, "2.1.0", first.AppVersion)
	assert.Contains(t, first.UserAgent, "wydely-cli/2.1.0")
	assert.NotEmpty(t, first.OSVersion)

	second, err := apiclient.DetectDevice(ctx, kv, "2.1.0")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "device id is stable")

	stored, err := kv.Get(ctx, apiclient.DeviceIDKey)
	require.NoError(t, err)
	assert.Equal(t, first.ID, string(stored))
}

func TestDetectDeviceReplacesCorruptID(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, apiclient.DeviceIDKey, []byte("not-a-uuid")))

	device, err := apiclient.DetectDevice(ctx, kv, "")
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", device.ID)
	assert.Equal(t, "unknown", device.AppVersion)
}
