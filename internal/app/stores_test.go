package app

import (
	"context"
	"testing"

	"alcyxob/fitflow/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStores_Memory(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.DatabaseConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer stores.Close()

	assert.NotNil(t, stores.Users)
	assert.NotNil(t, stores.Workouts)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	_, err := OpenStores(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "unknown database driver")
}
