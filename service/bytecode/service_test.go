package bytecode

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Load(t *testing.T) {
	location := filepath.Join(t.TempDir(), "module.script")
	require.NoError(t, os.WriteFile(location, []byte("return 1"), 0o644))

	service := New(nil)
	ctx := context.Background()

	data, err := service.Load(ctx, location)
	require.NoError(t, err)
	assert.Equal(t, []byte("return 1"), data)

	// Second load hits the cache even if the file changed underneath.
	require.NoError(t, os.WriteFile(location, []byte("return 2"), 0o644))
	data, err = service.Load(ctx, location)
	require.NoError(t, err)
	assert.Equal(t, []byte("return 1"), data)

	// Refresh forces a re-read.
	service.Refresh(location)
	data, err = service.Load(ctx, location)
	require.NoError(t, err)
	assert.Equal(t, []byte("return 2"), data)
}

func TestService_LoadMissing(t *testing.T) {
	service := New(nil)
	_, err := service.Load(context.Background(), filepath.Join(t.TempDir(), "absent.wasm"))
	assert.Error(t, err)
}
