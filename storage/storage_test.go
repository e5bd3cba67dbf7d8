package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "img", "users")
	store, err := NewDiskStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	name, err := store.Save(context.Background(), "../../user-1.jpeg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "user-1.jpeg", name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
}
