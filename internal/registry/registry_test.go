package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".punch", "registry.json")
	store := NewStore(path, 0)

	reg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultBasePort, reg.BasePort)
	assert.Empty(t, reg.Services)
	assert.Empty(t, reg.Components)

	_, err = os.Stat(path)
	require.NoError(t, err, "defaults should be persisted")
}

func TestStore_ReadMissingWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".punch", "registry.json")
	store := NewStore(path, 4000)

	reg, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, 4000, reg.BasePort)
	assert.Empty(t, reg.Services)

	assert.NoFileExists(t, path)
	assert.NoDirExists(t, filepath.Dir(path))
}

func TestStore_ReadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	store := NewStore(path, 3000)

	reg := New(3000)
	require.NoError(t, reg.AddService("orders", 3000))
	require.NoError(t, store.Save(reg))

	read, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, reg, read)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = store.Read()
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	store := NewStore(path, 3000)

	reg := New(3000)
	require.NoError(t, reg.AddService("orders", 3000))
	require.NoError(t, reg.AddService("users", 3001))
	reg.SetComponent("gateway")
	require.NoError(t, store.Save(reg))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, reg, loaded)
}

func TestStore_LoadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	content := `{"basePort":3000,"services":{"orders":3000},"components":{"gateway":true}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reg, err := NewStore(path, 3000).Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, reg.Services["orders"])
	assert.True(t, reg.HasComponent("gateway"))
}

func TestStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid json", content: `{"basePort":`},
		{name: "shared port", content: `{"basePort":3000,"services":{"a":3000,"b":3000}}`},
		{name: "port below base", content: `{"basePort":3000,"services":{"a":2999}}`},
		{name: "zero base port", content: `{"basePort":0,"services":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "registry.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := NewStore(path, 3000).Load()
			assert.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestStore_LoadNullMaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"basePort":3000}`), 0644))

	reg, err := NewStore(path, 3000).Load()
	require.NoError(t, err)
	assert.NotNil(t, reg.Services)
	assert.NotNil(t, reg.Components)
}

func TestStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store := NewStore(filepath.Join(blocker, "registry.json"), 3000)
	err := store.Save(New(3000))
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestRegistry_AddService(t *testing.T) {
	reg := New(3000)
	require.NoError(t, reg.AddService("orders", 3000))

	assert.ErrorIs(t, reg.AddService("orders", 3001), ErrServiceExists)
	assert.ErrorIs(t, reg.AddService("users", 3000), ErrPortInUse)
	assert.Error(t, reg.AddService("low", 2000))
	assert.Error(t, reg.AddService("high", 70000))

	port, ok := reg.Port("orders")
	assert.True(t, ok)
	assert.Equal(t, 3000, port)
}

func TestRegistry_RemoveService(t *testing.T) {
	reg := New(3000)
	require.NoError(t, reg.AddService("orders", 3000))

	assert.True(t, reg.RemoveService("orders"))
	assert.False(t, reg.RemoveService("orders"))
	assert.False(t, reg.HasService("orders"))
}

func TestRegistry_Components(t *testing.T) {
	reg := New(3000)
	reg.SetComponent("monitoring")
	reg.SetComponent("gateway")

	assert.Equal(t, []string{"gateway", "monitoring"}, reg.DeployedComponents())
	assert.True(t, reg.RemoveComponent("gateway"))
	assert.False(t, reg.RemoveComponent("gateway"))
	assert.Equal(t, []string{"monitoring"}, reg.DeployedComponents())
}

func TestRegistry_ServiceEntriesOrderedByPort(t *testing.T) {
	reg := New(3000)
	require.NoError(t, reg.AddService("zeta", 3000))
	require.NoError(t, reg.AddService("alpha", 3002))
	require.NoError(t, reg.AddService("mid", 3001))

	assert.Equal(t, []ServiceEntry{
		{Name: "zeta", Port: 3000},
		{Name: "mid", Port: 3001},
		{Name: "alpha", Port: 3002},
	}, reg.ServiceEntries())
}
