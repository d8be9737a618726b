package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfollowers/pkg/models"
)

func sampleCheckpoint() *Checkpoint {
	return &Checkpoint{
		RunID:  "run-1",
		UserID: "12345",
		Cursor: "QVFE",
		Pages:  3,
		Records: []models.FollowerRecord{
			{PK: "1", Username: "one"},
			{PK: "2", Username: "two"},
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	cp := sampleCheckpoint()
	require.NoError(t, store.Save(ctx, cp))
	assert.Equal(t, CurrentVersion, cp.Version)
	assert.False(t, cp.CreatedAt.IsZero())

	exists, err := store.Exists(ctx, "12345")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := store.Load(ctx, "12345")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "QVFE", loaded.Cursor)
	assert.Equal(t, 3, loaded.Pages)
	assert.Len(t, loaded.Records, 2)
	assert.Equal(t, "two", loaded.Records[1].Username)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	cp, err := store.Load(context.Background(), "404")
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestFileStoreSaveKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	cp := sampleCheckpoint()
	require.NoError(t, store.Save(ctx, cp))
	created := cp.CreatedAt

	cp.Cursor = "next"
	require.NoError(t, store.Save(ctx, cp))

	loaded, err := store.Load(ctx, cp.UserID)
	require.NoError(t, err)
	assert.True(t, created.Equal(loaded.CreatedAt))
	assert.Equal(t, "next", loaded.Cursor)
	assert.False(t, loaded.UpdatedAt.Before(created))
}

func TestFileStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), sampleCheckpoint()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "12345.checkpoint.json", entries[0].Name())
}

func TestFileStoreSaveRequiresUserID(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Save(context.Background(), &Checkpoint{}))
	assert.Error(t, store.Save(context.Background(), nil))
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleCheckpoint()))
	require.NoError(t, store.Delete(ctx, "12345"))

	exists, err := store.Exists(ctx, "12345")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "12345"))
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "9.checkpoint.json"), []byte("{not json"), 0644))

	_, err = store.Load(context.Background(), "9")
	assert.Error(t, err)
}

func TestNewFileStoreUsesDataDirectory(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	store, err := NewFileStore("")
	require.NoError(t, err)
	assert.Contains(t, store.Path("1"), filepath.Join("igfollowers", "checkpoints"))
}

func TestInfo(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	info, err := Info(ctx, store, "12345")
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, store.Save(ctx, sampleCheckpoint()))
	info, err = Info(ctx, store, "12345")
	require.NoError(t, err)
	assert.Equal(t, 2, info["records"])
	assert.Equal(t, "QVFE", info["cursor"])
}
