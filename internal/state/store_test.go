package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrig/agentrig/internal/resource"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "runtime.state.json"), "runtime")
	require.NoError(t, s.Load())
	return s
}

func TestStore_MissingFileIsFirstRun(t *testing.T) {
	s := tempStore(t)
	assert.True(t, s.Empty())
	assert.Equal(t, "runtime", s.Module())
}

func TestStore_UpsertPersistsImmediately(t *testing.T) {
	s := tempStore(t)

	rec := resource.NewRecord(resource.TypeRole)
	rec.MarkCreated(&resource.Handle{ID: "arn:aws:iam::1:role/demo", Metadata: map[string]string{"arn": "arn:aws:iam::1:role/demo"}})
	require.NoError(t, s.Upsert("demo-runtime-execution", rec))

	// A second store opened on the same path sees the write, as a process
	// restarted after a crash would.
	reopened := NewStore(s.Path(), "runtime")
	require.NoError(t, reopened.Load())

	got := reopened.Get("demo-runtime-execution")
	require.NotNil(t, got)
	assert.Equal(t, resource.StatusCreated, got.Status)
	assert.Equal(t, "arn:aws:iam::1:role/demo", got.ExternalID)
	assert.Equal(t, "arn:aws:iam::1:role/demo", got.Metadata["arn"])
	assert.NotNil(t, got.CreatedAt)
}

func TestStore_SerialIncrementsPerSave(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Upsert("a", resource.NewRecord(resource.TypeRole)))
	require.NoError(t, s.Upsert("b", resource.NewRecord(resource.TypeAuthorizer)))

	reopened := NewStore(s.Path(), "runtime")
	require.NoError(t, reopened.Load())
	assert.Equal(t, 2, reopened.file.Serial)
}

func TestStore_LineageSurvivesReload(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Upsert("a", resource.NewRecord(resource.TypeRole)))
	lineage := s.file.Lineage
	require.NotEmpty(t, lineage)

	reopened := NewStore(s.Path(), "runtime")
	require.NoError(t, reopened.Load())
	assert.Equal(t, lineage, reopened.file.Lineage)
}

func TestStore_RemoveAbsentKeyIsNoop(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Remove("never-existed"))
	assert.True(t, s.Empty())
}

func TestStore_RemovePersists(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Upsert("a", resource.NewRecord(resource.TypeRole)))
	require.NoError(t, s.Remove("a"))

	reopened := NewStore(s.Path(), "runtime")
	require.NoError(t, reopened.Load())
	assert.True(t, reopened.Empty())
}

func TestStore_CorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(path, "runtime")
	err := s.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestStore_NewerVersionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "module": "runtime"}`), 0o644))

	s := NewStore(path, "runtime")
	err := s.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 99")
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Upsert("a", resource.NewRecord(resource.TypeRole)))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(s.Path()), entries[0].Name())
}

func TestStore_KeysAreSorted(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Upsert("c", resource.NewRecord(resource.TypeRole)))
	require.NoError(t, s.Upsert("a", resource.NewRecord(resource.TypeRole)))
	require.NoError(t, s.Upsert("b", resource.NewRecord(resource.TypeRole)))
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
}

func TestStore_RecordsReturnsCopy(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Upsert("a", resource.NewRecord(resource.TypeRole)))

	records := s.Records()
	delete(records, "a")
	assert.NotNil(t, s.Get("a"))
}

func TestLock_BlocksSecondHolder(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Lock())
	defer s.Unlock()

	other := NewStore(s.Path(), "runtime")
	err := other.Lock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by another process")
}

func TestLock_UnlockAllowsReacquire(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Lock())
	require.NoError(t, s.Unlock())
	require.NoError(t, s.Lock())
	require.NoError(t, s.Unlock())
}

func TestLock_StaleLockReclaimed(t *testing.T) {
	s := tempStore(t)
	lockPath := s.Path() + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("pid=1\n"), 0o644))
	old := time.Now().Add(-(staleLockAge + time.Minute))
	require.NoError(t, os.Chtimes(lockPath, old, old))

	require.NoError(t, s.Lock())
	require.NoError(t, s.Unlock())
}

func TestUnlock_WithoutLockIsNoop(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Unlock())
}
