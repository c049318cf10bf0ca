package lib

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RunLifecycle(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "db", "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	meta := RunMetadata{Algorithm: "bytetrack", Config: "bytetrack.py", Checkpoint: "bytetrack.pth"}
	run, err := store.Init(context.Background(), "DNP-mmtracking", meta)
	require.NoError(t, err)
	_, err = uuid.Parse(run.ID())
	require.NoError(t, err)

	require.NoError(t, run.Log(0, Metrics{"Average FPS": 20, "Time per Frame": 0.05}))
	require.NoError(t, run.Log(1, Metrics{"Average FPS": 18}))
	require.NoError(t, run.Log(2, Metrics{}))

	record, err := store.GetRun(run.ID())
	require.NoError(t, err)
	assert.Equal(t, "bytetrack", record.Algorithm)
	assert.Equal(t, "bytetrack.py", record.ConfigName)
	assert.Nil(t, record.FinishedAt)

	require.NoError(t, run.Finish())
	record, err = store.GetRun(run.ID())
	require.NoError(t, err)
	assert.NotNil(t, record.FinishedAt)

	metrics, err := store.ListMetrics(run.ID())
	require.NoError(t, err)
	require.Len(t, metrics, 3)
	assert.Equal(t, 0, metrics[0].Step)
	assert.Equal(t, "Average FPS", metrics[0].Name)
	assert.Equal(t, 20.0, metrics[0].Value)
	assert.Equal(t, "Time per Frame", metrics[1].Name)
	assert.Equal(t, 1, metrics[2].Step)
}

func TestStore_UnknownRun(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetRun(uuid.NewString())
	assert.Error(t, err)
}
