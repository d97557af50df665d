package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, run *Run) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestManager_FormRun(t *testing.T) {
	var (
		mu    sync.Mutex
		saved []*Plan
	)
	rec := &recorder{}
	m := NewManager(Options{
		Directory: newFakeDirectory(),
		Sink: sinkFunc(func(_ context.Context, plan *Plan) error {
			mu.Lock()
			saved = append(saved, plan)
			mu.Unlock()
			return nil
		}),
		Listener: rec,
	})

	run, err := m.Start(context.Background(), StartRequest{
		Mode: ModeForm,
		Form: &FormInput{
			Title:        "面试会议",
			Participants: []string{"面试官A", "候选人B"},
			Date:         "2025-01-07",
			Time:         "15:00",
			Duration:     60,
		},
		ContactMethods: []string{"im", "email", "sms", "phone"},
	})
	require.NoError(t, err)
	waitDone(t, run)
	require.NoError(t, run.Err())

	snap, err := m.Snapshot(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, snap.State)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, "面试会议", snap.Title)
	require.NotNil(t, snap.FinishedAt)
	assert.Equal(t, "im", snap.Steps[3].ContactMethods[0].ID)

	mu.Lock()
	require.Len(t, saved, 1)
	assert.NotNil(t, saved[0].Slot)
	mu.Unlock()

	for _, ev := range rec.all() {
		assert.Equal(t, run.ID, ev.RunID)
	}
	assert.Len(t, m.List(), 1)
}

func TestManager_InterventionFlow(t *testing.T) {
	m := NewManager(Options{Directory: newFakeDirectory(), Delay: time.Hour})
	defer m.Shutdown(context.Background())

	run, err := m.Start(context.Background(), StartRequest{Mode: ModeNatural, Message: "安排面试官A和候选人B的面试"})
	require.NoError(t, err)

	_, err = m.ReorderContactMethods(run.ID, 0, 3)
	require.NoError(t, err)

	require.NoError(t, m.SimulateError(run.ID, 3))
	step, err := m.CompleteIntervention(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", step.ID)

	snap, err := m.Snapshot(run.ID)
	require.NoError(t, err)
	require.Len(t, snap.Steps, 6)
	assert.Equal(t, StepError, snap.Steps[3].Status)
	assert.Equal(t, StepCompleted, snap.Steps[5].Status)
	assert.Equal(t, "email", snap.Steps[3].ContactMethods[3].ID)
}

func TestManager_Errors(t *testing.T) {
	m := NewManager(Options{})

	_, err := m.Start(context.Background(), StartRequest{Mode: ModeForm})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.Start(context.Background(), StartRequest{Mode: ModeNatural, Message: "hi", ContactMethods: []string{"pigeon"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.Snapshot("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, m.SimulateError("missing", 0), ErrRunNotFound)
	_, err = m.CompleteIntervention("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = m.ReorderContactMethods("missing", 0, 1)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestManager_ShutdownCancelsRuns(t *testing.T) {
	m := NewManager(Options{Delay: time.Hour})
	run, err := m.Start(context.Background(), StartRequest{Mode: ModeNatural, Message: "开个会"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	waitDone(t, run)
	assert.ErrorIs(t, run.Err(), context.Canceled)
	snap, err := m.Snapshot(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, snap.State)
}
