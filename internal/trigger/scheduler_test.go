package trigger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lokie-ree/aida-sub001/internal/retention"
)

type mockRetention struct {
	mu    sync.Mutex
	runs  int
	reply retention.Result
}

func (m *mockRetention) Enforce(context.Context) retention.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	return m.reply
}

func TestRegisterRetention_AddsEntry(t *testing.T) {
	sched := NewScheduler(&mockRetention{})
	require.NoError(t, sched.RegisterRetention("0 3 * * *"))
	assert.Equal(t, 1, sched.Entries())
}

func TestRegisterRetention_DefaultSchedule(t *testing.T) {
	sched := NewScheduler(&mockRetention{})
	require.NoError(t, sched.RegisterRetention(""))
	assert.Equal(t, 1, sched.Entries())
}

func TestRegisterRetention_InvalidCron(t *testing.T) {
	sched := NewScheduler(&mockRetention{})
	err := sched.RegisterRetention("not a valid cron")
	assert.Error(t, err)
	assert.Equal(t, 0, sched.Entries())
}

func TestRegisterRetention_RejectsSecondsField(t *testing.T) {
	sched := NewScheduler(&mockRetention{})
	assert.Error(t, sched.RegisterRetention("0 0 3 * * *"))
}

func TestRunRetention_InvokesRunner(t *testing.T) {
	for _, res := range []retention.Result{
		{DeletedCount: 4, Errors: []string{}},
		{DeletedCount: 1, Errors: []string{"failed to delete audit_logs x: locked"}},
	} {
		runner := &mockRetention{reply: res}
		NewScheduler(runner).runRetention()
		assert.Equal(t, 1, runner.runs)
	}
}

func TestStartStop(t *testing.T) {
	sched := NewScheduler(&mockRetention{})
	require.NoError(t, sched.RegisterRetention(DefaultRetentionSchedule))
	sched.Start()
	sched.Stop()
}
