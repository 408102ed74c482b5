package scheduler

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestDailyCronSpec(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"09:00", "0 9 * * *", false},
		{"00:00", "0 0 * * *", false},
		{"23:59", "59 23 * * *", false},
		{" 07:30 ", "30 7 * * *", false},
		{"24:00", "", true},
		{"09:60", "", true},
		{"0900", "", true},
		{"", "", true},
		{"nine:thirty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := dailyCronSpec(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterDaily(t *testing.T) {
	service := NewService(arbor.NewLogger())

	require.NoError(t, service.RegisterDaily("sweep", "09:00", func() error { return nil }))

	// Duplicate name rejected
	err := service.RegisterDaily("sweep", "10:00", func() error { return nil })
	assert.Error(t, err)

	// Bad time rejected
	err = service.RegisterDaily("other", "25:00", func() error { return nil })
	assert.Error(t, err)

	status, err := service.GetJobStatus("sweep")
	require.NoError(t, err)
	assert.Equal(t, "sweep", status.Name)
	assert.Equal(t, "0 9 * * *", status.Schedule)
	assert.False(t, status.IsRunning)
}

func TestTriggerNow(t *testing.T) {
	service := NewService(arbor.NewLogger())

	var runs atomic.Int32
	require.NoError(t, service.RegisterDaily("sweep", "09:00", func() error {
		runs.Add(1)
		return nil
	}))

	require.NoError(t, service.TriggerNow("sweep"))

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	status, err := service.GetJobStatus("sweep")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		status, _ = service.GetJobStatus("sweep")
		return status.LastRun != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, status.LastError)
}

func TestTriggerNowUnknownJob(t *testing.T) {
	service := NewService(arbor.NewLogger())
	assert.Error(t, service.TriggerNow("missing"))
}

func TestJobErrorIsRecorded(t *testing.T) {
	service := NewService(arbor.NewLogger())

	require.NoError(t, service.RegisterDaily("sweep", "09:00", func() error {
		return fmt.Errorf("search quota exceeded")
	}))
	require.NoError(t, service.TriggerNow("sweep"))

	assert.Eventually(t, func() bool {
		status, err := service.GetJobStatus("sweep")
		return err == nil && status.LastError == "search quota exceeded"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJobPanicIsRecovered(t *testing.T) {
	service := NewService(arbor.NewLogger())

	require.NoError(t, service.RegisterDaily("sweep", "09:00", func() error {
		panic("boom")
	}))
	require.NoError(t, service.TriggerNow("sweep"))

	assert.Eventually(t, func() bool {
		status, err := service.GetJobStatus("sweep")
		return err == nil && status.LastError == "panic: boom" && !status.IsRunning
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartStop(t *testing.T) {
	service := NewService(arbor.NewLogger())

	assert.False(t, service.IsRunning())
	require.NoError(t, service.Start())
	assert.True(t, service.IsRunning())

	// Double start rejected
	assert.Error(t, service.Start())

	require.NoError(t, service.Stop())
	assert.False(t, service.IsRunning())

	// Stop is idempotent
	require.NoError(t, service.Stop())
}
