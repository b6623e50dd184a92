package device

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubPrepared struct{}

func (stubPrepared) Execute(_ context.Context, _ Request, _ *ExecutionCallback) (ErrorStatus, error) {
	return StatusNone, nil
}

func TestPreparedModelCallback_NotifyOnce(t *testing.T) {
	cb := NewPreparedModelCallback()
	require.NoError(t, cb.Notify(StatusNone, stubPrepared{}))

	err := cb.Notify(StatusGeneralFailure, nil)
	assert.ErrorIs(t, err, ErrAlreadyNotified)

	assert.Equal(t, StatusNone, cb.Status())
	assert.NotNil(t, cb.PreparedModel())
}

func TestPreparedModelCallback_WaitBlocksUntilNotify(t *testing.T) {
	cb := NewPreparedModelCallback()

	var wg sync.WaitGroup
	got := make(chan ErrorStatus, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		got <- cb.Status()
	}()

	select {
	case <-got:
		t.Fatal("Status returned before Notify")
	default:
	}

	require.NoError(t, cb.Notify(StatusGeneralFailure, nil))
	wg.Wait()
	assert.Equal(t, StatusGeneralFailure, <-got)
	assert.Nil(t, cb.PreparedModel())
}

func TestExecutionCallback_ConcurrentNotifyKeepsFirst(t *testing.T) {
	cb := NewExecutionCallback()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- cb.Notify(StatusNone)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyNotified)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, StatusNone, cb.Status())
}

func TestExecutionCallback_NotifyV1_0HasUnknownTiming(t *testing.T) {
	cb := NewExecutionCallback()
	require.NoError(t, cb.Notify(StatusNone))

	assert.Equal(t, UnknownTiming(), cb.Timing())
	assert.Empty(t, cb.OutputShapes())
}

func TestExecutionCallback_NotifyV1_2(t *testing.T) {
	tests := []struct {
		name       string
		status     ErrorStatus
		shapes     []OutputShape
		timing     Timing
		wantStatus ErrorStatus
		wantShapes int
		wantTiming Timing
	}{
		{
			name:       "success with shapes and timing",
			status:     StatusNone,
			shapes:     []OutputShape{{Dimensions: []uint32{2, 2}, IsSufficient: true}},
			timing:     Timing{OnDevice: 10, InDriver: 20},
			wantStatus: StatusNone,
			wantShapes: 1,
			wantTiming: Timing{OnDevice: 10, InDriver: 20},
		},
		{
			name:       "insufficient size keeps shapes",
			status:     StatusOutputInsufficientSize,
			shapes:     []OutputShape{{Dimensions: []uint32{4}, IsSufficient: false}},
			timing:     UnknownTiming(),
			wantStatus: StatusOutputInsufficientSize,
			wantShapes: 1,
			wantTiming: UnknownTiming(),
		},
		{
			name:       "failure with shapes is downgraded",
			status:     StatusInvalidArgument,
			shapes:     []OutputShape{{Dimensions: []uint32{4}}},
			timing:     UnknownTiming(),
			wantStatus: StatusGeneralFailure,
			wantShapes: 0,
			wantTiming: UnknownTiming(),
		},
		{
			name:       "failure with timing is downgraded",
			status:     StatusDeviceUnavailable,
			timing:     Timing{OnDevice: 1, InDriver: 2},
			wantStatus: StatusGeneralFailure,
			wantShapes: 0,
			wantTiming: UnknownTiming(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewExecutionCallback()
			require.NoError(t, cb.NotifyV1_2(tt.status, tt.shapes, tt.timing))

			assert.Equal(t, tt.wantStatus, cb.Status())
			assert.Len(t, cb.OutputShapes(), tt.wantShapes)
			assert.Equal(t, tt.wantTiming, cb.Timing())
		})
	}
}

func TestExecutionCallback_ShapesAreCopied(t *testing.T) {
	shapes := []OutputShape{{Dimensions: []uint32{3}, IsSufficient: true}}
	cb := NewExecutionCallback()
	require.NoError(t, cb.NotifyV1_2(StatusNone, shapes, UnknownTiming()))

	shapes[0].Dimensions[0] = 99
	got := cb.OutputShapes()
	assert.Equal(t, []uint32{3}, got[0].Dimensions)

	got[0].Dimensions[0] = 42
	assert.Equal(t, []uint32{3}, cb.OutputShapes()[0].Dimensions)
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Op: "prepareModel", Status: StatusGeneralFailure}
	assert.Equal(t, "prepareModel returned GENERAL_FAILURE", err.Error())
}
