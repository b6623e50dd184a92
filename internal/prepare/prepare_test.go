package prepare

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nnvts/internal/device"
)

type onlyV1_0 struct{}

func (onlyV1_0) Execute(context.Context, device.Request, *device.ExecutionCallback) (device.ErrorStatus, error) {
	return device.StatusNone, nil
}

type withV1_2 struct{ onlyV1_0 }

func (withV1_2) ExecuteV1_2(context.Context, device.Request, device.MeasureTiming, *device.ExecutionCallback) (device.ErrorStatus, error) {
	return device.StatusNone, nil
}

func (withV1_2) ExecuteSynchronously(context.Context, device.Request, device.MeasureTiming) (device.ErrorStatus, []device.OutputShape, device.Timing, error) {
	return device.StatusNone, nil, device.UnknownTiming(), nil
}

func (withV1_2) ConfigureExecutionBurst(context.Context, device.BurstCallback, <-chan device.BurstRequest, chan<- device.BurstResult) (device.ErrorStatus, device.BurstContext, error) {
	return device.StatusGeneralFailure, nil, nil
}

// fakeDevice answers every interface version the same way.
type fakeDevice struct {
	supportStatus device.ErrorStatus
	supported     []bool
	supportErr    error

	launchStatus device.ErrorStatus
	launchErr    error

	status   device.ErrorStatus
	prepared device.PreparedModel

	gotPref device.ExecutionPreference
}

func (f *fakeDevice) GetSupportedOperations(context.Context, device.Model) (device.ErrorStatus, []bool, error) {
	return f.supportStatus, f.supported, f.supportErr
}

func (f *fakeDevice) PrepareModel(_ context.Context, _ device.Model, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
	if f.launchErr != nil || f.launchStatus != device.StatusNone {
		return f.launchStatus, f.launchErr
	}
	go func() { _ = cb.Notify(f.status, f.prepared) }()
	return device.StatusNone, nil
}

func (f *fakeDevice) GetSupportedOperationsV1_1(ctx context.Context, m device.Model) (device.ErrorStatus, []bool, error) {
	return f.GetSupportedOperations(ctx, m)
}

func (f *fakeDevice) PrepareModelV1_1(ctx context.Context, m device.Model, pref device.ExecutionPreference, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
	f.gotPref = pref
	return f.PrepareModel(ctx, m, cb)
}

func (f *fakeDevice) GetSupportedOperationsV1_2(ctx context.Context, m device.Model) (device.ErrorStatus, []bool, error) {
	return f.GetSupportedOperations(ctx, m)
}

func (f *fakeDevice) PrepareModelV1_2(ctx context.Context, m device.Model, pref device.ExecutionPreference, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
	f.gotPref = pref
	return f.PrepareModel(ctx, m, cb)
}

func TestV1_0(t *testing.T) {
	tests := []struct {
		name   string
		dev    *fakeDevice
		want   Kind
		errMsg string
	}{
		{
			name: "fully supported and prepared",
			dev:  &fakeDevice{supported: []bool{true, true}, prepared: onlyV1_0{}},
			want: Prepared,
		},
		{
			name: "partial support and failure is a skip",
			dev:  &fakeDevice{supported: []bool{true, false}, status: device.StatusGeneralFailure},
			want: Skip,
		},
		{
			name: "partial support but prepared anyway",
			dev:  &fakeDevice{supported: []bool{false}, prepared: onlyV1_0{}},
			want: Prepared,
		},
		{
			name:   "partial support, failure with a handle",
			dev:    &fakeDevice{supported: []bool{false}, status: device.StatusGeneralFailure, prepared: onlyV1_0{}},
			want:   Fail,
			errMsg: "with a prepared model",
		},
		{
			name:   "full support but failure",
			dev:    &fakeDevice{supported: []bool{true}, status: device.StatusGeneralFailure},
			want:   Fail,
			errMsg: "prepareModel returned GENERAL_FAILURE",
		},
		{
			name:   "success without a handle",
			dev:    &fakeDevice{supported: []bool{true}},
			want:   Fail,
			errMsg: "without a prepared model",
		},
		{
			name:   "empty support vector",
			dev:    &fakeDevice{supported: []bool{}},
			want:   Fail,
			errMsg: "empty support vector",
		},
		{
			name:   "support query status",
			dev:    &fakeDevice{supportStatus: device.StatusDeviceUnavailable},
			want:   Fail,
			errMsg: "DEVICE_UNAVAILABLE",
		},
		{
			name:   "support query transport error",
			dev:    &fakeDevice{supportErr: errors.New("no service")},
			want:   Fail,
			errMsg: "no service",
		},
		{
			name:   "launch status",
			dev:    &fakeDevice{supported: []bool{true}, launchStatus: device.StatusInvalidArgument},
			want:   Fail,
			errMsg: "prepareModel launch returned INVALID_ARGUMENT",
		},
		{
			name:   "launch transport error",
			dev:    &fakeDevice{supported: []bool{true}, launchErr: errors.New("dead object")},
			want:   Fail,
			errMsg: "dead object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := V1_0(context.Background(), tt.dev, device.Model{})
			assert.Equal(t, tt.want, out.Kind)
			switch tt.want {
			case Prepared:
				assert.NotNil(t, out.Prepared)
				assert.NoError(t, out.Err)
			case Skip:
				assert.Nil(t, out.Prepared)
				assert.NotEmpty(t, out.Reason)
			case Fail:
				require.Error(t, out.Err)
				assert.Contains(t, out.Err.Error(), tt.errMsg)
				assert.Nil(t, out.Prepared)
			}
		})
	}
}

func TestV1_1_PassesPreference(t *testing.T) {
	dev := &fakeDevice{supported: []bool{true}, prepared: onlyV1_0{}}

	out := V1_1(context.Background(), dev, device.Model{}, device.PreferFastSingleAnswer)
	assert.Equal(t, Prepared, out.Kind)
	assert.True(t, out.FullySupported)
	assert.Equal(t, device.PreferFastSingleAnswer, dev.gotPref)
}

func TestV1_2_RequiresNewerPreparedModel(t *testing.T) {
	dev := &fakeDevice{supported: []bool{true}, prepared: onlyV1_0{}}
	out := V1_2(context.Background(), dev, device.Model{}, device.PreferSustainedSpeed)
	assert.Equal(t, Fail, out.Kind)
	assert.ErrorContains(t, out.Err, "1.2 interface")
	assert.Equal(t, device.PreferSustainedSpeed, dev.gotPref)

	dev = &fakeDevice{supported: []bool{true}, prepared: withV1_2{}}
	out = V1_2(context.Background(), dev, device.Model{}, device.PreferFastSingleAnswer)
	require.Equal(t, Prepared, out.Kind)
	_, ok := out.Prepared.(device.PreparedModelV1_2)
	assert.True(t, ok)
}

func TestV1_2_SkipPassesThrough(t *testing.T) {
	dev := &fakeDevice{supported: []bool{false}, status: device.StatusGeneralFailure}
	out := V1_2(context.Background(), dev, device.Model{}, device.PreferFastSingleAnswer)
	assert.Equal(t, Skip, out.Kind)
	assert.False(t, out.FullySupported)
}
