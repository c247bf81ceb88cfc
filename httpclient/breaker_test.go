package httpclient

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type NetError struct {
	Msg string
}

func (e *NetError) Error() string   { return e.Msg }
func (e *NetError) Timeout() bool   { return false }
func (e *NetError) Temporary() bool { return false }

// fakeBreaker is a hand-rolled CircuitBreaker stand-in, following the
// same local-fake pattern as MockTransport (mock_transport.go) rather
// than a generated mock.
type fakeBreaker struct {
	result interface{}
	err    error
	// passthrough runs req() and returns its result instead of the
	// fixed result/err above, mimicking gobreaker calling the wrapped
	// function when the circuit is closed.
	passthrough bool
}

func (f *fakeBreaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	if f.passthrough {
		return req()
	}
	return f.result, f.err
}

// fakeRoundTripper is a hand-rolled http.RoundTripper stand-in for the
// leaf transport circuitBreakerTransport wraps.
type fakeRoundTripper struct {
	resp *http.Response
	err  error
}

func (f *fakeRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return f.resp, f.err
}

func TestDefaultBreakerConfig(t *testing.T) {
	cfg := DefaultBreakerConfig()
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 10*time.Second, cfg.Interval)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(20), cfg.FailureThreshold)
	assert.InEpsilon(t, 0.5, cfg.FailureRatio, 0.001)
	assert.Equal(t, uint32(5), cfg.ConsecutiveFailures)
	assert.NotNil(t, cfg.Classifier)
}

func TestConfigFunctions(t *testing.T) {
	t.Run("DefaultBreakerConfig", func(t *testing.T) {
		localCfg := DefaultBreakerConfig()
		assert.Nil(t, localCfg.Store)
		assert.Equal(t, uint32(5), localCfg.ConsecutiveFailures)
	})

	t.Run("DistributedBreakerConfig", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		store := NewRedisStore(rdb)

		distCfg := DistributedBreakerConfig(store)
		assert.Equal(t, store, distCfg.Store)
		assert.Equal(t, 10*time.Second, distCfg.Interval)
	})

	t.Run("DisabledBreakerConfig", func(t *testing.T) {
		disabledCfg := DisabledBreakerConfig()
		assert.Equal(t, uint32(0), disabledCfg.MaxRequests)
		assert.InEpsilon(t, float64(1.0), disabledCfg.FailureRatio, 0.001)
	})
}

func TestBreakerTransport_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		breaker *fakeBreaker
		rt      *fakeRoundTripper
		wantErr assert.ErrorAssertionFunc
		wantSC  int
		errType error
	}{
		{
			name:    "given successful execution, then returns response and no error",
			breaker: &fakeBreaker{passthrough: true},
			rt:      &fakeRoundTripper{resp: &http.Response{StatusCode: http.StatusOK}},
			wantErr: assert.NoError,
			wantSC:  200,
		},
		{
			name:    "given circuit open (rejected), then returns ErrOpenState",
			breaker: &fakeBreaker{err: gobreaker.ErrOpenState},
			rt:      &fakeRoundTripper{},
			wantErr: assert.Error,
			errType: gobreaker.ErrOpenState,
		},
		{
			name:    "given execution failure (500), then returns response",
			breaker: &fakeBreaker{passthrough: true},
			rt:      &fakeRoundTripper{resp: &http.Response{StatusCode: http.StatusInternalServerError}},
			wantErr: assert.NoError, // Transport handles the error and returns the 500 response
			wantSC:  500,
		},
		{
			name:    "given network error, then returns error",
			breaker: &fakeBreaker{passthrough: true},
			rt:      &fakeRoundTripper{err: &NetError{Msg: "network error"}},
			wantErr: assert.Error,
			errType: &NetError{Msg: "network error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter := noop.NewMeterProvider().Meter("test")
			m, _ := newMetrics(meter)

			breakerCfg := DefaultBreakerConfig()
			cfg := &internalConfig{
				BreakerConfig: &breakerCfg,
				Metrics:       m,
				ServiceName:   "test-service",
			}

			tr := &circuitBreakerTransport{
				breaker:    tt.breaker,
				next:       tt.rt,
				classifier: DefaultBreakerClassifier,
				cfg:        cfg,
				name:       "test-service",
			}

			req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
			resp, err := tr.RoundTrip(req)

			tt.wantErr(t, err)

			if err != nil && tt.errType != nil {
				if errors.Is(tt.errType, gobreaker.ErrOpenState) {
					assert.ErrorIs(t, err, gobreaker.ErrOpenState)
				} else {
					assert.Equal(t, tt.errType.Error(), err.Error())
				}
			}

			if err == nil {
				require.NotNil(t, resp)
				assert.Equal(t, tt.wantSC, resp.StatusCode)
			}
		})
	}
}
