package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goFactor "github.com/MrEthical07/goFactor"
)

type fakeSource struct {
	mu       sync.RWMutex
	counters map[goFactor.MetricID]uint64
	latency  []uint64
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goFactor.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goFactor.MetricsSnapshot{
		Counters:   make(map[goFactor.MetricID]uint64, len(f.counters)),
		Histograms: map[goFactor.MetricID][]uint64{},
	}
	for k, v := range f.counters {
		out.Counters[k] = v
	}
	if f.latency != nil {
		out.Histograms[goFactor.MetricVerifyLatency] = append([]uint64(nil), f.latency...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findInt64(rm metricdata.ResourceMetrics, name string) []metricdata.DataPoint[int64] {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				return data.DataPoints
			case metricdata.Gauge[int64]:
				return data.DataPoints
			}
		}
	}
	return nil
}

func TestExporterCollectsCountersAndBuckets(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		counters: map[goFactor.MetricID]uint64{goFactor.MetricTOTPSuccess: 3},
		latency:  []uint64{1, 1, 1, 1, 1, 1, 1, 1},
		dropped:  1,
	}

	exp, err := NewExporterFromSource(provider.Meter("gofactor-test"), src)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, exp.Close()) })

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totp := findInt64(rm, "gofactor_totp_success_total")
	require.Len(t, totp, 1)
	require.Equal(t, int64(3), totp[0].Value)

	buckets := findInt64(rm, "gofactor_verify_latency_seconds_bucket")
	require.Len(t, buckets, 8)
	for _, dp := range buckets {
		le, ok := dp.Attributes.Value("le")
		require.True(t, ok)
		if le.AsString() == "+Inf" {
			require.Equal(t, int64(8), dp.Value)
		}
	}

	count := findInt64(rm, "gofactor_verify_latency_seconds_count")
	require.Len(t, count, 1)
	require.Equal(t, int64(8), count[0].Value)

	dropped := findInt64(rm, "gofactor_audit_dropped_total")
	require.Len(t, dropped, 1)
	require.Equal(t, int64(1), dropped[0].Value)
}

func TestExporterSkipsAbsentHistogram(t *testing.T) {
	reader, provider := newReader()
	exp, err := NewExporterFromSource(provider.Meter("gofactor-test"), &fakeSource{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Close() })

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Empty(t, findInt64(rm, "gofactor_verify_latency_seconds_bucket"))
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newReader()
	_, err := NewExporterFromSource(provider.Meter("gofactor-test"), nil)
	require.ErrorIs(t, err, ErrNilSource)
	_, err = NewExporterFromSource(nil, &fakeSource{})
	require.ErrorIs(t, err, ErrNilMeter)
}

func TestExporterConcurrentCollect(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{counters: map[goFactor.MetricID]uint64{goFactor.MetricTokenIssued: 1}}
	exp, err := NewExporterFromSource(provider.Meter("gofactor-test"), src)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.counters[goFactor.MetricTokenIssued] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
