package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netwarden/netwarden/internal/core/domain"
)

func featuresFrom(overrides map[string]float64) domain.FeatureVector {
	features := make(map[string]float64, len(domain.FeatureNames))
	for _, name := range domain.FeatureNames {
		features[name] = 0
	}
	for k, v := range overrides {
		features[k] = v
	}
	return domain.FeatureVector{
		Features:    features,
		Source:      "10.0.0.5",
		Destination: "10.0.0.9",
		Timestamp:   time.Now().UTC(),
	}
}

func TestClassifierModel_DetectsPortScan(t *testing.T) {
	m := NewClassifierModel("clf-v1", time.Second)

	out, err := m.Score(context.Background(), featuresFrom(map[string]float64{
		"protocol_tcp":     1,
		"unique_src_ports": 120,
		"unique_dst_ips":   15,
		"syn_count":        60,
		"ack_count":        3,
		"rst_count":        40,
		"packet_size_mean": 48,
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryPortScan, out.Category)
	assert.True(t, out.Valid())
	assert.GreaterOrEqual(t, out.Confidence, 0.5)
	assert.Greater(t, out.Risk, 0.3)
}

func TestClassifierModel_DetectsDDoS(t *testing.T) {
	m := NewClassifierModel("clf-v1", time.Second)

	out, err := m.Score(context.Background(), featuresFrom(map[string]float64{
		"protocol_tcp": 1,
		"packets_in":   20000,
		"bytes_in":     8e6,
		"syn_count":    15000,
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryDDoS, out.Category)
	assert.Greater(t, out.Risk, 0.6)
}

func TestClassifierModel_DetectsExfiltration(t *testing.T) {
	m := NewClassifierModel("clf-v1", time.Second)

	out, err := m.Score(context.Background(), featuresFrom(map[string]float64{
		"protocol_tcp": 1,
		"bytes_in":     4000,
		"bytes_out":    4e7,
		"packets_out":  30000,
		"duration":     1800,
		"dst_port":     443,
		"syn_count":    1,
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryExfiltration, out.Category)
	assert.Greater(t, out.Risk, 0.6)
}

func TestClassifierModel_DetectsUnauthorizedAccess(t *testing.T) {
	m := NewClassifierModel("clf-v1", time.Second)

	out, err := m.Score(context.Background(), featuresFrom(map[string]float64{
		"protocol_tcp": 1,
		"dst_port":     22,
		"syn_count":    25,
		"ack_count":    10,
		"rst_count":    15,
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryUnauthorized, out.Category)
}

func TestClassifierModel_BenignTelemetryIsNormal(t *testing.T) {
	m := NewClassifierModel("clf-v1", time.Second)

	out, err := m.Score(context.Background(), featuresFrom(map[string]float64{
		"protocol_tcp":            1,
		"bytes_in":                2000,
		"bytes_out":               60000,
		"packets_in":              20,
		"packets_out":             18,
		"duration":                10,
		"dst_port":                1883,
		"packet_size_mean":        400,
		"inter_arrival_time_mean": 0.3,
		"inter_arrival_time_std":  0.4,
		"syn_count":               1,
		"ack_count":               18,
		"fin_count":               1,
		"unique_dst_ips":          1,
		"unique_src_ports":        1,
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryNormal, out.Category)
	assert.Less(t, out.Risk, 0.3)
	assert.Greater(t, out.Confidence, 0.5)
}

func TestClassifierModel_RiskStaysInRange(t *testing.T) {
	m := NewClassifierModel("clf-v1", time.Second)

	// extreme values on every axis at once
	out, err := m.Score(context.Background(), featuresFrom(map[string]float64{
		"protocol_tcp":     1,
		"bytes_in":         1e9,
		"bytes_out":        1e9,
		"packets_in":       1e6,
		"packets_out":      1e6,
		"syn_count":        1e6,
		"rst_count":        1e6,
		"unique_src_ports": 1e5,
		"unique_dst_ips":   1e5,
		"duration":         1e5,
		"dst_port":         65535,
	}))
	require.NoError(t, err)
	assert.True(t, out.Valid())
}

func TestClassifierModel_CancelledContext(t *testing.T) {
	m := NewClassifierModel("clf-v1", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Score(ctx, featuresFrom(nil))
	assert.Error(t, err)
}

func TestOutlierModel_BaselineTrafficScoresLow(t *testing.T) {
	m := NewOutlierModel("out-v1", DefaultBaseline(), time.Second)
	base := DefaultBaseline()

	// a flow sitting exactly on the baseline mean
	overrides := make(map[string]float64, len(base.Mean))
	for k, v := range base.Mean {
		overrides[k] = v
	}
	out, err := m.Score(context.Background(), featuresFrom(overrides))
	require.NoError(t, err)

	assert.Less(t, out.Risk, 0.3)
	assert.True(t, out.Valid())
	assert.Equal(t, domain.Category(""), out.Category, "outlier model never assigns a category")
}

func TestOutlierModel_ExtremeTrafficScoresHigh(t *testing.T) {
	m := NewOutlierModel("out-v1", DefaultBaseline(), time.Second)

	out, err := m.Score(context.Background(), featuresFrom(map[string]float64{
		"bytes_in":    1e8,
		"bytes_out":   1e8,
		"packets_in":  1e5,
		"packets_out": 1e5,
		"syn_count":   5e4,
		"rst_count":   1e4,
		"duration":    9000,
	}))
	require.NoError(t, err)

	assert.Greater(t, out.Risk, 0.85)
	assert.Greater(t, out.Confidence, 0.7)
}

func TestOutlierModel_EmptyBaseline(t *testing.T) {
	m := NewOutlierModel("out-v1", Baseline{}, time.Second)

	out, err := m.Score(context.Background(), featuresFrom(nil))
	require.NoError(t, err)
	assert.True(t, out.Valid())
}
