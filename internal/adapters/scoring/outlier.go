package scoring

import (
	"context"
	"math"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
)

// Baseline holds per-feature location/scale estimates fitted offline by the
// training collaborator. Features absent from the map contribute no distance.
type Baseline struct {
	Mean   map[string]float64
	StdDev map[string]float64
}

// DefaultBaseline is a conservative profile for typical IoT flow traffic,
// used when no trained baseline has been shipped.
func DefaultBaseline() Baseline {
	mean := map[string]float64{
		"bytes_in": 4200, "bytes_out": 3100, "packets_in": 38, "packets_out": 30,
		"duration": 12, "src_port": 32768, "dst_port": 4000,
		"packet_size_mean": 512, "packet_size_std": 180,
		"inter_arrival_time_mean": 0.3, "inter_arrival_time_std": 0.15,
		"syn_count": 2, "ack_count": 28, "rst_count": 0.2, "fin_count": 1.5,
		"unique_dst_ips": 1.5, "unique_src_ports": 2,
	}
	std := map[string]float64{
		"bytes_in": 6000, "bytes_out": 4500, "packets_in": 45, "packets_out": 38,
		"duration": 20, "src_port": 16000, "dst_port": 9000,
		"packet_size_mean": 320, "packet_size_std": 140,
		"inter_arrival_time_mean": 0.4, "inter_arrival_time_std": 0.2,
		"syn_count": 3, "ack_count": 35, "rst_count": 1, "fin_count": 2,
		"unique_dst_ips": 2, "unique_src_ports": 3,
	}
	return Baseline{Mean: mean, StdDev: std}
}

// OutlierModel is the unsupervised scoring variant: risk only, no category.
// It measures the mean absolute z-distance of a flow from the fitted baseline
// and squashes it through a sigmoid, mirroring the score transform of the
// isolation-forest scorer it replaces.
type OutlierModel struct {
	version  string
	baseline Baseline
	timeout  time.Duration
}

func NewOutlierModel(version string, baseline Baseline, timeout time.Duration) *OutlierModel {
	return &OutlierModel{version: version, baseline: baseline, timeout: timeout}
}

func (m *OutlierModel) Version() string          { return m.version }
func (m *OutlierModel) Kind() domain.ModelKind   { return domain.ModelKindOutlier }
func (m *OutlierModel) Timeout() time.Duration   { return m.timeout }

func (m *OutlierModel) Score(ctx context.Context, v domain.FeatureVector) (domain.ModelOutput, error) {
	if err := ctx.Err(); err != nil {
		return domain.ModelOutput{}, err
	}

	var distSum float64
	var n int
	for name, value := range v.Features {
		std, ok := m.baseline.StdDev[name]
		if !ok || std == 0 {
			continue
		}
		distSum += math.Abs(value-m.baseline.Mean[name]) / std
		n++
	}

	var meanDist float64
	if n > 0 {
		meanDist = distSum / float64(n)
	}

	// Centered so a flow one deviation out on average scores ~0.5.
	risk := sigmoid(2 * (meanDist - 1.0))

	return domain.ModelOutput{
		Version:    m.version,
		Kind:       domain.ModelKindOutlier,
		Risk:       risk,
		Confidence: math.Abs(risk-0.5) * 2,
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

var _ ports.ScoringModel = (*OutlierModel)(nil)
