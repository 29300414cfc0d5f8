package scoring

import (
	"context"
	"math"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
)

// severityWeights scale the fused risk per attack class.
var severityWeights = map[domain.Category]float64{
	domain.CategoryDDoS:            0.9,
	domain.CategoryMalware:         0.95,
	domain.CategoryBotnet:          0.85,
	domain.CategoryExfiltration:    0.9,
	domain.CategoryUnauthorized:    0.8,
	domain.CategoryPortScan:        0.6,
	domain.CategoryProtocolAnomaly: 0.5,
}

// adminPorts are remote-management targets watched for brute-force evidence.
var adminPorts = map[float64]bool{22: true, 23: true, 3389: true, 5900: true}

// ClassifierModel is the supervised scoring variant: it assigns an attack
// class with a confidence margin. Evidence scoring over the flow features
// stands in for the tree ensemble the training pipeline ships.
type ClassifierModel struct {
	version string
	timeout time.Duration
}

func NewClassifierModel(version string, timeout time.Duration) *ClassifierModel {
	return &ClassifierModel{version: version, timeout: timeout}
}

func (m *ClassifierModel) Version() string        { return m.version }
func (m *ClassifierModel) Kind() domain.ModelKind { return domain.ModelKindClassifier }
func (m *ClassifierModel) Timeout() time.Duration { return m.timeout }

func (m *ClassifierModel) Score(ctx context.Context, v domain.FeatureVector) (domain.ModelOutput, error) {
	if err := ctx.Err(); err != nil {
		return domain.ModelOutput{}, err
	}

	f := v.Features
	evidence := map[domain.Category]float64{
		domain.CategoryPortScan:        scorePortScan(f),
		domain.CategoryDDoS:            scoreDDoS(f),
		domain.CategoryExfiltration:    scoreExfiltration(f),
		domain.CategoryUnauthorized:    scoreUnauthorized(f),
		domain.CategoryBotnet:          scoreBotnet(f),
		domain.CategoryProtocolAnomaly: scoreProtocolAnomaly(f),
		domain.CategoryMalware:         scoreMalware(f),
	}

	best := domain.CategoryNormal
	var bestScore, secondScore float64
	for cat, score := range evidence {
		if score > bestScore {
			secondScore = bestScore
			bestScore, best = score, cat
		} else if score > secondScore {
			secondScore = score
		}
	}

	// Weak evidence across the board reads as normal traffic.
	if bestScore < 0.35 {
		return domain.ModelOutput{
			Version:    m.version,
			Kind:       domain.ModelKindClassifier,
			Risk:       bestScore * 0.3,
			Category:   domain.CategoryNormal,
			Confidence: 1 - bestScore,
		}, nil
	}

	// Confidence grows with evidence strength and the margin over the runner-up.
	confidence := clamp01(bestScore*0.7 + (bestScore-secondScore)*0.3)
	risk := clamp01(confidence*0.5 + severityWeights[best]*0.5)

	return domain.ModelOutput{
		Version:    m.version,
		Kind:       domain.ModelKindClassifier,
		Risk:       risk,
		Category:   best,
		Confidence: confidence,
	}, nil
}

// scorePortScan: many short probes, little payload, wide port/address fan-out.
func scorePortScan(f map[string]float64) float64 {
	fanOut := saturate(f["unique_src_ports"], 30) * 0.4
	fanOut += saturate(f["unique_dst_ips"], 20) * 0.2
	probes := saturate(f["syn_count"]-f["ack_count"], 25) * 0.3
	small := 0.0
	if f["packet_size_mean"] > 0 && f["packet_size_mean"] < 120 {
		small = 0.1
	}
	return clamp01(fanOut + probes + small)
}

// scoreDDoS: overwhelming inbound volume with a SYN skew.
func scoreDDoS(f map[string]float64) float64 {
	volume := saturate(f["packets_in"], 5000) * 0.5
	volume += saturate(f["bytes_in"], 5e6) * 0.2
	synSkew := 0.0
	if f["packets_in"] > 100 && f["syn_count"] > f["packets_in"]*0.5 {
		synSkew = 0.3
	}
	return clamp01(volume + synSkew)
}

// scoreExfiltration: outbound volume dwarfing inbound over a long flow.
func scoreExfiltration(f map[string]float64) float64 {
	if f["bytes_out"] < 1e5 {
		return 0
	}
	ratio := f["bytes_out"] / math.Max(f["bytes_in"], 1)
	s := saturate(ratio, 20) * 0.6
	s += saturate(f["duration"], 600) * 0.2
	s += saturate(f["bytes_out"], 5e7) * 0.2
	return clamp01(s)
}

// scoreUnauthorized: repeated connection attempts against admin ports.
func scoreUnauthorized(f map[string]float64) float64 {
	if !adminPorts[f["dst_port"]] {
		return 0
	}
	attempts := saturate(f["syn_count"], 15) * 0.6
	failures := saturate(f["rst_count"], 10) * 0.4
	return clamp01(attempts + failures)
}

// scoreBotnet: low-volume, metronome-regular beaconing to one destination.
func scoreBotnet(f map[string]float64) float64 {
	if f["inter_arrival_time_mean"] <= 0 || f["packets_out"] < 5 {
		return 0
	}
	regularity := 1 - clamp01(f["inter_arrival_time_std"]/f["inter_arrival_time_mean"])
	smallFlow := 1 - saturate(f["bytes_out"], 1e5)
	highPort := 0.0
	if f["dst_port"] > 10000 {
		highPort = 0.2
	}
	return clamp01(regularity*0.5 + smallFlow*0.3 + highPort)
}

// scoreProtocolAnomaly: flag sequences or ICMP use that violate the protocol.
func scoreProtocolAnomaly(f map[string]float64) float64 {
	s := 0.0
	if f["protocol_icmp"] == 1 && f["bytes_out"] > 1e4 {
		s += 0.6 // ICMP should not carry payload volume
	}
	if f["fin_count"] > f["syn_count"]+5 {
		s += 0.3
	}
	if f["protocol_tcp"] == 1 && f["syn_count"] == 0 && f["packets_out"] > 20 {
		s += 0.3
	}
	return clamp01(s)
}

// scoreMalware: combined beaconing and exfiltration signals on odd ports.
func scoreMalware(f map[string]float64) float64 {
	combo := scoreBotnet(f)*0.5 + scoreExfiltration(f)*0.4
	if f["dst_port"] > 49152 {
		combo += 0.1
	}
	return clamp01(combo)
}

// saturate maps value/scale into [0,1] with a hard ceiling.
func saturate(value, scale float64) float64 {
	if value <= 0 {
		return 0
	}
	return clamp01(value / scale)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

var _ ports.ScoringModel = (*ClassifierModel)(nil)
