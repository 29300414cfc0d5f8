package normalizer

import (
	"strings"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
)

// Normalizer converts raw flow records into fixed-schema feature vectors.
// It is a pure transformation: no state, no side effects.
type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

// Normalize validates a raw flow record and produces its feature vector.
// Malformed or out-of-range values are rejected with a SchemaError rather
// than silently coerced. Missing counters default to zero; an unrecognized
// protocol maps to the "unknown" encoding (all protocol features zero).
func (n *Normalizer) Normalize(rec domain.FlowRecord) (domain.FeatureVector, error) {
	if rec.SourceIP == "" {
		return domain.FeatureVector{}, &domain.SchemaError{Field: "source_ip", Reason: "required"}
	}
	if rec.DestinationIP == "" {
		return domain.FeatureVector{}, &domain.SchemaError{Field: "destination_ip", Reason: "required"}
	}
	if err := checkPort("src_port", rec.SrcPort); err != nil {
		return domain.FeatureVector{}, err
	}
	if err := checkPort("dst_port", rec.DstPort); err != nil {
		return domain.FeatureVector{}, err
	}
	if rec.Duration < 0 {
		return domain.FeatureVector{}, &domain.SchemaError{Field: "duration", Reason: "must not be negative"}
	}

	counters := map[string]float64{
		"bytes_in":    rec.BytesIn,
		"bytes_out":   rec.BytesOut,
		"packets_in":  rec.PacketsIn,
		"packets_out": rec.PacketsOut,
		"syn_count":   rec.SynCount,
		"ack_count":   rec.AckCount,
		"rst_count":   rec.RstCount,
		"fin_count":   rec.FinCount,
	}
	for field, v := range counters {
		if v < 0 {
			return domain.FeatureVector{}, &domain.SchemaError{Field: field, Reason: "must not be negative"}
		}
	}
	if rec.PacketSizeStd < 0 {
		return domain.FeatureVector{}, &domain.SchemaError{Field: "packet_size_std", Reason: "must not be negative"}
	}
	if rec.InterArrivalStd < 0 {
		return domain.FeatureVector{}, &domain.SchemaError{Field: "inter_arrival_time_std", Reason: "must not be negative"}
	}

	tcp, udp, icmp := protocolOneHot(rec.Protocol)

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	features := map[string]float64{
		"bytes_in":                rec.BytesIn,
		"bytes_out":               rec.BytesOut,
		"packets_in":              rec.PacketsIn,
		"packets_out":             rec.PacketsOut,
		"duration":                rec.Duration,
		"protocol_tcp":            tcp,
		"protocol_udp":            udp,
		"protocol_icmp":           icmp,
		"src_port":                float64(rec.SrcPort),
		"dst_port":                float64(rec.DstPort),
		"packet_size_mean":        rec.PacketSizeMean,
		"packet_size_std":         rec.PacketSizeStd,
		"inter_arrival_time_mean": rec.InterArrivalMean,
		"inter_arrival_time_std":  rec.InterArrivalStd,
		"syn_count":               rec.SynCount,
		"ack_count":               rec.AckCount,
		"rst_count":               rec.RstCount,
		"fin_count":               rec.FinCount,
		"unique_dst_ips":          rec.UniqueDstIPs,
		"unique_src_ports":        rec.UniqueSrcPorts,
	}

	return domain.FeatureVector{
		Features:    features,
		Source:      rec.SourceIP,
		Destination: rec.DestinationIP,
		Timestamp:   ts,
	}, nil
}

func checkPort(field string, port int) error {
	if port < 0 || port > 65535 {
		return &domain.SchemaError{Field: field, Reason: "must be in [0, 65535]"}
	}
	return nil
}

// protocolOneHot encodes the transport protocol. Unknown protocols encode as
// all zeros, the documented "unknown" sentinel.
func protocolOneHot(proto string) (tcp, udp, icmp float64) {
	switch strings.ToLower(strings.TrimSpace(proto)) {
	case "tcp":
		tcp = 1
	case "udp":
		udp = 1
	case "icmp":
		icmp = 1
	}
	return
}
