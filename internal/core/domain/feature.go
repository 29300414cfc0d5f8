package domain

import (
	"fmt"
	"time"
)

// FeatureNames is the canonical feature schema, in model input order.
// Every FeatureVector carries exactly these keys.
var FeatureNames = []string{
	"bytes_in", "bytes_out", "packets_in", "packets_out",
	"duration", "protocol_tcp", "protocol_udp", "protocol_icmp",
	"src_port", "dst_port", "packet_size_mean", "packet_size_std",
	"inter_arrival_time_mean", "inter_arrival_time_std",
	"syn_count", "ack_count", "rst_count", "fin_count",
	"unique_dst_ips", "unique_src_ports",
}

// FlowRecord is a raw per-flow traffic summary as delivered by a collector.
// Fields not observed by the collector are left at zero and defaulted during
// normalization; Protocol may be empty ("unknown").
type FlowRecord struct {
	SourceIP         string    `json:"source_ip"`
	DestinationIP    string    `json:"destination_ip"`
	SrcPort          int       `json:"src_port"`
	DstPort          int       `json:"dst_port"`
	Protocol         string    `json:"protocol"` // tcp, udp, icmp or empty
	BytesIn          float64   `json:"bytes_in"`
	BytesOut         float64   `json:"bytes_out"`
	PacketsIn        float64   `json:"packets_in"`
	PacketsOut       float64   `json:"packets_out"`
	Duration         float64   `json:"duration"` // seconds
	PacketSizeMean   float64   `json:"packet_size_mean"`
	PacketSizeStd    float64   `json:"packet_size_std"`
	InterArrivalMean float64   `json:"inter_arrival_time_mean"`
	InterArrivalStd  float64   `json:"inter_arrival_time_std"`
	SynCount         float64   `json:"syn_count"`
	AckCount         float64   `json:"ack_count"`
	RstCount         float64   `json:"rst_count"`
	FinCount         float64   `json:"fin_count"`
	UniqueDstIPs     float64   `json:"unique_dst_ips"`
	UniqueSrcPorts   float64   `json:"unique_src_ports"`
	Timestamp        time.Time `json:"timestamp"`
}

// FeatureVector is the fixed-schema numeric summary of one observed flow.
// It is immutable once produced and does not outlive the scoring call.
type FeatureVector struct {
	Features    map[string]float64
	Source      string
	Destination string
	Timestamp   time.Time
}

// Ordered returns feature values in canonical schema order.
func (v FeatureVector) Ordered() []float64 {
	out := make([]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		out[i] = v.Features[name]
	}
	return out
}

// SchemaError reports a malformed raw flow record. The sample is dropped by
// the caller; it is never scored as non-anomalous.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("flow record schema error: field %q: %s", e.Field, e.Reason)
}
