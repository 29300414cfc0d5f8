package mock

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
)

// Subnets the simulated fleet lives in.
var deviceSubnets = []string{"192.168.1", "192.168.2", "10.0.0", "10.0.1"}

// Typical IoT service ports for benign traffic.
var benignDstPorts = []int{80, 443, 1883, 8883, 5683, 123, 53, 8080}

var protocols = []string{"tcp", "udp", "icmp"}

// FlowGenerator produces synthetic traffic summaries for a simulated IoT
// fleet. Most flows are benign telemetry; a configurable fraction mimics the
// attack patterns the classifiers look for.
type FlowGenerator struct {
	rand       *rand.Rand
	devices    []string
	attackRate float64
}

// NewFlowGenerator builds a generator over a fleet of the given size.
// attackRate is the fraction of generated flows that carry attack traits.
func NewFlowGenerator(fleetSize int, attackRate float64) *FlowGenerator {
	if fleetSize < 2 {
		fleetSize = 2
	}
	if attackRate < 0 {
		attackRate = 0
	}
	if attackRate > 1 {
		attackRate = 1
	}

	g := &FlowGenerator{
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		attackRate: attackRate,
	}
	for i := 0; i < fleetSize; i++ {
		subnet := deviceSubnets[g.rand.Intn(len(deviceSubnets))]
		g.devices = append(g.devices, fmt.Sprintf("%s.%d", subnet, 2+g.rand.Intn(250)))
	}
	return g
}

// Next produces one flow record.
func (g *FlowGenerator) Next() domain.FlowRecord {
	if g.rand.Float64() < g.attackRate {
		return g.attackFlow()
	}
	return g.benignFlow()
}

// benignFlow models periodic sensor telemetry: small payloads, low fan-out,
// regular timing.
func (g *FlowGenerator) benignFlow() domain.FlowRecord {
	packetsOut := 10 + g.rand.Float64()*40
	packetsIn := packetsOut * (0.8 + g.rand.Float64()*0.4)

	return domain.FlowRecord{
		SourceIP:         g.pickDevice(),
		DestinationIP:    g.pickDevice(),
		SrcPort:          1024 + g.rand.Intn(64000),
		DstPort:          benignDstPorts[g.rand.Intn(len(benignDstPorts))],
		Protocol:         protocols[g.rand.Intn(2)], // tcp or udp
		BytesIn:          800 + g.rand.Float64()*2400,
		BytesOut:         600 + g.rand.Float64()*1800,
		PacketsIn:        packetsIn,
		PacketsOut:       packetsOut,
		Duration:         1 + g.rand.Float64()*29,
		PacketSizeMean:   300 + g.rand.Float64()*400,
		PacketSizeStd:    20 + g.rand.Float64()*80,
		InterArrivalMean: 0.05 + g.rand.Float64()*0.4,
		InterArrivalStd:  0.01 + g.rand.Float64()*0.05,
		SynCount:         1 + g.rand.Float64()*2,
		AckCount:         packetsIn * 0.9,
		RstCount:         0,
		FinCount:         1,
		UniqueDstIPs:     1 + g.rand.Float64()*3,
		UniqueSrcPorts:   1 + g.rand.Float64()*2,
		Timestamp:        time.Now().UTC(),
	}
}

// attackFlow picks one of the simulated attack shapes.
func (g *FlowGenerator) attackFlow() domain.FlowRecord {
	switch g.rand.Intn(4) {
	case 0:
		return g.portScanFlow()
	case 1:
		return g.ddosFlow()
	case 2:
		return g.exfiltrationFlow()
	default:
		return g.bruteForceFlow()
	}
}

// portScanFlow: many source ports probing, tiny short-lived flows, RST-heavy.
func (g *FlowGenerator) portScanFlow() domain.FlowRecord {
	return domain.FlowRecord{
		SourceIP:         g.pickDevice(),
		DestinationIP:    g.pickDevice(),
		SrcPort:          1024 + g.rand.Intn(64000),
		DstPort:          1 + g.rand.Intn(1024),
		Protocol:         "tcp",
		BytesIn:          40 + g.rand.Float64()*80,
		BytesOut:         40 + g.rand.Float64()*60,
		PacketsIn:        1 + g.rand.Float64()*3,
		PacketsOut:       2 + g.rand.Float64()*4,
		Duration:         0.01 + g.rand.Float64()*0.4,
		PacketSizeMean:   40 + g.rand.Float64()*20,
		PacketSizeStd:    2 + g.rand.Float64()*6,
		InterArrivalMean: 0.001 + g.rand.Float64()*0.01,
		InterArrivalStd:  0.001,
		SynCount:         30 + g.rand.Float64()*80,
		AckCount:         1 + g.rand.Float64()*4,
		RstCount:         20 + g.rand.Float64()*60,
		FinCount:         0,
		UniqueDstIPs:     1 + g.rand.Float64()*4,
		UniqueSrcPorts:   60 + g.rand.Float64()*200,
		Timestamp:        time.Now().UTC(),
	}
}

// ddosFlow: massive outbound packet rate, high SYN count, minimal replies.
func (g *FlowGenerator) ddosFlow() domain.FlowRecord {
	packetsOut := 5000 + g.rand.Float64()*20000
	return domain.FlowRecord{
		SourceIP:         g.pickDevice(),
		DestinationIP:    g.pickDevice(),
		SrcPort:          1024 + g.rand.Intn(64000),
		DstPort:          80,
		Protocol:         "tcp",
		BytesIn:          100 + g.rand.Float64()*400,
		BytesOut:         packetsOut * 60,
		PacketsIn:        2 + g.rand.Float64()*10,
		PacketsOut:       packetsOut,
		Duration:         5 + g.rand.Float64()*30,
		PacketSizeMean:   60 + g.rand.Float64()*20,
		PacketSizeStd:    4 + g.rand.Float64()*8,
		InterArrivalMean: 0.0001,
		InterArrivalStd:  0.0001,
		SynCount:         packetsOut * 0.9,
		AckCount:         1 + g.rand.Float64()*5,
		RstCount:         0,
		FinCount:         0,
		UniqueDstIPs:     1,
		UniqueSrcPorts:   1 + g.rand.Float64()*3,
		Timestamp:        time.Now().UTC(),
	}
}

// exfiltrationFlow: long-lived, heavily outbound-skewed transfer.
func (g *FlowGenerator) exfiltrationFlow() domain.FlowRecord {
	bytesOut := 5e6 + g.rand.Float64()*5e7
	return domain.FlowRecord{
		SourceIP:         g.pickDevice(),
		DestinationIP:    fmt.Sprintf("203.0.113.%d", 1+g.rand.Intn(254)),
		SrcPort:          1024 + g.rand.Intn(64000),
		DstPort:          443,
		Protocol:         "tcp",
		BytesIn:          1000 + g.rand.Float64()*9000,
		BytesOut:         bytesOut,
		PacketsIn:        50 + g.rand.Float64()*200,
		PacketsOut:       bytesOut / 1400,
		Duration:         300 + g.rand.Float64()*3300,
		PacketSizeMean:   1200 + g.rand.Float64()*200,
		PacketSizeStd:    100 + g.rand.Float64()*100,
		InterArrivalMean: 0.01 + g.rand.Float64()*0.05,
		InterArrivalStd:  0.005,
		SynCount:         1,
		AckCount:         bytesOut / 2800,
		RstCount:         0,
		FinCount:         0,
		UniqueDstIPs:     1,
		UniqueSrcPorts:   1,
		Timestamp:        time.Now().UTC(),
	}
}

// bruteForceFlow: repeated short connections against an admin port.
func (g *FlowGenerator) bruteForceFlow() domain.FlowRecord {
	adminPorts := []int{22, 23, 3389, 5900}
	return domain.FlowRecord{
		SourceIP:         g.pickDevice(),
		DestinationIP:    g.pickDevice(),
		SrcPort:          1024 + g.rand.Intn(64000),
		DstPort:          adminPorts[g.rand.Intn(len(adminPorts))],
		Protocol:         "tcp",
		BytesIn:          200 + g.rand.Float64()*600,
		BytesOut:         300 + g.rand.Float64()*900,
		PacketsIn:        5 + g.rand.Float64()*15,
		PacketsOut:       8 + g.rand.Float64()*20,
		Duration:         0.5 + g.rand.Float64()*3,
		PacketSizeMean:   80 + g.rand.Float64()*60,
		PacketSizeStd:    10 + g.rand.Float64()*20,
		InterArrivalMean: 0.02 + g.rand.Float64()*0.1,
		InterArrivalStd:  0.01,
		SynCount:         8 + g.rand.Float64()*30,
		AckCount:         5 + g.rand.Float64()*15,
		RstCount:         4 + g.rand.Float64()*20,
		FinCount:         2 + g.rand.Float64()*8,
		UniqueDstIPs:     1 + g.rand.Float64()*2,
		UniqueSrcPorts:   10 + g.rand.Float64()*40,
		Timestamp:        time.Now().UTC(),
	}
}

func (g *FlowGenerator) pickDevice() string {
	return g.devices[g.rand.Intn(len(g.devices))]
}
