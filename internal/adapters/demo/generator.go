// Package demo is a stand-in for the detection backend: it fabricates
// prediction batches and serves them over the same HTTP API the dashboard
// polls, so idswatch can be exercised without a capture host.
package demo

import (
	"fmt"
	"math/rand"
	"net/netip"
	"strconv"
	"sync"
	"time"
)

// Classifier output as the backend reports it.
const (
	ClassNormal    = 0
	ClassAnomaly   = 1
	ClassUncertain = -1
)

const (
	anomalyThreshold   = 0.7
	uncertainThreshold = 0.4
)

type Prediction struct {
	Seq           uint64
	SourceIP      netip.Addr
	Class         int
	IntrusionProb float64
	At            time.Time
}

// Classify maps an intrusion probability onto the classifier's three classes.
func Classify(prob float64) int {
	switch {
	case prob >= anomalyThreshold:
		return ClassAnomaly
	case prob >= uncertainThreshold:
		return ClassUncertain
	default:
		return ClassNormal
	}
}

type GeneratorConfig struct {
	BatchSize      int
	AnomalyPercent int
	Seed           int64
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		BatchSize:      25,
		AnomalyPercent: 15,
	}
}

// Generator produces one batch of predictions per capture. Sequence numbers
// keep increasing across batches.
type Generator struct {
	batchSize      int
	anomalyPercent int

	mu          sync.Mutex
	rng         *rand.Rand
	seq         uint64
	normalIPs   []netip.Addr
	attackerIPs []netip.Addr
	now         func() time.Time
}

func NewGenerator(config GeneratorConfig) *Generator {
	if config.BatchSize <= 0 {
		config.BatchSize = 25
	}
	if config.AnomalyPercent < 0 {
		config.AnomalyPercent = 0
	}
	if config.AnomalyPercent > 100 {
		config.AnomalyPercent = 100
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		batchSize:      config.BatchSize,
		anomalyPercent: config.AnomalyPercent,
		rng:            rand.New(rand.NewSource(seed)),
		normalIPs: generateIPPool(512, []string{
			"192.168.", "10.0.", "10.1.", "172.16.", "172.17.",
		}),
		attackerIPs: generateIPPool(128, []string{
			"45.33.", "185.220.", "89.234.", "91.121.", "51.15.",
			"104.244.", "198.98.", "209.141.",
		}),
		now: time.Now,
	}
}

// Capture returns a fresh batch, oldest first, with timestamps spread over
// the second before the call.
func (g *Generator) Capture() []Prediction {
	g.mu.Lock()
	defer g.mu.Unlock()

	end := g.now()
	step := time.Second / time.Duration(g.batchSize)
	out := make([]Prediction, g.batchSize)
	for i := range out {
		g.seq++
		out[i] = g.predict(g.seq, end.Add(-time.Duration(g.batchSize-1-i)*step))
	}
	return out
}

func (g *Generator) predict(seq uint64, at time.Time) Prediction {
	p := Prediction{Seq: seq, At: at}

	if g.rng.Intn(100) < g.anomalyPercent {
		p.SourceIP = g.attackerIPs[g.rng.Intn(len(g.attackerIPs))]
		// half of the suspicious draws fall in the uncertain band
		p.IntrusionProb = uncertainThreshold + g.rng.Float64()*(1-uncertainThreshold)
	} else {
		p.SourceIP = g.normalIPs[g.rng.Intn(len(g.normalIPs))]
		p.IntrusionProb = g.rng.Float64() * uncertainThreshold
	}
	p.Class = Classify(p.IntrusionProb)
	return p
}

func (p Prediction) ID() string { return strconv.FormatUint(p.Seq, 10) }

func (p Prediction) AlertType() string {
	switch p.Class {
	case ClassAnomaly:
		return "Anomaly Detected"
	case ClassUncertain:
		return "Uncertain"
	default:
		return "Normal"
	}
}

func (p Prediction) LogType() string {
	if p.Class == ClassAnomaly {
		return "Anomaly"
	}
	return p.AlertType()
}

func (p Prediction) Severity() string {
	switch p.Class {
	case ClassAnomaly:
		return "High"
	case ClassUncertain:
		return "Medium"
	default:
		return "Low"
	}
}

func (p Prediction) AlertDetails() string {
	return fmt.Sprintf("Intrusion probability: %.2f", p.IntrusionProb)
}

func (p Prediction) LogDetails() string {
	return fmt.Sprintf("Prob: %.2f, Raw Class: %d", p.IntrusionProb, p.Class)
}

func generateIPPool(count int, prefixes []string) []netip.Addr {
	ips := make([]netip.Addr, 0, count)
	perPrefix := count / len(prefixes)
	remainder := count % len(prefixes)

	for i, prefix := range prefixes {
		n := perPrefix
		if i < remainder {
			n++
		}
		for j := 0; j < n; j++ {
			third := (j / 256) % 256
			fourth := j % 256
			if fourth == 0 {
				fourth = 1
			}
			if addr, err := netip.ParseAddr(prefix + strconv.Itoa(third) + "." + strconv.Itoa(fourth)); err == nil {
				ips = append(ips, addr)
			}
		}
	}
	return ips
}
