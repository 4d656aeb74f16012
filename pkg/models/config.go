package models

import "fmt"

// Weights is the scorer's (w_e, w_f, w_r) tuple (§4.8). Must sum to 1.
type Weights struct {
	Efficiency  float64 `yaml:"efficiency"`
	Fairness    float64 `yaml:"fairness"`
	Reliability float64 `yaml:"reliability"`
}

// TenantConfig is the full set of tuning knobs enumerated in §6. Every
// tenant carries its own copy so one tenant's load characteristics never
// affect another's (§5 "distinct tenants are independent").
type TenantConfig struct {
	MaxDepth               int     `yaml:"maxDepth"`
	MaxCyclesPerSCC        int     `yaml:"maxCyclesPerSCC"`
	MaxSCCConcurrency      int     `yaml:"maxSCCConcurrency"`
	LargeSCCThreshold      int     `yaml:"largeSCCThreshold"`
	DebounceWindowMs       int     `yaml:"debounceWindowMs"`
	ComputeDeadlineMs      int     `yaml:"computeDeadlineMs"`
	QualityThreshold       float64 `yaml:"qualityThreshold"`
	Weights                Weights `yaml:"weights"`
	BloomFalsePositiveRate float64 `yaml:"bloomFalsePositiveRate"`
	MaxQueuedMutations     int     `yaml:"maxQueuedMutations"`
	CancellationCheckEdges int     `yaml:"cancellationCheckEdges"`
}

// DefaultTenantConfig returns the spec's documented defaults (§6).
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		MaxDepth:          10,
		MaxCyclesPerSCC:   1000,
		MaxSCCConcurrency: 6,
		LargeSCCThreshold: 500,
		DebounceWindowMs:  25,
		ComputeDeadlineMs: 30000,
		QualityThreshold:  0.5,
		Weights: Weights{
			Efficiency:  0.40,
			Fairness:    0.30,
			Reliability: 0.30,
		},
		BloomFalsePositiveRate: 1e-3,
		MaxQueuedMutations:     10000,
		CancellationCheckEdges: 4096,
	}
}

// Validate clamps nothing and rejects nothing silently: a misconfigured
// tenant should fail loudly at setup time rather than behave unpredictably
// mid-round.
func (c TenantConfig) Validate() error {
	if c.MaxDepth < 2 || c.MaxDepth > 15 {
		return fmt.Errorf("maxDepth must be in [2,15], got %d", c.MaxDepth)
	}
	if c.MaxCyclesPerSCC < 100 || c.MaxCyclesPerSCC > 10000 {
		return fmt.Errorf("maxCyclesPerSCC must be in [100,10000], got %d", c.MaxCyclesPerSCC)
	}
	if c.MaxSCCConcurrency < 1 || c.MaxSCCConcurrency > 32 {
		return fmt.Errorf("maxSCCConcurrency must be in [1,32], got %d", c.MaxSCCConcurrency)
	}
	if c.LargeSCCThreshold < 50 || c.LargeSCCThreshold > 5000 {
		return fmt.Errorf("largeSCCThreshold must be in [50,5000], got %d", c.LargeSCCThreshold)
	}
	if c.DebounceWindowMs < 0 || c.DebounceWindowMs > 250 {
		return fmt.Errorf("debounceWindowMs must be in [0,250], got %d", c.DebounceWindowMs)
	}
	if c.ComputeDeadlineMs < 1000 || c.ComputeDeadlineMs > 120000 {
		return fmt.Errorf("computeDeadlineMs must be in [1000,120000], got %d", c.ComputeDeadlineMs)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return fmt.Errorf("qualityThreshold must be in [0,1], got %f", c.QualityThreshold)
	}
	sum := c.Weights.Efficiency + c.Weights.Fairness + c.Weights.Reliability
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("weights must sum to 1, got %f", sum)
	}
	if c.BloomFalsePositiveRate < 1e-5 || c.BloomFalsePositiveRate > 1e-2 {
		return fmt.Errorf("bloomFalsePositiveRate must be in [1e-5,1e-2], got %f", c.BloomFalsePositiveRate)
	}
	return nil
}
