// Package generation builds text-to-image prompt graphs from parameter
// state and resolves finished jobs into displayable results.
package generation

import (
	"math/rand"
)

// Params is the full text-to-image parameter state. Zero or empty fields
// propagate into the graph as-is; the backend owns rejecting them.
type Params struct {
	Model          string
	Width          int
	Height         int
	BatchSize      int
	Seed           int64
	RandomizeSeed  bool
	Steps          int
	CfgScale       float64
	SamplerName    string
	Scheduler      string
	Denoise        float64
	PositivePrompt string
	NegativePrompt string

	HiresFix bool
	Hires    HiresParams
}

// HiresParams configures the optional second upscale-and-resample pass.
// SamplerName and Scheduler fall back to the first pass's values when
// unset.
type HiresParams struct {
	UpscaleMethod string
	Scale         float64
	Steps         int
	CfgScale      float64
	SamplerName   string
	Scheduler     string
	Denoise       float64
}

// NewSeed returns a fresh non-negative random seed.
func NewSeed() int64 {
	return rand.Int63()
}
