package generation

import (
	"math"

	"github.com/easel-dev/easel/internal/comfy"
)

// Node names used in built graphs. The backend echoes these back in
// executing events, so they double as progress display names.
const (
	NodeCheckpoint    = "Checkpoint"
	NodeEmptyLatent   = "EmptyLatent"
	NodePositiveCLIP  = "PositiveCLIP"
	NodeNegativeCLIP  = "NegativeCLIP"
	NodeSampler       = "Sampler"
	NodeLatentUpscale = "LatentUpscale"
	NodeSampler2      = "Sampler2"
	NodeVAEDecode     = "VAEDecode"
	NodeSaveImage     = "SaveImage"
)

// OutputNodeName is the well-known node whose outputs carry the produced
// images.
const OutputNodeName = NodeSaveImage

// filenamePrefix tags backend output files as ours.
const filenamePrefix = "easel"

// BuildGraph assembles the prompt graph for the given parameters. The
// base pipeline is checkpoint -> clip encodes + empty latent -> sampler
// -> decode -> save. With HiresFix an upscale node and a second sampler
// are inserted and the decode input is rewired to the second sampler.
// Construction is deterministic and cannot fail.
func BuildGraph(p Params) *comfy.Graph {
	g := comfy.NewGraph()

	g.Add(NodeCheckpoint, "CheckpointLoaderSimple", map[string]any{
		"ckpt_name": p.Model,
	})
	g.Add(NodeEmptyLatent, "EmptyLatentImage", map[string]any{
		"width":      p.Width,
		"height":     p.Height,
		"batch_size": p.BatchSize,
	})
	g.Add(NodePositiveCLIP, "CLIPTextEncode", map[string]any{
		"text": p.PositivePrompt,
		"clip": comfy.NodeRef{Node: NodeCheckpoint, Slot: 1},
	})
	g.Add(NodeNegativeCLIP, "CLIPTextEncode", map[string]any{
		"text": p.NegativePrompt,
		"clip": comfy.NodeRef{Node: NodeCheckpoint, Slot: 1},
	})
	g.Add(NodeSampler, "KSampler", map[string]any{
		"model":        comfy.NodeRef{Node: NodeCheckpoint, Slot: 0},
		"positive":     comfy.NodeRef{Node: NodePositiveCLIP, Slot: 0},
		"negative":     comfy.NodeRef{Node: NodeNegativeCLIP, Slot: 0},
		"latent_image": comfy.NodeRef{Node: NodeEmptyLatent, Slot: 0},
		"seed":         p.Seed,
		"steps":        p.Steps,
		"cfg":          p.CfgScale,
		"sampler_name": p.SamplerName,
		"scheduler":    p.Scheduler,
		"denoise":      p.Denoise,
	})
	g.Add(NodeVAEDecode, "VAEDecode", map[string]any{
		"samples": comfy.NodeRef{Node: NodeSampler, Slot: 0},
		"vae":     comfy.NodeRef{Node: NodeCheckpoint, Slot: 2},
	})
	g.Add(NodeSaveImage, "SaveImage", map[string]any{
		"images":          comfy.NodeRef{Node: NodeVAEDecode, Slot: 0},
		"filename_prefix": filenamePrefix,
	})

	if p.HiresFix {
		addHiresPass(g, p)
	}

	return g
}

// addHiresPass inserts the upscale and second-pass sampler nodes and
// rewires the decode input to the second sampler's output.
func addHiresPass(g *comfy.Graph, p Params) {
	hires := p.Hires

	sampler := hires.SamplerName
	if sampler == "" {
		sampler = p.SamplerName
	}
	scheduler := hires.Scheduler
	if scheduler == "" {
		scheduler = p.Scheduler
	}

	g.Add(NodeLatentUpscale, "LatentUpscale", map[string]any{
		"samples":        comfy.NodeRef{Node: NodeSampler, Slot: 0},
		"upscale_method": hires.UpscaleMethod,
		"width":          scaleDimension(p.Width, hires.Scale),
		"height":         scaleDimension(p.Height, hires.Scale),
		"crop":           "disabled",
	})
	g.Add(NodeSampler2, "KSampler", map[string]any{
		"model":        comfy.NodeRef{Node: NodeCheckpoint, Slot: 0},
		"positive":     comfy.NodeRef{Node: NodePositiveCLIP, Slot: 0},
		"negative":     comfy.NodeRef{Node: NodeNegativeCLIP, Slot: 0},
		"latent_image": comfy.NodeRef{Node: NodeLatentUpscale, Slot: 0},
		"seed":         p.Seed,
		"steps":        hires.Steps,
		"cfg":          hires.CfgScale,
		"sampler_name": sampler,
		"scheduler":    scheduler,
		"denoise":      hires.Denoise,
	})
	g.SetInput(NodeVAEDecode, "samples", comfy.NodeRef{Node: NodeSampler2, Slot: 0})
}

// scaleDimension applies the hires scale factor to a base dimension.
func scaleDimension(base int, scale float64) int {
	if scale <= 0 {
		return base
	}
	return int(math.Round(float64(base) * scale))
}
