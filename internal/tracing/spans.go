package tracing

// Span attribute keys. These are the semantic conventions for easel
// spans; keep them stable so saved trace files stay greppable across
// versions.
const (
	// Generation job attributes
	AttrJobID     = "job.id"
	AttrJobPrompt = "job.prompt_id"
	AttrModel     = "gen.model"
	AttrSampler   = "gen.sampler"
	AttrScheduler = "gen.scheduler"
	AttrSeed      = "gen.seed"
	AttrSteps     = "gen.steps"
	AttrWidth     = "gen.width"
	AttrHeight    = "gen.height"
	AttrBatchSize = "gen.batch_size"
	AttrImages    = "gen.images"

	// Step run attributes
	AttrRunID     = "run.id"
	AttrStepName  = "step.name"
	AttrStepIndex = "step.index"
	AttrStepTotal = "step.total"

	// Extension attributes
	AttrExtensionTitle = "extension.title"
	AttrExtensionRef   = "extension.reference"
	AttrCatalogCount   = "catalog.count"
	AttrCatalogMatched = "catalog.matched"

	// Error attributes
	AttrErrorMessage = "error.message"
)

// Tracer scope names, one per instrumented subsystem.
const (
	ScopeGeneration = "easel/generation"
	ScopeSteps      = "easel/steps"
	ScopeComfy      = "easel/comfy"
	ScopeExtensions = "easel/extensions"
)

// Span names.
const (
	SpanGenerationJob = "generation.job"
	SpanStepRun       = "steps.run"
	SpanStep          = "steps.step"
	SpanCatalogSync   = "extensions.sync"
)

// Event names for span events.
const (
	EventJobQueued      = "job.queued"
	EventJobProgress    = "job.progress"
	EventJobInterrupted = "job.interrupted"
	EventImagesResolved = "images.resolved"
	EventStepStarted    = "step.started"
	EventStepFailed     = "step.failed"
	EventCatalogFetched = "catalog.fetched"
	EventCatalogMatched = "catalog.matched"
)
