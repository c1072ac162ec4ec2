package generate

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/easel-dev/easel/internal/comfy"
	"github.com/easel-dev/easel/internal/config"
	"github.com/easel-dev/easel/internal/generation"
	"github.com/easel-dev/easel/internal/history"
	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/mode"
	"github.com/easel-dev/easel/internal/tracing"
	"github.com/easel-dev/easel/internal/ui/toaster"
)

// interruptTimeout bounds the best-effort backend interrupt fired when a
// job is cancelled locally.
const interruptTimeout = 5 * time.Second

func showToast(message string, style toaster.Style) tea.Cmd {
	return func() tea.Msg {
		return mode.ShowToastMsg{Message: message, Style: style}
	}
}

func connectCmd(ctx context.Context, client *comfy.Client) tea.Cmd {
	return func() tea.Msg {
		if err := client.Connect(ctx); err != nil {
			return connectedMsg{err: err}
		}
		stats, err := client.SystemStats(ctx)
		if err != nil {
			log.Warn(log.CatComfy, "system stats unavailable", "error", err)
		}
		return connectedMsg{stats: stats}
	}
}

// loadChoicesCmd fetches the option lists the backend advertises for the
// checkpoint and sampler inputs.
func loadChoicesCmd(ctx context.Context, client *comfy.Client) tea.Cmd {
	return func() tea.Msg {
		var msg choicesLoadedMsg
		var err error
		if msg.models, err = client.ObjectInfoChoices(ctx, "CheckpointLoaderSimple", "ckpt_name"); err != nil {
			msg.err = err
			return msg
		}
		if msg.samplers, err = client.ObjectInfoChoices(ctx, "KSampler", "sampler_name"); err != nil {
			msg.err = err
			return msg
		}
		msg.schedulers, msg.err = client.ObjectInfoChoices(ctx, "KSampler", "scheduler")
		return msg
	}
}

func queueStatusCmd(ctx context.Context, client *comfy.Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.QueueStatus(ctx)
		return queueStatusMsg{status: status, err: err}
	}
}

// queueCmd builds the graph and submits it. On acceptance the returned
// message carries the job handle and the still-open job span, which the
// wait command ends.
func queueCmd(ctx context.Context, client *comfy.Client, p generation.Params) tea.Cmd {
	return func() tea.Msg {
		tracer := otel.Tracer(tracing.ScopeGeneration)
		_, span := tracer.Start(ctx, tracing.SpanGenerationJob, trace.WithAttributes(
			attribute.String(tracing.AttrModel, p.Model),
			attribute.String(tracing.AttrSampler, p.SamplerName),
			attribute.String(tracing.AttrScheduler, p.Scheduler),
			attribute.Int64(tracing.AttrSeed, p.Seed),
			attribute.Int(tracing.AttrSteps, p.Steps),
			attribute.Int(tracing.AttrWidth, p.Width),
			attribute.Int(tracing.AttrHeight, p.Height),
			attribute.Int(tracing.AttrBatchSize, p.BatchSize),
		))

		graph := generation.BuildGraph(p)
		job, err := client.QueuePrompt(ctx, graph)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return jobQueuedMsg{err: err}
		}

		span.AddEvent(tracing.EventJobQueued, trace.WithAttributes(
			attribute.String(tracing.AttrJobPrompt, job.ID()),
		))
		return jobQueuedMsg{job: job, span: span, start: time.Now()}
	}
}

// waitCmd blocks until the job finishes or the job context is cancelled,
// and closes out the job span either way.
func waitCmd(ctx context.Context, job *comfy.Job, span trace.Span, start time.Time) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-job.Done():
			outputs, err := job.Outputs()
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetAttributes(attribute.Int(tracing.AttrImages, countImages(outputs)))
			}
			span.End()
			return jobFinishedMsg{outputs: outputs, err: err, elapsed: time.Since(start)}

		case <-ctx.Done():
			span.AddEvent(tracing.EventJobInterrupted)
			span.SetStatus(codes.Error, "interrupted")
			span.End()
			return jobCancelledMsg{}
		}
	}
}

func countImages(outputs comfy.Outputs) int {
	n := 0
	for _, refs := range outputs {
		n += len(refs)
	}
	return n
}

// interruptBackend asks the backend to stop the running prompt. Fired
// and forgotten; the local job state is already torn down by the time
// this runs.
func interruptBackend(client *comfy.Client) {
	log.SafeGo("comfy-interrupt", func() {
		ctx, cancel := context.WithTimeout(context.Background(), interruptTimeout)
		defer cancel()
		if err := client.Interrupt(ctx); err != nil {
			log.ErrorErr(log.CatComfy, "interrupt failed", err)
		}
	})
}

// resolveCmd turns raw job outputs into displayable images, compositing
// the batch grid when possible.
func resolveCmd(resolver *generation.Resolver, outputs comfy.Outputs, elapsed time.Duration) tea.Cmd {
	return func() tea.Msg {
		images := resolver.Finalize(resolver.Resolve(outputs))
		return resultsMsg{images: images, elapsed: elapsed}
	}
}

func saveHistoryCmd(repo history.Repository, p generation.Params, images []generation.Image, elapsed time.Duration) tea.Cmd {
	return func() tea.Msg {
		paths := make([]string, 0, len(images))
		for _, img := range images {
			if img.Local() {
				paths = append(paths, img.Path)
			}
		}
		gen := &history.Generation{
			GUID:           uuid.NewString(),
			Model:          p.Model,
			PositivePrompt: p.PositivePrompt,
			NegativePrompt: p.NegativePrompt,
			Seed:           p.Seed,
			Steps:          p.Steps,
			CfgScale:       p.CfgScale,
			SamplerName:    p.SamplerName,
			Scheduler:      p.Scheduler,
			Width:          p.Width,
			Height:         p.Height,
			BatchSize:      p.BatchSize,
			HiresFix:       p.HiresFix,
			ImagePaths:     paths,
			DurationMS:     elapsed.Milliseconds(),
		}
		return historySavedMsg{err: repo.Save(gen)}
	}
}

// saveDefaultsCmd persists the form values to the config file's
// generation section and reports the outcome as a toast.
func saveDefaultsCmd(configPath string, gen config.GenerationConfig) tea.Cmd {
	return func() tea.Msg {
		if err := config.SaveGenerationDefaults(configPath, gen); err != nil {
			log.ErrorErr(log.CatConfig, "saving generation defaults failed", err)
			return mode.ShowToastMsg{Message: "Saving defaults failed: " + err.Error(), Style: toaster.StyleError}
		}
		log.Info(log.CatConfig, "generation defaults saved", "path", configPath)
		return mode.ShowToastMsg{Message: "Defaults saved to " + configPath, Style: toaster.StyleSuccess}
	}
}

func loadGalleryCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		images, err := scanOutputDir(dir)
		return galleryLoadedMsg{images: images, err: err}
	}
}

// scanOutputDir lists image files in the output directory, newest first.
// A missing or unset directory yields an empty gallery.
func scanOutputDir(dir string) ([]generation.Image, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	type fileEntry struct {
		name string
		mod  time.Time
	}
	var found []fileEntry
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, fileEntry{name: e.Name(), mod: info.ModTime()})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mod.After(found[j].mod) })

	images := make([]generation.Image, 0, len(found))
	for _, f := range found {
		images = append(images, generation.Image{
			Ref:  comfy.ImageRef{Filename: f.name, Type: "output"},
			Path: filepath.Join(dir, f.name),
		})
	}
	return images, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}
