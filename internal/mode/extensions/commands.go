package extensions

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ext "github.com/easel-dev/easel/internal/extensions"
	"github.com/easel-dev/easel/internal/mode"
	"github.com/easel-dev/easel/internal/steps"
	"github.com/easel-dev/easel/internal/tracing"
	"github.com/easel-dev/easel/internal/ui/toaster"
)

// showToast requests a toast from the app shell.
func showToast(message string, style toaster.Style) tea.Cmd {
	return func() tea.Msg {
		return mode.ShowToastMsg{Message: message, Style: style}
	}
}

// refreshCmd fetches the available catalog and scans the installed
// directory. The two sources fail independently so one being down never
// hides the other. When both load, the command reconciles them right
// away and marks the message synced.
func refreshCmd(ctx context.Context, index *ext.Index, scanner *ext.InstalledScanner, packageDir string) tea.Cmd {
	return func() tea.Msg {
		tracer := otel.Tracer(tracing.ScopeExtensions)
		ctx, span := tracer.Start(ctx, tracing.SpanCatalogSync)
		defer span.End()

		var msg refreshedMsg
		if index != nil {
			msg.available, msg.availableErr = index.Available(ctx)
			if msg.availableErr != nil {
				span.RecordError(msg.availableErr)
			} else {
				span.AddEvent(tracing.EventCatalogFetched, trace.WithAttributes(
					attribute.Int(tracing.AttrCatalogCount, len(msg.available))))
			}
		}
		if scanner != nil {
			msg.installed, msg.installedErr = scanner.Scan(ctx, packageDir)
			if msg.installedErr != nil {
				span.RecordError(msg.installedErr)
			}
		}

		if msg.availableErr == nil && msg.installedErr == nil {
			msg.available, msg.installed = ext.Synchronize(msg.available, msg.installed)
			msg.synced = true
			span.AddEvent(tracing.EventCatalogMatched, trace.WithAttributes(
				attribute.Int(tracing.AttrCatalogMatched, countMatched(msg.installed))))
		}
		return msg
	}
}

func countMatched(installed []ext.InstalledExtension) int {
	n := 0
	for _, inst := range installed {
		if inst.Definition != nil {
			n++
		}
	}
	return n
}

// runCmd executes the steps and reports the aggregate outcome.
func runCmd(ctx context.Context, runner *steps.Runner, verb string, ss []steps.Step) tea.Cmd {
	return func() tea.Msg {
		err := runner.Run(ctx, ss)
		return runFinishedMsg{verb: verb, total: len(ss), err: err}
	}
}
