package app

import (
	"context"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/render"
	"go.trai.ch/zerr"
)

// Snapshot output formats.
const (
	FormatJSON         = "json"
	FormatRequirements = "requirements"
	FormatConda        = "conda"
	FormatEnvironment  = "environment"
)

// Show fetches the snapshot ref points to and renders it in format.
// An empty format renders the canonical JSON document.
func (a *App) Show(ctx context.Context, ref, format string, opts SourceOptions) ([]byte, error) {
	ch, snapshot, err := a.Fetch(ctx, ref, opts)
	if err != nil {
		return nil, err
	}

	switch format {
	case "", FormatJSON:
		data, err := snapshot.Canonical()
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatRequirements:
		return render.Requirements(snapshot)
	case FormatConda:
		return render.CondaExplicit(snapshot)
	case FormatEnvironment:
		manifest, err := a.manifestOrDefaults()
		if err != nil {
			return nil, err
		}
		return render.CondaEnvironment(snapshot, manifest.CondaChannelsFor(manifest.Channels[ch.Name]))
	default:
		return nil, zerr.With(domain.ErrUnknownFormat, "format", format)
	}
}
