package sync

import (
	"log/slog"

	"github.com/nikhil-at-pieces/descope-sync/internal/config"
	"github.com/nikhil-at-pieces/descope-sync/internal/provider"
	"github.com/nikhil-at-pieces/descope-sync/internal/runlog"
	"github.com/nikhil-at-pieces/descope-sync/internal/warehouse"
)

// Service owns the pipeline: the warehouse, the run log, and one client
// per provider. Rate-limit governors are created per run, never here, so
// a limit observed in one run cannot poison the next.
type Service struct {
	cfg    *config.Config
	wh     *warehouse.Warehouse
	runs   *runlog.Store
	logger *slog.Logger

	descope  *provider.Descope
	linkedin *provider.LinkedIn
	youtube  *provider.YouTube
	geo      *provider.FallbackChain

	// pipeline, when set, replaces the configured stage list.
	pipeline []Stage
}

// New assembles the service. youtube may be nil when the video platform
// is not configured; its stage is then skipped.
func New(cfg *config.Config, wh *warehouse.Warehouse, runs *runlog.Store, yt *provider.YouTube, logger *slog.Logger) *Service {
	client := provider.NewClient(cfg.HTTPTimeout, logger)
	return &Service{
		cfg:      cfg,
		wh:       wh,
		runs:     runs,
		logger:   logger,
		descope:  provider.NewDescope(cfg.Descope, client),
		linkedin: provider.NewLinkedIn(cfg.LinkedIn, client),
		youtube:  yt,
		geo:      provider.DefaultGeoChain(client, logger),
	}
}

// planEntry is one slot of the execution plan: either a runnable stage
// or a skip record for an enabled stage missing its credentials.
type planEntry struct {
	stage      Stage
	name       string
	skipReason string
}

// plan returns the pipeline in execution order. Identity sync runs
// first: every later stage enriches rows it writes. Enabled stages
// without credentials keep their slot as a skip entry, so the report
// order always matches the declared order. Disabled stages are silent:
// turning a stage off is an operator choice, missing credentials may be
// a mistake.
func (s *Service) plan() []planEntry {
	if s.pipeline != nil {
		entries := make([]planEntry, len(s.pipeline))
		for i, st := range s.pipeline {
			entries[i] = planEntry{stage: st, name: st.Name()}
		}
		return entries
	}

	runnable := func(st Stage) planEntry { return planEntry{stage: st, name: st.Name()} }
	var entries []planEntry
	if s.cfg.Users.Enabled {
		if s.cfg.Descope.Configured() {
			entries = append(entries, runnable(&usersStage{s}))
		} else {
			entries = append(entries, planEntry{name: "users", skipReason: "identity provider credentials not configured"})
		}
	}
	if s.cfg.Locations.Enabled {
		if s.cfg.Descope.Configured() {
			entries = append(entries, runnable(&locationsStage{s}))
		} else {
			entries = append(entries, planEntry{name: "locations", skipReason: "identity provider credentials not configured"})
		}
	}
	if s.cfg.GeoIP.Enabled {
		entries = append(entries, runnable(&geoStage{s}))
	}
	if s.cfg.Attribution.Enabled {
		entries = append(entries, runnable(&attributionStage{s}))
	}
	if s.cfg.Activity.Enabled {
		entries = append(entries, runnable(&activityStage{s}))
	}
	if s.cfg.Posts.Enabled {
		if s.cfg.LinkedIn.Configured() {
			entries = append(entries, runnable(&postsStage{s}))
		} else {
			entries = append(entries, planEntry{name: "posts", skipReason: "social platform credentials not configured"})
		}
	}
	if s.cfg.Videos.Enabled {
		if s.cfg.YouTube.Configured() && s.youtube != nil {
			entries = append(entries, runnable(&videosStage{s}))
		} else {
			entries = append(entries, planEntry{name: "videos", skipReason: "video platform credentials not configured"})
		}
	}
	return entries
}
