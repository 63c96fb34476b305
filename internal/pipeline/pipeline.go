// Package pipeline orchestrates one full pass of the build loop: scan the
// source tree, compile the aggregate artifact, place it, then walk the
// deploy map. Runs are serialized; overlapping triggers queue up behind the
// in-flight one instead of racing it.
package pipeline

import (
	"context"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/frytempura/tempura/internal/apperr"
	"github.com/frytempura/tempura/internal/build"
	"github.com/frytempura/tempura/internal/catalog"
	"github.com/frytempura/tempura/internal/checksum"
	"github.com/frytempura/tempura/internal/deploy"
	"github.com/frytempura/tempura/internal/models"
	"github.com/frytempura/tempura/internal/sse"
	"github.com/frytempura/tempura/internal/storage"
)

// Settings fix where the pipeline reads and writes.
type Settings struct {
	// SourceDir is the script source directory, relative to the project root.
	SourceDir string
	// ArtifactDir receives the aggregate artifact.
	ArtifactDir string
	// ArtifactName is the aggregate's file name inside ArtifactDir.
	ArtifactName string
	// DeployMap lists source-to-destination folder pairs copied after the
	// artifact lands.
	DeployMap map[string]string
}

// Pipeline owns the rebuild sequence and the status of the last run.
type Pipeline struct {
	settings Settings

	store    storage.Provider
	catalog  *catalog.Catalog
	builder  *build.Builder
	deployer *deploy.Deployer
	broker   *sse.Broker
	logger   *slog.Logger

	// mu serializes Rebuild; statusMu guards the snapshot readers see.
	mu       sync.Mutex
	statusMu sync.RWMutex
	status   models.Status
}

// New creates a Pipeline. broker may be nil when no one listens for events.
func New(settings Settings, store storage.Provider, cat *catalog.Catalog, builder *build.Builder, deployer *deploy.Deployer, broker *sse.Broker, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		settings: settings,
		store:    store,
		catalog:  cat,
		builder:  builder,
		deployer: deployer,
		broker:   broker,
		logger:   logger,
		status:   models.Status{State: models.BuildStateIdle},
	}
}

// Status returns a copy of the last run's snapshot.
func (p *Pipeline) Status() models.Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	st := p.status
	st.Scripts = append([]models.ScriptMeta(nil), p.status.Scripts...)
	st.Deployed = append([]models.CopyReport(nil), p.status.Deployed...)
	return st
}

// Catalog exposes the script registry backing the pipeline.
func (p *Pipeline) Catalog() catalog.Reader {
	return p.catalog
}

// ReadScript returns the catalog entry and source text for a script name.
func (p *Pipeline) ReadScript(name string) (models.ScriptMeta, []byte, error) {
	meta, ok := p.catalog.Get(name)
	if !ok {
		return models.ScriptMeta{}, nil, apperr.ErrNotFound
	}
	data, err := p.store.Read(path.Join(p.settings.SourceDir, meta.Path))
	if err != nil {
		return models.ScriptMeta{}, nil, err
	}
	return meta, data, nil
}

func (p *Pipeline) setStatus(st models.Status) {
	p.statusMu.Lock()
	p.status = st
	p.statusMu.Unlock()
}

func (p *Pipeline) publishBuildEvent(kind string, data interface{}) {
	if p.broker != nil {
		p.broker.PublishBuildEvent(kind, data)
	}
}

// Rebuild runs scan, aggregate, artifact write and deploy map in order.
// trigger names what initiated the run and lands in the status snapshot.
func (p *Pipeline) Rebuild(_ context.Context, trigger string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := time.Now()
	p.setStatus(models.Status{
		State:     models.BuildStateBuilding,
		Trigger:   trigger,
		StartedAt: started,
	})
	p.publishBuildEvent("started", map[string]string{"trigger": trigger})
	p.logger.Info("pipeline: rebuild started", slog.String("trigger", trigger))

	st, err := p.run(started, trigger)
	if err != nil {
		st = models.Status{
			State:      models.BuildStateFailed,
			Trigger:    trigger,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Duration:   time.Since(started),
			Error:      err.Error(),
		}
		p.setStatus(st)
		p.publishBuildEvent("failed", map[string]string{"error": err.Error()})
		p.logger.Error("pipeline: rebuild failed",
			slog.String("trigger", trigger),
			slog.Duration("duration", st.Duration),
			slog.String("error", err.Error()))
		return err
	}

	p.setStatus(st)
	p.publishBuildEvent("succeeded", map[string]interface{}{
		"scripts":  len(st.Scripts),
		"duration": st.Duration.String(),
		"artifact": st.ArtifactPath,
	})
	p.logger.Info("pipeline: rebuild succeeded",
		slog.String("trigger", trigger),
		slog.Int("scripts", len(st.Scripts)),
		slog.Duration("duration", st.Duration))
	return nil
}

// run does the actual work and assembles the success snapshot.
func (p *Pipeline) run(started time.Time, trigger string) (models.Status, error) {
	scripts, err := p.catalog.Scan(p.store, p.settings.SourceDir)
	if err != nil {
		return models.Status{}, err
	}
	if len(scripts) == 0 {
		p.logger.Warn("pipeline: no scripts found", slog.String("dir", p.settings.SourceDir))
	}

	// The aggregate only exists when a script folder location is configured;
	// a deploy-map-only setup skips it.
	var artifactPath, artifactSum string
	if p.settings.ArtifactDir != "" {
		artifact, err := p.builder.Aggregate(scripts)
		if err != nil {
			return models.Status{}, err
		}
		var changed bool
		artifactPath, changed, err = p.deployer.WriteArtifact(
			p.settings.ArtifactDir, p.settings.ArtifactName, artifact)
		if err != nil {
			return models.Status{}, err
		}
		if changed {
			p.publish(sse.Event{Type: "artifact.updated", Data: map[string]string{"path": artifactPath}})
		}
		artifactSum = checksum.Sum(artifact)
	}

	reports, err := p.deployer.Run(p.settings.DeployMap)
	if err != nil {
		return models.Status{}, err
	}

	return models.Status{
		State:            models.BuildStateSucceeded,
		Trigger:          trigger,
		StartedAt:        started,
		FinishedAt:       time.Now(),
		Duration:         time.Since(started),
		Scripts:          scripts,
		ArtifactPath:     artifactPath,
		ArtifactChecksum: artifactSum,
		Deployed:         reports,
	}, nil
}

func (p *Pipeline) publish(event sse.Event) {
	if p.broker != nil {
		p.broker.Publish(event)
	}
}
