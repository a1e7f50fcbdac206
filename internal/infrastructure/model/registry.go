package model

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/ports"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/resilience"
)

type Config struct {
	Dir       string
	ServerURL string
	Timeout   time.Duration
}

// Source describes where a disease classifier came from.
type Source string

const (
	SourceArtifact Source = "artifact"
	SourceRemote   Source = "remote"
)

// Registry is built once at startup and read-only afterwards.
type Registry struct {
	models  map[domain.DiseaseID]ports.Classifier
	sources map[domain.DiseaseID]Source
}

// NewRegistry wraps an explicit model set.
func NewRegistry(models map[domain.DiseaseID]ports.Classifier) *Registry {
	r := &Registry{
		models:  make(map[domain.DiseaseID]ports.Classifier, len(models)),
		sources: make(map[domain.DiseaseID]Source, len(models)),
	}
	for id, m := range models {
		r.models[id] = m
		r.sources[id] = SourceArtifact
	}
	return r
}

// Load resolves every catalog disease: a local artifact wins, then the
// remote model server when configured. A disease with neither stays
// unavailable and is reported at prediction time.
func Load(cfg Config, executor *resilience.Executor, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	r := &Registry{
		models:  map[domain.DiseaseID]ports.Classifier{},
		sources: map[domain.DiseaseID]Source{},
	}
	for _, spec := range catalog.All() {
		if cfg.Dir != "" {
			path := filepath.Join(cfg.Dir, spec.ModelFile+".yaml")
			m, err := loadArtifact(path, spec)
			switch {
			case err == nil:
				r.models[spec.ID] = m
				r.sources[spec.ID] = SourceArtifact
				logger.Info("model.loaded", "disease_id", spec.ID.String(), "path", path, "features", m.InputSize())
				continue
			case errors.Is(err, fs.ErrNotExist):
				logger.Warn("model.missing", "disease_id", spec.ID.String(), "path", path)
			default:
				logger.Error("model.load_failed", "disease_id", spec.ID.String(), "path", path, "error", err)
			}
		}
		if cfg.ServerURL != "" {
			r.models[spec.ID] = NewRemoteClassifier(cfg.ServerURL, spec.ModelFile, spec.Cardinality(), httpClient, executor)
			r.sources[spec.ID] = SourceRemote
			logger.Info("model.remote", "disease_id", spec.ID.String(), "model", spec.ModelFile)
		}
	}
	return r
}

func loadArtifact(path string, spec catalog.Spec) (*LinearModel, error) {
	a, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	if a.Features != spec.Cardinality() {
		return nil, fmt.Errorf("artifact expects %d features, catalog builds %d", a.Features, spec.Cardinality())
	}
	if spec.Output == catalog.Probabilistic && a.Kind != KindLogistic {
		return nil, fmt.Errorf("probabilistic disease needs a %s artifact, got %s", KindLogistic, a.Kind)
	}
	return NewLinearModel(a)
}

func (r *Registry) Classifier(id domain.DiseaseID) (ports.Classifier, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.models[id]
	return m, ok
}

// Available lists the diseases with a classifier and its source.
func (r *Registry) Available() map[domain.DiseaseID]Source {
	out := make(map[domain.DiseaseID]Source, len(r.sources))
	for id, s := range r.sources {
		out[id] = s
	}
	return out
}

// Loaded returns the disease ids with a classifier in a stable order.
func (r *Registry) Loaded() []domain.DiseaseID {
	out := make([]domain.DiseaseID, 0, len(r.models))
	for id := range r.models {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
