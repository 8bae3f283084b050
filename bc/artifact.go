package bc

import (
	"github.com/YuminosukeSato/biascorrect/backend"
	"github.com/YuminosukeSato/biascorrect/core/model"
	"github.com/YuminosukeSato/biascorrect/inspection"
	"github.com/YuminosukeSato/biascorrect/metrics"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
	"github.com/YuminosukeSato/biascorrect/preprocessing"
)

// Artifact is the result of one training run. It is created once at the end
// of Train and must not be modified; Predictor consumes it as a whole.
type Artifact struct {
	Method            backend.Method
	Model             backend.TrainedModel
	Scaler            *preprocessing.ScalerState
	Metrics           metrics.Metrics
	FeatureImportance inspection.FeatureImportance
	FeatureNames      []string
}

// Exporter persists a finished artifact.
type Exporter interface {
	Export(a *Artifact) error
}

// DirExporter writes the artifact to Dir/bc_output.gob, creating Dir if
// needed.
type DirExporter struct {
	Dir string
}

// Export implements Exporter.
func (e DirExporter) Export(a *Artifact) error {
	_, err := model.SaveToDir(a, e.Dir)
	return err
}

// LoadArtifact reads an artifact written by DirExporter.
func LoadArtifact(dir string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadFromDir(&a, dir); err != nil {
		return nil, err
	}
	if a.Model == nil || a.Scaler == nil {
		return nil, errors.NewValueError("bc.LoadArtifact", "artifact is missing its model or scaler")
	}
	return &a, nil
}
