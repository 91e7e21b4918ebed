package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reelforge/reelforge/internal/models"
)

// Stage artifacts live in the job's workdir so a restarted run can pick up
// from the last completed stage without re-calling paid services.
const (
	artifactPlan       = "plan.json"
	artifactNarrations = "narrations.json"
	artifactReconciled = "reconciled.json"
	artifactClips      = "clips.json"
)

// narrationArtifact keeps the renumbered scenes and their audio together;
// the two slices are index-aligned.
type narrationArtifact struct {
	Scenes []models.SceneEntry     `json:"scenes"`
	Assets []models.NarrationAsset `json:"assets"`
}

func (p *Pipeline) artifactPath(movieID, name string) string {
	return filepath.Join(p.lib.JobWorkDir(movieID), name)
}

// writeArtifact writes to a temp file and renames so a crash mid-write
// never leaves a truncated artifact behind.
func (p *Pipeline) writeArtifact(movieID, name string, v interface{}) error {
	path := p.artifactPath(movieID, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) readArtifact(movieID, name string, v interface{}) error {
	data, err := os.ReadFile(p.artifactPath(movieID, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) SavePlan(movieID string, plan *models.ClipPlan) error {
	return p.writeArtifact(movieID, artifactPlan, plan)
}

func (p *Pipeline) LoadPlan(movieID string) (*models.ClipPlan, error) {
	var plan models.ClipPlan
	if err := p.readArtifact(movieID, artifactPlan, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *Pipeline) SaveNarrations(movieID string, scenes []models.SceneEntry, assets []models.NarrationAsset) error {
	return p.writeArtifact(movieID, artifactNarrations, narrationArtifact{Scenes: scenes, Assets: assets})
}

func (p *Pipeline) LoadNarrations(movieID string) ([]models.SceneEntry, []models.NarrationAsset, error) {
	var art narrationArtifact
	if err := p.readArtifact(movieID, artifactNarrations, &art); err != nil {
		return nil, nil, err
	}
	return art.Scenes, art.Assets, nil
}

func (p *Pipeline) SaveReconciled(movieID string, scenes []models.ReconciledScene) error {
	return p.writeArtifact(movieID, artifactReconciled, scenes)
}

func (p *Pipeline) LoadReconciled(movieID string) ([]models.ReconciledScene, error) {
	var scenes []models.ReconciledScene
	if err := p.readArtifact(movieID, artifactReconciled, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

func (p *Pipeline) SaveClips(movieID string, clips []models.IntermediateClip) error {
	return p.writeArtifact(movieID, artifactClips, clips)
}

func (p *Pipeline) LoadClips(movieID string) ([]models.IntermediateClip, error) {
	var clips []models.IntermediateClip
	if err := p.readArtifact(movieID, artifactClips, &clips); err != nil {
		return nil, err
	}
	return clips, nil
}
