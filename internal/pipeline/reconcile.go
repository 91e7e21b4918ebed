package pipeline

import (
	"fmt"

	"github.com/reelforge/reelforge/internal/models"
)

// Reconcile computes, for every surviving scene, the playback rate that
// makes its source window land exactly on its narration's measured length
// plus the lead-in and lead-out pads. The scene and asset slices must be
// the index-aligned pair produced by RenderNarrations.
func (p *Pipeline) Reconcile(scenes []models.SceneEntry, assets []models.NarrationAsset) ([]models.ReconciledScene, error) {
	if len(scenes) != len(assets) {
		return nil, fmt.Errorf("scene/narration mismatch: %d scenes, %d assets", len(scenes), len(assets))
	}
	out := make([]models.ReconciledScene, 0, len(scenes))
	for i, scene := range scenes {
		asset := assets[i]
		if scene.Index != asset.SceneIndex {
			return nil, fmt.Errorf("scene %d paired with narration %d", scene.Index, asset.SceneIndex)
		}
		out = append(out, reconcileScene(scene, asset.Duration,
			p.cfg.LeadInSec, p.cfg.LeadOutSec,
			p.cfg.MinPlaybackRate, p.cfg.MaxPlaybackRate))
	}
	return out, nil
}

// reconcileScene fits one source window to its narration target. When the
// window is so long that even the maximum speed-up cannot fit it, the
// window itself is shrunk around its center first; the rate clamp then
// guarantees the bounds hold regardless.
func reconcileScene(scene models.SceneEntry, narrDur, leadIn, leadOut, minRate, maxRate float64) models.ReconciledScene {
	target := narrDur + leadIn + leadOut
	start, end := scene.SourceStart, scene.SourceEnd
	span := end - start

	rate := span / target
	if rate > maxRate {
		desired := target * maxRate
		if desired < 1.0 {
			desired = 1.0
		}
		if desired < span {
			mid := (start + end) / 2
			start = mid - desired/2
			end = mid + desired/2
			span = desired
		}
		rate = span / target
	}
	if rate > maxRate {
		rate = maxRate
	}
	if rate < minRate {
		rate = minRate
	}

	return models.ReconciledScene{
		SceneIndex:     scene.Index,
		SourceStart:    start,
		SourceEnd:      end,
		TargetDuration: target,
		PlaybackRate:   rate,
	}
}
