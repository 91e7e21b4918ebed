package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/services"
)

// ExtractClips cuts every reconciled scene out of the source movie as a
// self-contained clip with its narration muxed in. Scenes whose extraction
// fails are dropped; survivors keep their relative order. The reconciled
// and asset slices are index-aligned.
func (p *Pipeline) ExtractClips(ctx context.Context, job *models.MovieJob, scenes []models.ReconciledScene, assets []models.NarrationAsset) ([]models.IntermediateClip, error) {
	if len(scenes) != len(assets) {
		return nil, fmt.Errorf("scene/narration mismatch: %d scenes, %d assets", len(scenes), len(assets))
	}
	clipsDir := filepath.Join(p.lib.JobWorkDir(job.MovieID), "clips")
	target := p.targetParams()

	results := make([]*models.IntermediateClip, len(scenes))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.cfg.SceneConcurrency)

	for i, scene := range scenes {
		i, scene, asset := i, scene, assets[i]
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			outPath := filepath.Join(clipsDir, fmt.Sprintf("scene_%03d.mp4", scene.SceneIndex))
			clip, err := p.extractScene(gctx, job.SourcePath, scene, asset, outPath, target)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("[Extract] %s scene %d dropped: %v", job.MovieID, scene.SceneIndex, err)
				return nil
			}
			results[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var clips []models.IntermediateClip
	for _, c := range results {
		if c != nil {
			clips = append(clips, *c)
		}
	}
	if len(clips) == 0 {
		return nil, stageErrorf(models.ErrorKindExtraction, "no scene could be extracted")
	}
	if dropped := len(scenes) - len(clips); dropped > 0 {
		log.Printf("[Extract] %s: dropped %d of %d scenes", job.MovieID, dropped, len(scenes))
	}
	return clips, nil
}

func (p *Pipeline) extractScene(ctx context.Context, sourcePath string, scene models.ReconciledScene, asset models.NarrationAsset, outPath string, target services.VideoParams) (*models.IntermediateClip, error) {
	spec := services.ExtractSpec{
		SourcePath:    sourcePath,
		NarrationPath: asset.AudioPath,
		OutputPath:    outPath,
		StartSec:      scene.SourceStart,
		EndSec:        scene.SourceEnd,
		PlaybackRate:  scene.PlaybackRate,
		LeadInSec:     p.cfg.LeadInSec,
		TargetSec:     scene.TargetDuration,
		Encode:        target,
	}

	toolCtx, cancel := p.toolCtx(ctx)
	defer cancel()
	if err := p.media.ExtractClip(toolCtx, spec); err != nil {
		return nil, err
	}

	actual, err := p.media.ProbeDuration(ctx, outPath)
	if err != nil {
		return nil, fmt.Errorf("probe clip: %w", err)
	}
	if drift := math.Abs(actual - scene.TargetDuration); drift > p.cfg.ClipToleranceSec {
		log.Printf("[Extract] scene %d duration drift %.2fs (got %.2fs, want %.2fs)",
			scene.SceneIndex, drift, actual, scene.TargetDuration)
	}
	return &models.IntermediateClip{
		SceneIndex:     scene.SceneIndex,
		FilePath:       outPath,
		ActualDuration: actual,
	}, nil
}
