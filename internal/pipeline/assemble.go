package pipeline

import (
	"context"
	"log"
	"math"
	"os"

	"github.com/reelforge/reelforge/internal/models"
)

// Assemble concatenates the surviving clips, in scene order, into the
// master render inside the workdir. When every clip already matches the
// target encode parameters the streams are copied; otherwise the whole
// timeline is re-encoded once to a uniform format.
func (p *Pipeline) Assemble(ctx context.Context, job *models.MovieJob, clips []models.IntermediateClip) (string, error) {
	if len(clips) < p.cfg.MinScenes {
		return "", stageErrorf(models.ErrorKindAssembly,
			"only %d scenes survived, need at least %d", len(clips), p.cfg.MinScenes)
	}

	target := p.targetParams()
	reencode := false
	paths := make([]string, 0, len(clips))
	var wantTotal float64
	for _, clip := range clips {
		params, err := p.media.ProbeVideoParams(ctx, clip.FilePath)
		if err != nil {
			return "", stageErrorf(models.ErrorKindToolFailure, "probe clip %s: %v", clip.FilePath, err)
		}
		if !params.Equal(target) {
			reencode = true
		}
		paths = append(paths, clip.FilePath)
		wantTotal += clip.ActualDuration
	}
	if reencode {
		log.Printf("[Assemble] %s: clips diverge from target params, re-encoding", job.MovieID)
	}

	masterPath := p.MasterPath(job.MovieID)
	toolCtx, cancel := p.toolCtx(ctx)
	defer cancel()
	if err := p.media.ConcatClips(toolCtx, paths, masterPath, reencode, target); err != nil {
		return "", stageErrorf(models.ErrorKindToolFailure, "concat: %v", err)
	}

	gotTotal, err := p.media.ProbeDuration(ctx, masterPath)
	if err != nil {
		return "", stageErrorf(models.ErrorKindToolFailure, "probe master: %v", err)
	}
	if drift := math.Abs(gotTotal - wantTotal); drift > p.cfg.ClipToleranceSec*float64(len(clips)) {
		log.Printf("[Assemble] %s: master duration drift %.2fs (got %.2fs, want %.2fs)",
			job.MovieID, drift, gotTotal, wantTotal)
	}

	log.Printf("[Assemble] %s: %d scenes, %.1fs master", job.MovieID, len(clips), gotTotal)
	return masterPath, nil
}

// RemoveIntermediateClips deletes the extracted clip files. Called only
// after the assembled stage has been committed: until then the clips are
// the stage's inputs and must stay on disk so a crash can resume the
// assembly instead of redoing extraction. Missing files are fine.
func (p *Pipeline) RemoveIntermediateClips(movieID string) {
	clips, err := p.LoadClips(movieID)
	if err != nil {
		return
	}
	for _, clip := range clips {
		if err := os.Remove(clip.FilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("[Assemble] remove %s: %v", clip.FilePath, err)
		}
	}
}
