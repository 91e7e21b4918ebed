package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge/internal/models"
)

const ttsRetryBaseDelay = 500 * time.Millisecond

// RenderNarrations synthesizes narration audio for every planned scene,
// measures each file's real duration, and drops scenes whose synthesis
// failed after all retries. Survivors are renumbered contiguously; the
// returned scene and asset slices are index-aligned.
func (p *Pipeline) RenderNarrations(ctx context.Context, job *models.MovieJob, plan *models.ClipPlan) ([]models.SceneEntry, []models.NarrationAsset, error) {
	audioDir := filepath.Join(p.lib.JobWorkDir(job.MovieID), "audio")

	results := make([]*models.NarrationAsset, len(plan.Scenes))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.cfg.SceneConcurrency)

	for i, scene := range plan.Scenes {
		i, scene := i, scene
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			audioPath := filepath.Join(audioDir, fmt.Sprintf("scene_%03d.mp3", scene.Index))
			asset, err := p.synthesizeScene(gctx, scene, audioPath)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// A single scene failing is not fatal; it gets dropped.
				log.Printf("[Narration] %s scene %d dropped: %v", job.MovieID, scene.Index, err)
				return nil
			}
			results[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var scenes []models.SceneEntry
	var assets []models.NarrationAsset
	for i, asset := range results {
		if asset == nil {
			continue
		}
		scene := plan.Scenes[i]
		scene.Index = len(scenes)
		asset.SceneIndex = scene.Index
		scenes = append(scenes, scene)
		assets = append(assets, *asset)
	}
	if len(scenes) == 0 {
		return nil, nil, stageErrorf(models.ErrorKindSynthesis, "no scene narration could be synthesized")
	}
	if dropped := len(plan.Scenes) - len(scenes); dropped > 0 {
		log.Printf("[Narration] %s: dropped %d of %d scenes", job.MovieID, dropped, len(plan.Scenes))
	}
	return scenes, assets, nil
}

// synthesizeScene runs one scene's TTS call with bounded retries, writes
// the audio to disk, and measures its duration with ffprobe. The measured
// duration is authoritative; nothing the TTS service reports is trusted.
func (p *Pipeline) synthesizeScene(ctx context.Context, scene models.SceneEntry, audioPath string) (*models.NarrationAsset, error) {
	ttsTimeout := time.Duration(p.cfg.TTSTimeoutSec) * time.Second

	var lastErr error
	for attempt := 0; attempt <= p.cfg.TTSMaxRetries; attempt++ {
		if attempt > 0 {
			delay := ttsRetryBaseDelay << (attempt - 1)
			log.Printf("[Narration] scene %d retry %d/%d in %v", scene.Index, attempt, p.cfg.TTSMaxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		ttsCtx, cancel := context.WithTimeout(ctx, ttsTimeout)
		resp, err := p.tts.GenerateSpeech(ttsCtx, scene.Narration)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		if err := os.WriteFile(audioPath, resp.AudioData, 0o644); err != nil {
			lastErr = err
			continue
		}
		dur, err := p.media.ProbeDuration(ctx, audioPath)
		if err != nil {
			lastErr = fmt.Errorf("probe narration: %w", err)
			continue
		}
		if dur <= 0 {
			lastErr = fmt.Errorf("narration audio has zero duration")
			continue
		}
		return &models.NarrationAsset{SceneIndex: scene.Index, AudioPath: audioPath, Duration: dur}, nil
	}
	return nil, lastErr
}
