package pipeline

import (
	"context"
	"log"
	"math/rand"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/services"
)

// Plan asks the scene planner for a clip plan built from the movie's
// subtitles. Any outcome that leaves us without usable scenes is a
// no-plan failure: the rest of the pipeline has nothing to work with.
func (p *Pipeline) Plan(ctx context.Context, job *models.MovieJob) (*models.ClipPlan, error) {
	subPath := p.lib.SubtitlePath(job.MovieID)
	subtitleText, err := services.LoadSubtitleText(subPath)
	if err != nil {
		return nil, stageErrorf(models.ErrorKindNoPlan, "load subtitles %s: %v", subPath, err)
	}

	numScenes := p.cfg.MinScenesPerRun
	if spread := p.cfg.MaxScenesPerRun - p.cfg.MinScenesPerRun; spread > 0 {
		numScenes += rand.Intn(spread + 1)
	}
	log.Printf("[Plan] requesting %d scenes for %q", numScenes, job.Title)

	plan, err := p.planner.GeneratePlan(ctx, job.Title, subtitleText, numScenes)
	if err != nil {
		return nil, stageErrorf(models.ErrorKindNoPlan, "generate plan: %v", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, stageErrorf(models.ErrorKindNoPlan, "invalid plan: %v", err)
	}
	plan.MovieID = job.MovieID
	if plan.Title == "" {
		plan.Title = job.Title
	}

	log.Printf("[Plan] %q: %d scenes", job.Title, len(plan.Scenes))
	return plan, nil
}
