package pipeline

import (
	"context"
	"log"

	"github.com/reelforge/reelforge/internal/models"
)

// Reframe derives the vertical 9:16 render from the finished horizontal
// output. The horizontal file is the input and is left untouched.
func (p *Pipeline) Reframe(ctx context.Context, job *models.MovieJob) (string, error) {
	inPath := p.lib.HorizontalPath(job.MovieID)
	outPath := p.lib.VerticalPath(job.MovieID)

	toolCtx, cancel := p.toolCtx(ctx)
	defer cancel()
	if err := p.media.RenderVertical(toolCtx, inPath, outPath); err != nil {
		return "", stageErrorf(models.ErrorKindToolFailure, "render vertical: %v", err)
	}
	log.Printf("[Reframe] %s: wrote %s", job.MovieID, outPath)
	return outPath, nil
}
