package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/services"
)

// Mix lays a randomly chosen background track under the master render and
// writes the result to the final horizontal output path. Tracks shorter
// than the configured minimum are ignored entirely; with no eligible track
// the master is promoted as-is, narration only.
func (p *Pipeline) Mix(ctx context.Context, job *models.MovieJob, masterPath string) (string, error) {
	outPath := p.lib.HorizontalPath(job.MovieID)

	// The master stays on disk either way: it is this stage's input, and
	// the mixed stage is only committed after Mix returns. It is removed
	// once the next stage starts.
	track := p.pickMusic(ctx)
	if track == "" {
		log.Printf("[Mix] %s: no eligible background track, keeping narration only", job.MovieID)
		if err := copyFile(masterPath, outPath); err != nil {
			return "", fmt.Errorf("promote master: %w", err)
		}
		return outPath, nil
	}

	toolCtx, cancel := p.toolCtx(ctx)
	defer cancel()
	opts := services.MixOptions{
		MusicGain:     p.cfg.MusicGain,
		MusicStartSec: p.cfg.MusicStartSec,
	}
	if err := p.media.MixBackgroundMusic(toolCtx, masterPath, track, outPath, opts); err != nil {
		return "", stageErrorf(models.ErrorKindToolFailure, "mix music: %v", err)
	}
	log.Printf("[Mix] %s: mixed %s", job.MovieID, track)
	return outPath, nil
}

// RemoveMaster deletes the workdir master. Called only after the mixed
// stage has been committed; until then the master is the mix input and a
// crash must find it intact.
func (p *Pipeline) RemoveMaster(movieID string) {
	if err := os.Remove(p.MasterPath(movieID)); err != nil && !os.IsNotExist(err) {
		log.Printf("[Mix] remove master: %v", err)
	}
}

// pickMusic probes every library track and picks one at random from those
// long enough to use. Unreadable tracks are skipped, not fatal.
func (p *Pipeline) pickMusic(ctx context.Context) string {
	candidates, err := p.lib.MusicCandidates()
	if err != nil {
		log.Printf("[Mix] list music: %v", err)
		return ""
	}
	var eligible []string
	for _, path := range candidates {
		dur, err := p.media.ProbeDuration(ctx, path)
		if err != nil {
			log.Printf("[Mix] probe %s: %v", path, err)
			continue
		}
		if dur < p.cfg.MusicMinSec {
			continue
		}
		eligible = append(eligible, path)
	}
	if len(eligible) == 0 {
		return ""
	}
	return eligible[rand.Intn(len(eligible))]
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
