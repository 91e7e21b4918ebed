package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/services"
	"github.com/reelforge/reelforge/internal/storage"
)

// MediaTool is the external media-processing boundary. The ffmpeg service
// implements it; tests substitute fakes.
type MediaTool interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ProbeVideoParams(ctx context.Context, path string) (services.VideoParams, error)
	ExtractClip(ctx context.Context, spec services.ExtractSpec) error
	ConcatClips(ctx context.Context, clipPaths []string, outputPath string, reencode bool, enc services.VideoParams) error
	MixBackgroundMusic(ctx context.Context, videoPath, musicPath, outputPath string, opts services.MixOptions) error
	RenderVertical(ctx context.Context, inputPath, outputPath string) error
}

// StageError carries the failure classification persisted on the job.
type StageError struct {
	Kind models.ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErrorf(kind models.ErrorKind, format string, args ...interface{}) error {
	return &StageError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Pipeline turns one movie's scene plan and narration audio into the two
// final renders. Stages are driven one at a time by the batch controller;
// every stage's output is persisted so a restart resumes instead of redoing.
type Pipeline struct {
	cfg     *config.Config
	media   MediaTool
	tts     services.TTSService
	planner services.ScenePlanner
	lib     *storage.Library
}

func New(cfg *config.Config, media MediaTool, tts services.TTSService, planner services.ScenePlanner, lib *storage.Library) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		media:   media,
		tts:     tts,
		planner: planner,
		lib:     lib,
	}
}

// MasterPath is the assembled (pre-mix) master inside the job's workdir.
func (p *Pipeline) MasterPath(movieID string) string {
	return filepath.Join(p.lib.JobWorkDir(movieID), "master.mp4")
}

// targetParams are the plan-wide declared encode parameters. Every
// extracted clip conforms to them; assembly verifies before stream-copying.
func (p *Pipeline) targetParams() services.VideoParams {
	return services.VideoParams{
		Width:  p.cfg.TargetWidth,
		Height: p.cfg.TargetHeight,
		FPS:    p.cfg.TargetFPS,
		Codec:  "h264",
	}
}

// toolCtx bounds a single media-tool invocation so a stalled subprocess
// can never hang the batch.
func (p *Pipeline) toolCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(p.cfg.ToolTimeoutSec)*time.Second)
}
