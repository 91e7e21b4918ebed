package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/services"
)

func extractFixtures() ([]models.ReconciledScene, []models.NarrationAsset) {
	scenes := []models.ReconciledScene{
		{SceneIndex: 0, SourceStart: 10, SourceEnd: 16, TargetDuration: 5, PlaybackRate: 1.2},
		{SceneIndex: 1, SourceStart: 30, SourceEnd: 37, TargetDuration: 7, PlaybackRate: 1.0},
		{SceneIndex: 2, SourceStart: 50, SourceEnd: 58, TargetDuration: 6, PlaybackRate: 1.33},
	}
	assets := []models.NarrationAsset{
		{SceneIndex: 0, AudioPath: "/audio/scene_000.mp3", Duration: 4},
		{SceneIndex: 1, AudioPath: "/audio/scene_001.mp3", Duration: 6},
		{SceneIndex: 2, AudioPath: "/audio/scene_002.mp3", Duration: 5},
	}
	return scenes, assets
}

func TestExtractClipsDropsFailuresKeepsOrder(t *testing.T) {
	lib := testLibrary(t)
	media := &fakeMedia{
		extractErr: func(spec services.ExtractSpec) error {
			if spec.StartSec == 30 {
				return errors.New("ffmpeg exited with status 1")
			}
			return nil
		},
	}
	p := New(testConfig(), media, nil, nil, lib)
	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	scenes, assets := extractFixtures()

	clips, err := p.ExtractClips(context.Background(), job, scenes, assets)
	if err != nil {
		t.Fatalf("ExtractClips: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("got %d clips, want 2", len(clips))
	}
	// The failed middle scene is gone; survivors keep their scene order.
	if clips[0].SceneIndex != 0 || clips[1].SceneIndex != 2 {
		t.Errorf("survivor order = %d, %d; want 0, 2", clips[0].SceneIndex, clips[1].SceneIndex)
	}
	for _, clip := range clips {
		if clip.ActualDuration <= 0 {
			t.Errorf("clip %d has duration %v", clip.SceneIndex, clip.ActualDuration)
		}
	}
}

func TestExtractClipsSpecFields(t *testing.T) {
	lib := testLibrary(t)
	media := &fakeMedia{}
	p := New(testConfig(), media, nil, nil, lib)
	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	scenes, assets := extractFixtures()

	if _, err := p.ExtractClips(context.Background(), job, scenes[:1], assets[:1]); err != nil {
		t.Fatalf("ExtractClips: %v", err)
	}
	if len(media.extracted) != 1 {
		t.Fatalf("got %d extract calls, want 1", len(media.extracted))
	}
	spec := media.extracted[0]
	if spec.SourcePath != job.SourcePath {
		t.Errorf("SourcePath = %q, want %q", spec.SourcePath, job.SourcePath)
	}
	if spec.NarrationPath != assets[0].AudioPath {
		t.Errorf("NarrationPath = %q, want %q", spec.NarrationPath, assets[0].AudioPath)
	}
	if spec.PlaybackRate != scenes[0].PlaybackRate || spec.TargetSec != scenes[0].TargetDuration {
		t.Errorf("rate/target = %v/%v, want %v/%v",
			spec.PlaybackRate, spec.TargetSec, scenes[0].PlaybackRate, scenes[0].TargetDuration)
	}
	if spec.Encode.Width != 1920 || spec.Encode.Height != 1080 || spec.Encode.FPS != 30 {
		t.Errorf("encode params = %+v", spec.Encode)
	}
}

func TestExtractClipsAllFail(t *testing.T) {
	lib := testLibrary(t)
	media := &fakeMedia{
		extractErr: func(services.ExtractSpec) error {
			return errors.New("ffmpeg exited with status 1")
		},
	}
	p := New(testConfig(), media, nil, nil, lib)
	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	scenes, assets := extractFixtures()

	_, err := p.ExtractClips(context.Background(), job, scenes, assets)
	if err == nil {
		t.Fatal("expected error when every extraction fails")
	}
	if kind := stageKind(t, err); kind != models.ErrorKindExtraction {
		t.Errorf("error kind = %s, want %s", kind, models.ErrorKindExtraction)
	}
}
