package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/services"
)

func TestRenderNarrationsDropsFailedScenes(t *testing.T) {
	lib := testLibrary(t)
	media := &fakeMedia{durations: map[string]float64{}}
	tts := &fakeTTS{failFor: map[string]error{
		"the middle scene": errors.New("synthesis unavailable"),
	}}
	cfg := testConfig()
	cfg.TTSMaxRetries = 1
	p := New(cfg, media, tts, nil, lib)

	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	plan := &models.ClipPlan{
		MovieID: job.MovieID,
		Scenes: []models.SceneEntry{
			{Index: 0, SourceStart: 10, SourceEnd: 16, Narration: "the first scene"},
			{Index: 1, SourceStart: 30, SourceEnd: 36, Narration: "the middle scene"},
			{Index: 2, SourceStart: 50, SourceEnd: 56, Narration: "the last scene"},
		},
	}

	scenes, assets, err := p.RenderNarrations(context.Background(), job, plan)
	if err != nil {
		t.Fatalf("RenderNarrations: %v", err)
	}
	if len(scenes) != 2 || len(assets) != 2 {
		t.Fatalf("got %d scenes, %d assets, want 2 each", len(scenes), len(assets))
	}
	// Survivors are renumbered contiguously and stay in plan order.
	for i, scene := range scenes {
		if scene.Index != i {
			t.Errorf("scene[%d].Index = %d, want %d", i, scene.Index, i)
		}
		if assets[i].SceneIndex != i {
			t.Errorf("assets[%d].SceneIndex = %d, want %d", i, assets[i].SceneIndex, i)
		}
	}
	if scenes[0].Narration != "the first scene" || scenes[1].Narration != "the last scene" {
		t.Errorf("wrong survivors: %q, %q", scenes[0].Narration, scenes[1].Narration)
	}
	for _, asset := range assets {
		if asset.Duration <= 0 {
			t.Errorf("asset %d has duration %v", asset.SceneIndex, asset.Duration)
		}
	}
}

func TestRenderNarrationsAllScenesFail(t *testing.T) {
	lib := testLibrary(t)
	tts := &fakeTTS{failFor: map[string]error{
		"only scene": errors.New("synthesis unavailable"),
	}}
	cfg := testConfig()
	cfg.TTSMaxRetries = 0
	p := New(cfg, &fakeMedia{}, tts, nil, lib)

	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	plan := &models.ClipPlan{
		MovieID: job.MovieID,
		Scenes:  []models.SceneEntry{{Index: 0, SourceStart: 0, SourceEnd: 6, Narration: "only scene"}},
	}

	_, _, err := p.RenderNarrations(context.Background(), job, plan)
	if err == nil {
		t.Fatal("expected error when every scene fails")
	}
	if kind := stageKind(t, err); kind != models.ErrorKindSynthesis {
		t.Errorf("error kind = %s, want %s", kind, models.ErrorKindSynthesis)
	}
}

// countingTTS fails a fixed number of calls before succeeding.
type countingTTS struct {
	failures int
	calls    int
}

func (c *countingTTS) GenerateSpeech(ctx context.Context, text string) (*services.TTSResponse, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("transient synthesis error")
	}
	return &services.TTSResponse{AudioData: []byte("mp3-bytes"), Format: "mp3"}, nil
}

func TestSynthesizeSceneRetriesTransientFailures(t *testing.T) {
	lib := testLibrary(t)
	tts := &countingTTS{failures: 2}
	cfg := testConfig()
	cfg.TTSMaxRetries = 3
	cfg.SceneConcurrency = 1
	p := New(cfg, &fakeMedia{}, tts, nil, lib)

	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	plan := &models.ClipPlan{
		MovieID: job.MovieID,
		Scenes:  []models.SceneEntry{{Index: 0, SourceStart: 0, SourceEnd: 6, Narration: "flaky scene"}},
	}

	scenes, assets, err := p.RenderNarrations(context.Background(), job, plan)
	if err != nil {
		t.Fatalf("RenderNarrations: %v", err)
	}
	if len(scenes) != 1 || len(assets) != 1 {
		t.Fatalf("got %d scenes, want 1", len(scenes))
	}
	if tts.calls != 3 {
		t.Errorf("tts called %d times, want 3", tts.calls)
	}
}
