package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/reelforge/reelforge/internal/models"
)

const planTestSRT = `1
00:01:23,000 --> 00:01:36,000
<i>Something happens.</i>

2
00:02:10,500 --> 00:02:15,000
Something else happens.
`

func writeSubtitles(t *testing.T, p *Pipeline, movieID string) {
	t.Helper()
	if err := os.WriteFile(p.lib.SubtitlePath(movieID), []byte(planTestSRT), 0o644); err != nil {
		t.Fatalf("write subtitles: %v", err)
	}
}

func TestPlanHappyPath(t *testing.T) {
	lib := testLibrary(t)
	planner := &fakePlanner{plan: &models.ClipPlan{
		Scenes: []models.SceneEntry{
			{Index: 0, SourceStart: 83, SourceEnd: 96, Narration: "a scene"},
			{Index: 1, SourceStart: 130, SourceEnd: 135, Narration: "another scene"},
		},
	}}
	p := New(testConfig(), &fakeMedia{}, nil, planner, lib)
	job := testJob("mov1")
	writeSubtitles(t, p, job.MovieID)

	plan, err := p.Plan(context.Background(), job)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.MovieID != job.MovieID {
		t.Errorf("MovieID = %q, want %q", plan.MovieID, job.MovieID)
	}
	if plan.Title != job.Title {
		t.Errorf("Title = %q, want %q", plan.Title, job.Title)
	}
	if len(plan.Scenes) != 2 {
		t.Errorf("got %d scenes, want 2", len(plan.Scenes))
	}
}

func TestPlanFailuresAreNoPlan(t *testing.T) {
	tests := []struct {
		name    string
		planner *fakePlanner
		withSRT bool
	}{
		{"missing subtitles", &fakePlanner{}, false},
		{"planner error", &fakePlanner{err: errors.New("model overloaded")}, true},
		{"empty plan", &fakePlanner{plan: &models.ClipPlan{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := testLibrary(t)
			p := New(testConfig(), &fakeMedia{}, nil, tt.planner, lib)
			job := testJob("mov1")
			if tt.withSRT {
				writeSubtitles(t, p, job.MovieID)
			}

			_, err := p.Plan(context.Background(), job)
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := stageKind(t, err); kind != models.ErrorKindNoPlan {
				t.Errorf("error kind = %s, want %s", kind, models.ErrorKindNoPlan)
			}
		})
	}
}
