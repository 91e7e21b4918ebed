package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeMaster(t *testing.T, p *Pipeline, movieID string) string {
	t.Helper()
	master := p.MasterPath(movieID)
	if err := os.WriteFile(master, []byte("master"), 0o644); err != nil {
		t.Fatalf("write master: %v", err)
	}
	return master
}

func TestMixUsesEligibleTrack(t *testing.T) {
	lib := testLibrary(t)
	long := filepath.Join(lib.MusicDir, "long.mp3")
	if err := os.WriteFile(long, []byte("music"), 0o644); err != nil {
		t.Fatalf("write track: %v", err)
	}
	media := &fakeMedia{durations: map[string]float64{long: 185}}
	p := New(testConfig(), media, nil, nil, lib)
	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	master := writeMaster(t, p, job.MovieID)

	out, err := p.Mix(context.Background(), job, master)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if out != lib.HorizontalPath(job.MovieID) {
		t.Errorf("output = %q, want %q", out, lib.HorizontalPath(job.MovieID))
	}
	if len(media.mixed) != 1 || media.mixed[0] != long {
		t.Errorf("mixed tracks = %v, want [%s]", media.mixed, long)
	}
	// The master is the mix input; it stays until the mixed stage commits,
	// so a crash in between can redo the mix from it.
	if _, err := os.Stat(master); err != nil {
		t.Errorf("master missing after mix: %v", err)
	}
	if _, err := p.Mix(context.Background(), job, master); err != nil {
		t.Fatalf("re-run Mix: %v", err)
	}
}

func TestRemoveMaster(t *testing.T) {
	lib := testLibrary(t)
	p := New(testConfig(), &fakeMedia{}, nil, nil, lib)
	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	master := writeMaster(t, p, job.MovieID)

	p.RemoveMaster(job.MovieID)
	if _, err := os.Stat(master); !os.IsNotExist(err) {
		t.Error("master not removed")
	}
	p.RemoveMaster(job.MovieID)
}

func TestMixShortTrackExcludedEvenWhenOnlyCandidate(t *testing.T) {
	lib := testLibrary(t)
	short := filepath.Join(lib.MusicDir, "short.mp3")
	if err := os.WriteFile(short, []byte("music"), 0o644); err != nil {
		t.Fatalf("write track: %v", err)
	}
	media := &fakeMedia{durations: map[string]float64{short: 45}}
	p := New(testConfig(), media, nil, nil, lib)
	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	master := writeMaster(t, p, job.MovieID)

	out, err := p.Mix(context.Background(), job, master)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if len(media.mixed) != 0 {
		t.Errorf("short track must never be mixed, got %v", media.mixed)
	}
	// The master is promoted as-is, narration only.
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "master" {
		t.Errorf("output content = %q, want the promoted master", data)
	}
}

func TestReframeWritesVerticalRender(t *testing.T) {
	lib := testLibrary(t)
	media := &fakeMedia{}
	p := New(testConfig(), media, nil, nil, lib)
	job := testJob("mov1")

	out, err := p.Reframe(context.Background(), job)
	if err != nil {
		t.Fatalf("Reframe: %v", err)
	}
	if out != lib.VerticalPath(job.MovieID) {
		t.Errorf("output = %q, want %q", out, lib.VerticalPath(job.MovieID))
	}
	if len(media.verticals) != 1 || media.verticals[0] != out {
		t.Errorf("vertical renders = %v", media.verticals)
	}
}

func TestMixNoMusicAtAll(t *testing.T) {
	lib := testLibrary(t)
	p := New(testConfig(), &fakeMedia{}, nil, nil, lib)
	job := testJob("mov1")
	if _, err := lib.EnsureJobWorkDir(job.MovieID); err != nil {
		t.Fatalf("EnsureJobWorkDir: %v", err)
	}
	master := writeMaster(t, p, job.MovieID)

	out, err := p.Mix(context.Background(), job, master)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected promoted output at %s: %v", out, err)
	}
}
