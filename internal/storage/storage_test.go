package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()
	l := New(
		filepath.Join(root, "movies"),
		filepath.Join(root, "subtitles"),
		filepath.Join(root, "music"),
		filepath.Join(root, "output"),
		filepath.Join(root, "output_vertical"),
		filepath.Join(root, "retired"),
		filepath.Join(root, "work"),
	)
	if err := l.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	return l
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Matrix", "the-matrix"},
		{"Mad Max: Fury Road", "mad-max-fury-road"},
		{"  It's Alive!  ", "it-s-alive"},
		{"Se7en", "se7en"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDiscoverMoviesSkipsCompleted(t *testing.T) {
	l := newTestLibrary(t)

	touch(t, filepath.Join(l.MoviesDir, "The Matrix.mp4"))
	touch(t, filepath.Join(l.MoviesDir, "Alien.mkv"))
	touch(t, filepath.Join(l.MoviesDir, "notes.txt")) // not a movie

	// A movie with an existing horizontal output is never rediscovered
	touch(t, l.HorizontalPath("alien"))

	movies, err := l.DiscoverMovies()
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	if len(movies) != 1 {
		t.Fatalf("expected 1 movie, got %d: %+v", len(movies), movies)
	}
	if movies[0].ID != "the-matrix" || movies[0].Title != "The Matrix" {
		t.Errorf("unexpected movie: %+v", movies[0])
	}
}

func TestJobWorkDirLifecycle(t *testing.T) {
	l := newTestLibrary(t)

	dir, err := l.EnsureJobWorkDir("the-matrix")
	if err != nil {
		t.Fatalf("ensure workdir: %v", err)
	}

	for _, sub := range []string{"audio", "clips"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("expected %s subdir: %v", sub, err)
		}
	}

	touch(t, filepath.Join(dir, "clips", "scene_000.mp4"))

	if err := l.PurgeJobWorkDir("the-matrix"); err != nil {
		t.Fatalf("purge workdir: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected workdir removed, stat err=%v", err)
	}
}

func TestRetireSource(t *testing.T) {
	l := newTestLibrary(t)

	src := filepath.Join(l.MoviesDir, "Alien.mkv")
	touch(t, src)

	if err := l.RetireSource(src, "alien"); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected source gone, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(l.RetiredDir, "alien.mkv")); err != nil {
		t.Errorf("expected retired copy: %v", err)
	}
}

func TestMusicCandidatesFiltersByExtension(t *testing.T) {
	l := newTestLibrary(t)

	touch(t, filepath.Join(l.MusicDir, "theme.mp3"))
	touch(t, filepath.Join(l.MusicDir, "score.m4a"))
	touch(t, filepath.Join(l.MusicDir, "cover.jpg"))

	paths, err := l.MusicCandidates()
	if err != nil {
		t.Fatalf("music candidates: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %v", len(paths), paths)
	}
}
