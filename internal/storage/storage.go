package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Library — the filesystem surface of the pipeline
// Discovery directory for source movies, music candidate pool, horizontal
// and vertical output directories, a retirement directory for consumed
// sources, and a private per-job working area purged on completion.
// ---------------------------------------------------------------------------

type Library struct {
	MoviesDir    string
	SubtitlesDir string
	MusicDir     string
	OutputDir    string
	VerticalDir  string
	RetiredDir   string
	WorkDir      string
}

// Movie is one discovered source file.
type Movie struct {
	ID    string // directory-safe slug, the persistent movie identifier
	Title string // original filename stem
	Path  string
}

var movieExtensions = map[string]bool{
	".mp4": true,
	".mkv": true,
	".mov": true,
}

var musicExtensions = map[string]bool{
	".mp3": true,
	".m4a": true,
	".wav": true,
}

func New(moviesDir, subtitlesDir, musicDir, outputDir, verticalDir, retiredDir, workDir string) *Library {
	return &Library{
		MoviesDir:    moviesDir,
		SubtitlesDir: subtitlesDir,
		MusicDir:     musicDir,
		OutputDir:    outputDir,
		VerticalDir:  verticalDir,
		RetiredDir:   retiredDir,
		WorkDir:      workDir,
	}
}

// EnsureDirs creates the whole filesystem surface up front.
func (l *Library) EnsureDirs() error {
	dirs := []string{
		l.MoviesDir, l.SubtitlesDir, l.MusicDir,
		l.OutputDir, l.VerticalDir, l.RetiredDir, l.WorkDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// DiscoverMovies lists source movie files in the discovery directory,
// skipping any movie whose horizontal output already exists — completed
// work is never redone.
func (l *Library) DiscoverMovies() ([]Movie, error) {
	entries, err := os.ReadDir(l.MoviesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read movies dir: %w", err)
	}

	var movies []Movie
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !movieExtensions[ext] {
			continue
		}

		title := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		movie := Movie{
			ID:    Slugify(title),
			Title: title,
			Path:  filepath.Join(l.MoviesDir, entry.Name()),
		}
		if l.HorizontalExists(movie.ID) {
			continue
		}
		movies = append(movies, movie)
	}

	return movies, nil
}

func (l *Library) HorizontalPath(movieID string) string {
	return filepath.Join(l.OutputDir, movieID+".mp4")
}

func (l *Library) VerticalPath(movieID string) string {
	return filepath.Join(l.VerticalDir, movieID+"_vertical.mp4")
}

func (l *Library) SubtitlePath(movieID string) string {
	return filepath.Join(l.SubtitlesDir, movieID+".srt")
}

// HorizontalExists reports whether the primary output for a movie is
// already on disk.
func (l *Library) HorizontalExists(movieID string) bool {
	info, err := os.Stat(l.HorizontalPath(movieID))
	return err == nil && !info.IsDir()
}

// JobWorkDir is the private working area for one movie job. Names are
// keyed by movie ID, so concurrent jobs never collide.
func (l *Library) JobWorkDir(movieID string) string {
	return filepath.Join(l.WorkDir, movieID)
}

func (l *Library) EnsureJobWorkDir(movieID string) (string, error) {
	dir := l.JobWorkDir(movieID)
	for _, sub := range []string{"audio", "clips"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("failed to create workdir: %w", err)
		}
	}
	return dir, nil
}

// PurgeJobWorkDir removes the whole private working area after successful
// completion.
func (l *Library) PurgeJobWorkDir(movieID string) error {
	return os.RemoveAll(l.JobWorkDir(movieID))
}

// RetireSource moves a fully processed source movie out of the discovery
// directory so re-runs never pick it up again.
func (l *Library) RetireSource(sourcePath, movieID string) error {
	dest := filepath.Join(l.RetiredDir, movieID+filepath.Ext(sourcePath))
	if err := os.Rename(sourcePath, dest); err != nil {
		return fmt.Errorf("failed to retire source: %w", err)
	}
	return nil
}

// MusicCandidates lists every audio file in the music pool. Duration
// filtering happens in the mixer, where durations are probed.
func (l *Library) MusicCandidates() ([]string, error) {
	entries, err := os.ReadDir(l.MusicDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read music dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if musicExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(l.MusicDir, entry.Name()))
		}
	}
	return paths, nil
}

// Slugify turns a movie title into a directory-safe identifier: lowercase,
// runs of non-alphanumerics collapsed to single dashes.
func Slugify(title string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
