package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// FFmpegService
// All media processing goes through external ffmpeg/ffprobe subprocesses.
// A nonzero exit status is a tool failure; no tool diagnostic text is ever
// inspected for control decisions.
// ---------------------------------------------------------------------------

// VideoParams are the encode parameters of a video stream. Clips matching
// the plan's declared target params can be concatenated without re-encoding.
type VideoParams struct {
	Width  int
	Height int
	FPS    int
	Codec  string
}

func (p VideoParams) Equal(other VideoParams) bool {
	return p.Width == other.Width &&
		p.Height == other.Height &&
		p.FPS == other.FPS &&
		p.Codec == other.Codec
}

// ExtractSpec describes one cut-and-rate-adjust operation: the source range
// is sped up or slowed down so the output lands on TargetSec, the source
// audio is discarded, and the narration is mapped in with LeadInSec of
// silence up front and padding to fill the lead-out.
type ExtractSpec struct {
	SourcePath    string
	NarrationPath string
	OutputPath    string
	StartSec      float64
	EndSec        float64
	PlaybackRate  float64
	LeadInSec     float64
	TargetSec     float64
	Encode        VideoParams
}

// MixOptions control the background-music bed.
type MixOptions struct {
	MusicGain     float64 // ducking gain applied to the music, narration stays at full volume
	MusicStartSec float64 // offset into the track, skips song intros
}

type FFmpegService struct {
	ffmpegPath  string
	ffprobePath string
}

func NewFFmpegService(ffmpegPath, ffprobePath string) *FFmpegService {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegService{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// run executes ffmpeg and folds stderr into the returned error. The output
// is never parsed, only reported.
func (s *FFmpegService) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\n%s", err, string(b))
	}
	return nil
}

// ProbeDuration returns the container duration of a media file in seconds,
// measured from the decoded asset.
func (s *FFmpegService) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}

	text := strings.TrimSpace(string(b))
	duration, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", text, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid duration %.3f for %s", duration, path)
	}
	return duration, nil
}

// ProbeVideoParams returns the first video stream's encode parameters.
func (s *FFmpegService) ProbeVideoParams(ctx context.Context, path string) (VideoParams, error) {
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,r_frame_rate",
		"-of", "csv=p=0",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return VideoParams{}, fmt.Errorf("ffprobe stream params failed: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(string(b)), ",")
	if len(parts) != 4 {
		return VideoParams{}, fmt.Errorf("unexpected ffprobe output %q", strings.TrimSpace(string(b)))
	}

	width, _ := strconv.Atoi(parts[1])
	height, _ := strconv.Atoi(parts[2])
	fps, err := parseFrameRate(parts[3])
	if err != nil {
		return VideoParams{}, err
	}
	if width <= 0 || height <= 0 {
		return VideoParams{}, fmt.Errorf("invalid dimensions %dx%d for %s", width, height, path)
	}

	return VideoParams{
		Width:  width,
		Height: height,
		FPS:    fps,
		Codec:  parts[0],
	}, nil
}

// parseFrameRate converts an ffprobe rational ("30/1", "30000/1001") to a
// rounded integer frame rate.
func parseFrameRate(r string) (int, error) {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		f, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse frame rate %q: %w", r, err)
		}
		return int(f + 0.5), nil
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse frame rate %q: %w", r, err)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("failed to parse frame rate %q", r)
	}
	return int(n/d + 0.5), nil
}

// ExtractClip cuts [StartSec, EndSec] from the source, applies the playback
// rate to the video, and replaces the source audio with the narration track.
// The narration is delayed by LeadInSec and padded so the output fills the
// full target duration.
func (s *FFmpegService) ExtractClip(ctx context.Context, spec ExtractSpec) error {
	leadInMs := int(spec.LeadInSec * 1000)

	filter := fmt.Sprintf(
		"[0:v]setpts=PTS/%.6f,scale=%d:%d,fps=%d[v];[1:a]adelay=%d|%d,apad[a]",
		spec.PlaybackRate,
		spec.Encode.Width, spec.Encode.Height, spec.Encode.FPS,
		leadInMs, leadInMs,
	)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", fmtSeconds(spec.StartSec),
		"-to", fmtSeconds(spec.EndSec),
		"-i", spec.SourcePath,
		"-i", spec.NarrationPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "[a]",
		"-t", fmtSeconds(spec.TargetSec),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "veryfast",
		"-crf", "22",
		"-c:a", "aac",
		"-b:a", "192k",
		spec.OutputPath,
	}

	if err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("extract clip %s: %w", filepath.Base(spec.OutputPath), err)
	}
	return nil
}

// ConcatClips concatenates clips strictly in the given order. When reencode
// is false the streams are copied as-is; when any clip's encode parameters
// differ from the target, the caller sets reencode and a uniform pass
// normalizes everything to enc.
func (s *FFmpegService) ConcatClips(ctx context.Context, clipPaths []string, outputPath string, reencode bool, enc VideoParams) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := outputPath + ".list.txt"
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	for _, path := range clipPaths {
		// FFmpeg concat demuxer format
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}

	if reencode {
		log.Printf("[FFmpeg] Clip parameters heterogeneous, re-encoding concat to %dx%d@%d", enc.Width, enc.Height, enc.FPS)
		args = append(args,
			"-vf", fmt.Sprintf("scale=%d:%d,fps=%d", enc.Width, enc.Height, enc.FPS),
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-preset", "veryfast",
			"-crf", "22",
			"-c:a", "aac",
			"-b:a", "192k",
		)
	} else {
		args = append(args, "-c", "copy")
	}

	args = append(args, "-movflags", "+faststart", outputPath)

	if err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("concatenate clips: %w", err)
	}
	return nil
}

// MixBackgroundMusic overlays a looping music bed under the narration track.
// The music loops if shorter than the video and is cut when the video ends;
// the ducking gain applies to the music only, narration stays at full volume.
func (s *FFmpegService) MixBackgroundMusic(ctx context.Context, videoPath, musicPath, outputPath string, opts MixOptions) error {
	filterComplex := fmt.Sprintf(
		"[0:a]volume=1.0[narration];[1:a]volume=%.3f[music];[narration][music]amix=inputs=2:duration=first:dropout_transition=3[aout]",
		opts.MusicGain,
	)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-stream_loop", "-1", // Loop the music infinitely; amix duration=first cuts it
		"-ss", fmtSeconds(opts.MusicStartSec),
		"-i", musicPath,
		"-filter_complex", filterComplex,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy", // Video stream untouched
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outputPath,
	}

	if err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("mix background music: %w", err)
	}
	return nil
}

// RenderVertical derives a 9:16 render from a 16:9 master: center-crop to
// the narrower aspect, then scale with pad fallback so the frame is always
// filled. The input file is never mutated.
func (s *FFmpegService) RenderVertical(ctx context.Context, inputPath, outputPath string) error {
	params, err := s.ProbeVideoParams(ctx, inputPath)
	if err != nil {
		return err
	}

	outW := int(float64(params.Height)*9.0/16.0 + 0.5)
	outH := params.Height
	outW &= ^1
	outH &= ^1

	filter := fmt.Sprintf(
		"[0:v]crop=iw*0.6:ih:iw*0.2:0,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black[v]",
		outW, outH, outW, outH,
	)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "veryfast",
		"-crf", "22",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		outputPath,
	}

	if err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("vertical render: %w", err)
	}
	return nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
