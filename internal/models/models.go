package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enums

// Stage is the last completed pipeline stage of a MovieJob. The batch
// controller is the sole writer and advances it monotonically; it is
// persisted atomically on every transition so a restart resumes from
// the last completed stage.
type Stage string

const (
	StagePlanned    Stage = "planned"
	StageNarrated   Stage = "narrated"
	StageReconciled Stage = "reconciled"
	StageExtracted  Stage = "extracted"
	StageAssembled  Stage = "assembled"
	StageMixed      Stage = "mixed"
	StageReframed   Stage = "reframed"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Terminal reports whether the stage ends the job lifecycle.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// ErrorKind classifies job failures for operator inspection.
type ErrorKind string

const (
	// ErrorKindNoPlan — the scene-plan source delivered an empty plan.
	ErrorKindNoPlan ErrorKind = "no_plan"
	// ErrorKindSynthesis — speech synthesis failed for every scene.
	ErrorKindSynthesis ErrorKind = "synthesis_error"
	// ErrorKindExtraction — clip extraction left no usable scenes.
	ErrorKindExtraction ErrorKind = "extraction_error"
	// ErrorKindAssembly — too few surviving scenes to assemble a watchable short.
	ErrorKindAssembly ErrorKind = "assembly_error"
	// ErrorKindToolFailure — the media tool exited nonzero during a movie-fatal stage.
	ErrorKindToolFailure ErrorKind = "tool_failure"
)

// Models

// SceneEntry is one narrative beat selected from the source movie:
// a source time range plus the narration text spoken over it.
// Entries are immutable once planned; insertion order is playback order.
type SceneEntry struct {
	Index       int     `json:"index"`
	SourceStart float64 `json:"source_start"`
	SourceEnd   float64 `json:"source_end"`
	Narration   string  `json:"narration"`
}

// SourceSpan returns the length of the source time range in seconds.
func (s SceneEntry) SourceSpan() float64 {
	return s.SourceEnd - s.SourceStart
}

// ClipPlan is the ordered scene selection for one movie, as delivered
// by the plan source.
type ClipPlan struct {
	MovieID string       `json:"movie_id"`
	Title   string       `json:"title"`
	Scenes  []SceneEntry `json:"scenes"`
}

// Normalize drops scenes with an invalid time range or empty narration and
// renumbers the survivors contiguously from 0. Playback order is preserved.
func (p *ClipPlan) Normalize() {
	kept := p.Scenes[:0]
	for _, s := range p.Scenes {
		if s.SourceStart < 0 || s.SourceEnd <= s.SourceStart || s.Narration == "" {
			continue
		}
		s.Index = len(kept)
		kept = append(kept, s)
	}
	p.Scenes = kept
}

// Validate checks the plan invariants: at least one scene, start < end,
// and contiguous indexes in playback order.
func (p *ClipPlan) Validate() error {
	if len(p.Scenes) == 0 {
		return fmt.Errorf("plan has no scenes")
	}
	for i, s := range p.Scenes {
		if s.Index != i {
			return fmt.Errorf("scene %d: index %d out of order", i, s.Index)
		}
		if s.SourceEnd <= s.SourceStart {
			return fmt.Errorf("scene %d: source range %.2f-%.2f is empty", i, s.SourceStart, s.SourceEnd)
		}
	}
	return nil
}

// NarrationAsset is one synthesized narration file with its measured
// duration. Duration is always ffprobe-measured from the decoded asset,
// never taken from the synthesis service.
type NarrationAsset struct {
	SceneIndex int     `json:"scene_index"`
	AudioPath  string  `json:"audio_path"`
	Duration   float64 `json:"duration"`
}

// ReconciledScene carries the output duration and source playback-rate
// adjustment for one scene. PlaybackRate is always within the configured
// [min_rate, max_rate] after reconciliation.
type ReconciledScene struct {
	SceneIndex     int     `json:"scene_index"`
	SourceStart    float64 `json:"source_start"`
	SourceEnd      float64 `json:"source_end"`
	TargetDuration float64 `json:"target_duration"`
	PlaybackRate   float64 `json:"playback_rate"`
}

// IntermediateClip is one cut, rate-adjusted clip in the job's private
// working area. Owned by the pipeline until the assembler consumes it.
type IntermediateClip struct {
	SceneIndex     int     `json:"scene_index"`
	FilePath       string  `json:"file_path"`
	ActualDuration float64 `json:"actual_duration"`
}

// MovieJob is the persisted unit of progress tracking for one source movie.
type MovieJob struct {
	ID           uuid.UUID  `json:"id"`
	MovieID      string     `json:"movie_id"`
	Title        string     `json:"title"`
	SourcePath   string     `json:"source_path"`
	Stage        Stage      `json:"stage"`
	ErrorKind    *ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	SceneCount   *int       `json:"scene_count,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
