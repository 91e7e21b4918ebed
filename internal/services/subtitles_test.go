package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSRTTimestamp(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantOK  bool
	}{
		{"00:00:01,500", 1, true},
		{"00:01:23,000", 83, true},
		{"01:02:03,456", 3723, true},
		{"02:00:00,000", 7200, true},
		{"1:2:3", 0, false},      // missing millisecond field
		{"not a time", 0, false},
		{"aa:bb:cc,dd", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseSRTTimestamp(tc.in)
		if ok != tc.wantOK {
			t.Errorf("parseSRTTimestamp(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("parseSRTTimestamp(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLoadSubtitleText(t *testing.T) {
	srt := strings.Join([]string{
		"1",
		"00:01:23,000 --> 00:01:36,900",
		"<i>So it begins.</i>",
		"",
		"2",
		"00:02:00,100 --> 00:02:05,000",
		"Run!",
		"",
	}, "\n")

	path := filepath.Join(t.TempDir(), "movie.srt")
	if err := os.WriteFile(path, []byte(srt), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	got, err := LoadSubtitleText(path)
	if err != nil {
		t.Fatalf("load subtitles: %v", err)
	}

	if !strings.Contains(got, "83 --> 96") {
		t.Errorf("expected seconds-converted timestamp, got:\n%s", got)
	}
	if !strings.Contains(got, "120 --> 125") {
		t.Errorf("expected second timestamp converted, got:\n%s", got)
	}
	if strings.Contains(got, "<i>") || strings.Contains(got, "</i>") {
		t.Errorf("expected italics markup stripped, got:\n%s", got)
	}
	if !strings.Contains(got, "So it begins.") {
		t.Errorf("expected dialogue preserved, got:\n%s", got)
	}
}

func TestLoadSubtitleTextMissingFile(t *testing.T) {
	if _, err := LoadSubtitleText(filepath.Join(t.TempDir(), "nope.srt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
