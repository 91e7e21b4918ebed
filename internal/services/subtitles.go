package services

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// SRT subtitle loader
// Converts an .srt file into the compact planner input: timestamp lines
// become whole seconds ("83 --> 96"), italics markup is stripped, dialogue
// lines pass through unchanged.
// ---------------------------------------------------------------------------

// LoadSubtitleText reads an SRT file and returns the seconds-converted text
// fed to the scene planner.
func LoadSubtitleText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open subtitles: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		line = strings.ReplaceAll(line, "<i>", "")
		line = strings.ReplaceAll(line, "</i>", "")

		if from, to, ok := parseTimestampLine(line); ok {
			line = fmt.Sprintf("%d --> %d", from, to)
		}

		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read subtitles: %w", err)
	}

	return b.String(), nil
}

// parseTimestampLine recognizes "HH:MM:SS,mmm --> HH:MM:SS,mmm" and returns
// both sides as whole seconds.
func parseTimestampLine(line string) (from, to int, ok bool) {
	left, right, found := strings.Cut(line, " --> ")
	if !found || !strings.Contains(left, ":") || !strings.Contains(right, ":") {
		return 0, 0, false
	}

	from, ok = parseSRTTimestamp(strings.TrimSpace(left))
	if !ok {
		return 0, 0, false
	}
	to, ok = parseSRTTimestamp(strings.TrimSpace(right))
	if !ok {
		return 0, 0, false
	}
	return from, to, true
}

// parseSRTTimestamp converts "HH:MM:SS,mmm" to whole seconds. Milliseconds
// are dropped; second-level precision is enough for scene planning.
func parseSRTTimestamp(ts string) (int, bool) {
	parts := strings.FieldsFunc(ts, func(r rune) bool {
		return r == ':' || r == ','
	})
	if len(parts) != 4 {
		return 0, false
	}

	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	ss, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}

	return hh*3600 + mm*60 + ss, true
}
