// Package fusion merges independently produced transcript text and speaker
// diarization spans into one speaker-labeled transcript.
//
// Two modes exist. Per-chunk dominant-speaker fusion labels each chunk's line
// with the speaker that talked the most inside that chunk; a chunk with no
// usable segments stays unlabeled. Whole-transcript alignment re-parses the
// assembled transcript's [HH:MM:SS] markers and looks each timestamp up in
// the segment list, carrying the previous label forward when no segment
// contains it. The fallback policies intentionally differ between the modes.
package fusion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/scribeapp/scribe/cmd/server/internal/diarize"
)

// SpeakerMap assigns stable ordinal labels ("Speaker 1", "Speaker 2", ...) to
// provider speaker IDs in order of first appearance. Scope is a single job;
// a label is never reassigned once given. Not safe for concurrent use: each
// job owns exactly one map and labels from one goroutine.
type SpeakerMap struct {
	labels map[string]string
	next   int
}

// NewSpeakerMap returns an empty per-job speaker map.
func NewSpeakerMap() *SpeakerMap {
	return &SpeakerMap{labels: make(map[string]string), next: 1}
}

// Label returns the ordinal label for a provider speaker ID, assigning the
// next free ordinal on first sight.
func (m *SpeakerMap) Label(speakerID string) string {
	if label, ok := m.labels[speakerID]; ok {
		return label
	}
	label := fmt.Sprintf("Speaker %d", m.next)
	m.labels[speakerID] = label
	m.next++
	return label
}

// Len returns how many distinct speakers have been labeled.
func (m *SpeakerMap) Len() int { return len(m.labels) }

// DominantSpeaker returns the speaker ID with the largest summed duration
// across segments. Ties break toward the speaker encountered first in the
// list. ok is false when the list is empty.
func DominantSpeaker(segments []diarize.Segment) (speakerID string, ok bool) {
	totals := make(map[string]float64, len(segments))
	order := make([]string, 0, len(segments))
	for _, seg := range segments {
		if _, seen := totals[seg.Speaker]; !seen {
			order = append(order, seg.Speaker)
		}
		totals[seg.Speaker] += seg.Duration
	}

	best := ""
	bestTotal := -1.0
	for _, id := range order {
		if totals[id] > bestTotal {
			best = id
			bestTotal = totals[id]
		}
	}
	return best, best != ""
}

// FormatTimestamp renders whole seconds as zero-padded HH:MM:SS.
func FormatTimestamp(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

// timestampMarker matches a leading "[HH:MM:SS] " (or "[H:MM:SS] ") marker.
var timestampMarker = regexp.MustCompile(`^\[(\d{1,2}):(\d{2}):(\d{2})\]\s*`)

// ParseTimestamp extracts the leading timestamp marker of one transcript line,
// returning the timestamp in seconds and the remaining text. ok is false for
// lines without a recognizable marker.
func ParseTimestamp(line string) (sec int, rest string, ok bool) {
	m := timestampMarker.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	ss, _ := strconv.Atoi(m[3])
	return h*3600 + mm*60 + ss, line[len(m[0]):], true
}

// ChunkLine builds one transcript line for a fused chunk: the dominant
// speaker's label (empty when the chunk had no usable diarization), the
// chunk's absolute start timestamp, and the chunk's transcript text.
func ChunkLine(label string, startSec int, text string) string {
	ts := FormatTimestamp(startSec)
	if label == "" {
		return fmt.Sprintf("[%s] %s", ts, strings.TrimSpace(text))
	}
	return fmt.Sprintf("%s [%s] %s", label, ts, strings.TrimSpace(text))
}

// AlignTranscript applies whole-transcript time alignment: for each line with
// a leading timestamp marker, the first segment containing the timestamp
// supplies the speaker. Lines whose timestamp falls in no segment inherit the
// last assigned label; lines without a marker pass through unchanged.
func AlignTranscript(transcript string, segments []diarize.Segment, speakers *SpeakerMap) string {
	lines := strings.Split(transcript, "\n")
	lastLabel := ""
	for i, line := range lines {
		sec, rest, ok := ParseTimestamp(line)
		if !ok {
			continue
		}

		label := lastLabel
		if seg, found := segmentAt(segments, float64(sec)); found {
			label = speakers.Label(seg.Speaker)
		}
		if label == "" {
			continue
		}

		lines[i] = fmt.Sprintf("%s [%s] %s", label, FormatTimestamp(sec), rest)
		lastLabel = label
	}
	return strings.Join(lines, "\n")
}

// segmentAt finds the first segment whose [Start, End] span contains ts.
// Segments may overlap; the linear first-match scan is the deterministic
// tie-break.
func segmentAt(segments []diarize.Segment, ts float64) (diarize.Segment, bool) {
	for _, seg := range segments {
		if seg.Start <= ts && ts <= seg.End {
			return seg, true
		}
	}
	return diarize.Segment{}, false
}
