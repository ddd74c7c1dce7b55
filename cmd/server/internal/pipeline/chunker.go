package pipeline

import "fmt"

// ChunkSpan describes one planned time window of a normalized audio file.
// Spans are produced in increasing Index/StartSec order; consecutive spans
// overlap by the configured overlap and only the final span may be shorter
// than the nominal length.
type ChunkSpan struct {
	Index    int
	StartSec float64
	EndSec   float64
}

// InvalidDurationError reports that the audio duration could not be
// determined or was not positive, so chunking is impossible.
type InvalidDurationError struct {
	Duration float64
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("could not determine audio duration (got %.3f)", e.Duration)
}

// PlanChunks partitions [0, totalSec) into overlapping windows of nominal
// length chunkLen stepping by chunkLen-overlap. Requires totalSec > 0 and
// 0 <= overlap < chunkLen. The final window is clipped to totalSec, never
// padded.
func PlanChunks(totalSec, chunkLen, overlap float64) ([]ChunkSpan, error) {
	if totalSec <= 0 {
		return nil, &InvalidDurationError{Duration: totalSec}
	}
	if chunkLen <= 0 || overlap < 0 || overlap >= chunkLen {
		return nil, fmt.Errorf("invalid chunk plan: length=%.3f overlap=%.3f", chunkLen, overlap)
	}

	step := chunkLen - overlap
	var spans []ChunkSpan
	for start := 0.0; start < totalSec; start += step {
		end := start + chunkLen
		if end > totalSec {
			end = totalSec
		}
		spans = append(spans, ChunkSpan{Index: len(spans), StartSec: start, EndSec: end})
	}
	return spans, nil
}
