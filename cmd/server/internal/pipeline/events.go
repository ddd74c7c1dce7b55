package pipeline

// Event names delivered to streaming consumers, in protocol order: one
// "start", zero or more "chunk" in index order, then exactly one of
// "complete" or "error".
const (
	EventStart    = "start"
	EventChunk    = "chunk"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is one progressive-delivery record. Data is the payload struct for
// the event's name and serializes to the wire format as JSON.
type Event struct {
	Name string
	Data any
}

// StartData announces the job after normalization succeeded.
type StartData struct {
	TotalDuration float64 `json:"total_duration"`
}

// ChunkData carries one fused transcript line as soon as its chunk is ready.
type ChunkData struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
}

// CompleteData terminates a successful stream with the assembled transcript.
type CompleteData struct {
	Transcript    string  `json:"transcript"`
	TotalDuration float64 `json:"total_duration"`
}

// ErrorData terminates a failed stream.
type ErrorData struct {
	Message string `json:"message"`
}

// EmitFunc receives events in order. Returning an error aborts the job; the
// orchestrator treats it like a consumer disconnect.
type EmitFunc func(Event) error
