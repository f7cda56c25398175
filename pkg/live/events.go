package live

// Role identifies a transcript speaker.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Event is an inbound server event demultiplexed from one raw frame.
type Event interface {
	liveEventType() string
}

// TranscriptEvent carries an incremental transcript fragment for one side of
// the conversation.
type TranscriptEvent struct {
	Role Role
	Text string
}

func (TranscriptEvent) liveEventType() string { return "transcript" }

// AudioChunkEvent carries one synthesized-audio chunk, PCM16LE 24 kHz mono.
type AudioChunkEvent struct {
	PCM []byte
}

func (AudioChunkEvent) liveEventType() string { return "audio_chunk" }

// InterruptedEvent signals barge-in: the user started speaking over the
// assistant and all scheduled playback must flush immediately.
type InterruptedEvent struct{}

func (InterruptedEvent) liveEventType() string { return "interrupted" }

// ClosedEvent is terminal for the connection attempt.
type ClosedEvent struct{}

func (ClosedEvent) liveEventType() string { return "closed" }

// ErrorEvent carries a transport failure. A ClosedEvent follows.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) liveEventType() string { return "error" }
