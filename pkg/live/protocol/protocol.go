// Package protocol defines the JSON frames exchanged with the remote live
// service over the duplex websocket. Field names follow the service's wire
// schema; []byte fields carry base64 text framing via encoding/json.
package protocol

// ClientSetup is the first frame of a session. The configuration is fixed at
// connect time and not renegotiable mid-session.
type ClientSetup struct {
	Setup Setup `json:"setup"`
}

// Setup configures the session: model, response modality, voice, transcription
// of both directions, and the system persona instruction.
type Setup struct {
	Model                    string               `json:"model"`
	GenerationConfig         GenerationConfig     `json:"generationConfig"`
	SystemInstruction        *Content             `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *TranscriptionConfig `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *TranscriptionConfig `json:"outputAudioTranscription,omitempty"`
}

type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// TranscriptionConfig enables a transcription direction. Presence is the
// switch; it has no fields.
type TranscriptionConfig struct{}

// Content is a sequence of message parts.
type Content struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is a typed media payload.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// ClientRealtimeInput streams captured media to the service. Fire and forget;
// no acknowledgement is tracked.
type ClientRealtimeInput struct {
	RealtimeInput RealtimeInput `json:"realtimeInput"`
}

type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

// ServerMessage is one inbound frame. Exactly one of the top-level fields is
// usually set, but a serverContent frame may carry several payloads at once.
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
}

type SetupComplete struct{}

type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
}

// Transcription is an incremental text fragment for one speaker direction.
type Transcription struct {
	Text string `json:"text"`
}
