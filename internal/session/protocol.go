package session

// Text frames carry a JSON object with a "type" discriminant. Binary frames
// are always raw PCM audio.

type inboundMessage struct {
	Type    string `json:"type"`
	Audio   string `json:"audio,omitempty"`   // base64 PCM, for type "audio"
	Command string `json:"command,omitempty"` // for type "command"
}

const (
	messageTypeAudio   = "audio"
	messageTypeCommand = "command"
)

const (
	cmdStartRecording = "start_recording"
	cmdStopRecording  = "stop_recording"
	cmdPlayPrefix     = "play_"
)

// statusFrame is the JSON reply for command outcomes and playback framing.
type statusFrame struct {
	Type     string `json:"type"`
	Command  string `json:"command,omitempty"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message,omitempty"`
}

const (
	statusAck           = "ack"
	statusSaved         = "saved"
	statusNoAudio       = "no_audio"
	statusError         = "error"
	statusPlaybackStart = "playback_start"
	statusPlaybackEnd   = "playback_end"
)
