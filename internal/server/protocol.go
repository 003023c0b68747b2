package server

import "time"

// command is the JSON payload of an inbound text frame.
type command struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	IsFinal    bool   `json:"is_final,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
}

// Inbound command types.
const (
	cmdPing              = "ping"
	cmdTranscript        = "transcript"
	cmdUserSpeaking      = "user_speaking"
	cmdSpeak             = "speak"
	cmdAsk               = "ask"
	cmdPause             = "pause"
	cmdResume            = "resume"
	cmdStartConversation = "start_conversation"
	cmdEndConversation   = "end_conversation"
	cmdAudioPlaying      = "audio_playing"
	cmdAudioEnded        = "audio_ended"
	cmdGetMode           = "get_mode"
	cmdGetQuestion       = "get_question"
	cmdGetProfile        = "get_profile"
)

// event is the JSON payload of an outbound text frame. Audio marshals to
// base64 automatically.
type event struct {
	Type       string        `json:"type"`
	SessionID  string        `json:"session_id,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Text       string        `json:"text,omitempty"`
	Question   string        `json:"question,omitempty"`
	Category   string        `json:"category,omitempty"`
	Audio      []byte        `json:"audio,omitempty"`
	DurationMs int64         `json:"duration_ms,omitempty"`
	Message    string        `json:"message,omitempty"`
	Facts      []profileFact `json:"facts,omitempty"`
}

// profileFact is one entry of a get_profile response.
type profileFact struct {
	Category string    `json:"category"`
	Text     string    `json:"text"`
	SavedAt  time.Time `json:"saved_at"`
}

// Outbound event types.
const (
	evtConnected       = "connected"
	evtPong            = "pong"
	evtInterim         = "transcript_interim"
	evtFinal           = "transcript_final"
	evtModeChange      = "mode_change"
	evtAIQuestion      = "ai_question"
	evtAIResponse      = "ai_response"
	evtAIVoice         = "ai_voice"
	evtProfile         = "profile"
	evtError           = "error"
)

// Authentication failures close the socket with this code before any session
// exists. 4000-4999 is the private-use close code range.
const closeCodeAuthFailed = 4401
