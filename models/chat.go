package models

// ChatRequest is the payload coming from the frontend into /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// UIHint is a presentation-only annotation derived from the last tool
// outcome. It never feeds back into the conversation.
type UIHint struct {
	Type string      `json:"type"` // "calendar_widget", "booking_card", "manage_card", "topic_selector"
	Data interface{} `json:"data,omitempty"`
}

// ChatReply is what the orchestrator returns for one user turn.
type ChatReply struct {
	Text   string  `json:"text"`
	UIHint *UIHint `json:"ui_hint,omitempty"`
}

// ChatResponse is the /api/chat envelope.
type ChatResponse struct {
	Status   string    `json:"status"`
	Response ChatReply `json:"response"`
	Logs     []string  `json:"logs,omitempty"`
}

// VoiceResponse is the /api/voice envelope. AudioBase64 is empty when
// text-to-speech failed; the turn still succeeds.
type VoiceResponse struct {
	Status      string   `json:"status"`
	UserText    string   `json:"user_text"`
	AgentText   string   `json:"agent_text"`
	UIComponent *UIHint  `json:"ui_component,omitempty"`
	AudioBase64 string   `json:"audio_base64,omitempty"`
	Logs        []string `json:"logs,omitempty"`
}

// Turn is one persisted transcript entry of a chat session.
type Turn struct {
	Timestamp string `json:"timestamp" bson:"timestamp"`
	User      string `json:"user" bson:"user"`
	Agent     string `json:"agent" bson:"agent"`
	AudioFile string `json:"audio_file,omitempty" bson:"audio_file,omitempty"`
}
