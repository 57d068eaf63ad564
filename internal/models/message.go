package models

// Offsets used by the presentation layer to slide a message in and out.
const (
	MessageBottomShown  = 40
	MessageBottomHidden = -300
)

// Message is a transient notification. It is never persisted.
type Message struct {
	ID      string `json:"id"`
	Show    bool   `json:"show"`
	Text    string `json:"text"`
	Success bool   `json:"success"`
	Bottom  int    `json:"bottomProp"`
}
