package models

type MessageType string

const (
	MessageSuccess MessageType = "success"
	MessageError   MessageType = "error"
)

// Message is a one-shot notice shown to the customer on the next page view.
type Message struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}
