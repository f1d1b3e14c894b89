package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// TypeImageAccepted marks a message carrying an ImageAccepted body.
const TypeImageAccepted = "image.accepted"

// ImageAccepted is published after an image has been stored and counted.
type ImageAccepted struct {
	Enrollment string    `json:"enrollment"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	Sequence   int       `json:"sequence"`
	Size       int64     `json:"size"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// NewImageAccepted wraps evt in a Message.
func NewImageAccepted(evt ImageAccepted) (Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", TypeImageAccepted, err)
	}
	return Message{Type: TypeImageAccepted, Body: body}, nil
}

// DecodeImageAccepted parses the body of an image.accepted message.
func DecodeImageAccepted(msg Message) (ImageAccepted, error) {
	if msg.Type != TypeImageAccepted {
		return ImageAccepted{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var evt ImageAccepted
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return ImageAccepted{}, fmt.Errorf("decode %s: %w", TypeImageAccepted, err)
	}
	if evt.Enrollment == "" || evt.Filename == "" {
		return ImageAccepted{}, fmt.Errorf("decode %s: missing enrollment or filename", TypeImageAccepted)
	}
	return evt, nil
}
