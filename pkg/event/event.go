// Package event carries host notifications between watch face
// components: display visibility and mode changes from power
// controllers, and timezone changes from the system zone watcher.
package event

import (
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
)

// Event types published by this module.
const (
	TypeTimezoneChanged   = "system.timezone.changed"
	TypeTimeTick          = "system.time.tick"
	TypeVisibilityChanged = "display.visibility.changed"
	TypeModeChanged       = "display.mode.changed"
)

// TimezoneChanged is the payload of TypeTimezoneChanged.
type TimezoneChanged struct {
	Zone string `json:"zone"`
}

// VisibilityChanged is the payload of TypeVisibilityChanged.
type VisibilityChanged struct {
	Visible bool `json:"visible"`
}

// ModeChanged is the payload of TypeModeChanged. Mode is "normal" or
// "low_power".
type ModeChanged struct {
	Mode string `json:"mode"`
}

// Event is a message envelope with a serialized payload.
type Event struct {
	// ID is a unique identifier for this event instance
	ID string `json:"id"`

	// Type is a namespaced event type (e.g. "system.timezone.changed")
	Type string `json:"type"`

	// Source identifies the publishing component
	Source string `json:"source"`

	// Timestamp indicates when the event was created
	Timestamp time.Time `json:"timestamp"`

	// Data contains the serialized payload
	Data []byte `json:"data,omitempty"`

	// Metadata provides additional context for filtering and debugging
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Codec serializes event payloads.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec implements Codec with github.com/go-json-experiment/json.
type JSONCodec struct{}

// Marshal converts a payload to JSON bytes.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes JSON bytes into a payload.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// New creates an event stamped with the current time.
func New(eventType, source string, payload any, codec Codec) (*Event, error) {
	return NewAt(time.Now(), eventType, source, payload, codec)
}

// NewAt creates an event stamped with at.
func NewAt(at time.Time, eventType, source string, payload any, codec Codec) (*Event, error) {
	data, err := codec.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: at,
		Data:      data,
		Metadata:  make(map[string]string),
	}, nil
}

// WithMetadata adds a metadata key-value pair to the event.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Decode deserializes the event data into v. Empty data leaves v as is.
func (e *Event) Decode(v any, codec Codec) error {
	if len(e.Data) == 0 {
		return nil
	}
	return codec.Unmarshal(e.Data, v)
}
