package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	// ErrUnknownType marks a type tag outside the closed message set.
	ErrUnknownType = errors.New("unknown message type")

	// ErrMalformedPayload marks a payload that fails validation for
	// its type tag.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrEmptyMessage marks a zero-length frame.
	ErrEmptyMessage = errors.New("empty message")
)

// envelope is the wire form of a Message.
type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// changedWire mirrors ChangedPayload with pointer fields so a missing
// content key is distinguishable from an empty content value.
type changedWire struct {
	Content   *string         `json:"content"`
	Selection *SelectionRange `json:"selection"`
}

type errorWire struct {
	Detail *string `json:"detail"`
}

type replaceWire struct {
	Content *string `json:"content"`
	Caret   *int    `json:"caret"`
}

// Encode serializes msg to its wire form. It refuses messages whose
// payload field does not match the type tag, so a construction bug
// surfaces at the sender instead of as a peer-side decode failure.
func Encode(msg Message) ([]byte, error) {
	env := envelope{Type: msg.Type}

	var payload interface{}
	switch msg.Type {
	case TypeReady:
		// No payload.
	case TypeChanged:
		if msg.Changed == nil {
			return nil, fmt.Errorf("encode %s: %w: payload missing", msg.Type, ErrMalformedPayload)
		}
		payload = msg.Changed
	case TypeError:
		if msg.Error == nil {
			return nil, fmt.Errorf("encode %s: %w: payload missing", msg.Type, ErrMalformedPayload)
		}
		payload = msg.Error
	case TypeReplace:
		if msg.Replace == nil {
			return nil, fmt.Errorf("encode %s: %w: payload missing", msg.Type, ErrMalformedPayload)
		}
		payload = msg.Replace
	default:
		return nil, fmt.Errorf("encode: %w: %q", ErrUnknownType, msg.Type)
	}

	if payload != nil {
		raw, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", msg.Type, err)
		}
		env.Payload = raw
	}

	data, err := sonic.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// Decode parses and validates one wire frame. Every returned Message
// satisfies the payload invariants documented on Message; callers do
// not need to re-validate.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, ErrEmptyMessage
	}

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeReady:
		// Payload tolerated but ignored.
		return Message{Type: TypeReady}, nil

	case TypeChanged:
		var wire changedWire
		if err := decodePayload(env, &wire); err != nil {
			return Message{}, err
		}
		if wire.Content == nil {
			return Message{}, fmt.Errorf("decode %s: %w: content missing", env.Type, ErrMalformedPayload)
		}
		if sel := wire.Selection; sel != nil {
			if sel.Start < 0 || sel.End < sel.Start {
				return Message{}, fmt.Errorf("decode %s: %w: selection [%d,%d)", env.Type, ErrMalformedPayload, sel.Start, sel.End)
			}
		}
		return Message{
			Type:    TypeChanged,
			Changed: &ChangedPayload{Content: *wire.Content, Selection: wire.Selection},
		}, nil

	case TypeError:
		var wire errorWire
		if err := decodePayload(env, &wire); err != nil {
			return Message{}, err
		}
		if wire.Detail == nil {
			return Message{}, fmt.Errorf("decode %s: %w: detail missing", env.Type, ErrMalformedPayload)
		}
		return Message{
			Type:  TypeError,
			Error: &ErrorPayload{Detail: *wire.Detail},
		}, nil

	case TypeReplace:
		var wire replaceWire
		if err := decodePayload(env, &wire); err != nil {
			return Message{}, err
		}
		if wire.Content == nil {
			return Message{}, fmt.Errorf("decode %s: %w: content missing", env.Type, ErrMalformedPayload)
		}
		if wire.Caret != nil && *wire.Caret < 0 {
			return Message{}, fmt.Errorf("decode %s: %w: caret %d", env.Type, ErrMalformedPayload, *wire.Caret)
		}
		return Message{
			Type:    TypeReplace,
			Replace: &ReplacePayload{Content: *wire.Content, Caret: wire.Caret},
		}, nil

	default:
		return Message{}, fmt.Errorf("decode: %w: %q", ErrUnknownType, env.Type)
	}
}

// decodePayload unmarshals the envelope payload into dst, rejecting
// absent payloads.
func decodePayload(env envelope, dst interface{}) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("decode %s: %w: payload missing", env.Type, ErrMalformedPayload)
	}
	if err := sonic.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("decode %s: %w: %v", env.Type, ErrMalformedPayload, err)
	}
	return nil
}
