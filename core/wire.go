package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Exchange is the wire record used as request and response body by the
// network transports and the HTTP surface.
type Exchange struct {
	Knowledgebase string       `json:"knowledgebase,omitempty"`
	ChatHistory   *ChatHistory `json:"chat_history"`
}

// DecodeExchange reads one request record. Undecodable input or a missing
// knowledgebase or chat_history field fails with ErrBadRequest.
func DecodeExchange(r io.Reader) (*Exchange, error) {
	return decodeExchange(r, true)
}

// DecodeContinuation reads a response record, which only needs chat_history.
func DecodeContinuation(r io.Reader) (*ChatHistory, error) {
	x, err := decodeExchange(r, false)
	if err != nil {
		return nil, err
	}
	return x.ChatHistory, nil
}

func decodeExchange(r io.Reader, needKnowledgebase bool) (*Exchange, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrBadRequest, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	x := &Exchange{}
	if needKnowledgebase {
		raw, ok := fields["knowledgebase"]
		if !ok || isNull(raw) {
			return nil, fmt.Errorf("%w: missing knowledgebase", ErrBadRequest)
		}
		if err := json.Unmarshal(raw, &x.Knowledgebase); err != nil {
			return nil, fmt.Errorf("%w: knowledgebase: %v", ErrBadRequest, err)
		}
	}
	raw, ok := fields["chat_history"]
	if !ok || isNull(raw) {
		return nil, fmt.Errorf("%w: missing chat_history", ErrBadRequest)
	}
	x.ChatHistory = NewChatHistory()
	if err := x.ChatHistory.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: chat_history: %v", ErrBadRequest, err)
	}
	return x, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// MarshalEvent encodes an event as a self-describing record tagged with event_type.
func MarshalEvent(e Event) ([]byte, error) {
	switch v := e.(type) {
	case MessageEvent:
		return json.Marshal(struct {
			EventType EventType `json:"event_type"`
			MessageEvent
		}{EventTypeMessage, v})
	case SummaryEvent:
		return json.Marshal(struct {
			EventType EventType `json:"event_type"`
			SummaryEvent
		}{EventTypeSummary, v})
	case CallEvent:
		return json.Marshal(struct {
			EventType EventType `json:"event_type"`
			CallEvent
		}{EventTypeCall, v})
	case ReturnEvent:
		return json.Marshal(struct {
			EventType EventType `json:"event_type"`
			ReturnEvent
		}{EventTypeReturn, v})
	default:
		return nil, fmt.Errorf("%w: unsupported event %T", ErrInvalidEvent, e)
	}
}

// eventRecord is the union of all variant fields. Pointer fields distinguish
// required fields that are absent from zero values.
type eventRecord struct {
	EventType      EventType   `json:"event_type"`
	Originator     *string     `json:"originator"`
	Role           Role        `json:"role"`
	MessageText    *string     `json:"message_text"`
	SummaryType    SummaryKind `json:"summary_type"`
	SummaryText    *string     `json:"summary_text"`
	Hidden         bool        `json:"hidden"`
	Caller         *string     `json:"caller"`
	Called         *string     `json:"called"`
	TimeStamp      string      `json:"time_stamp"`
	TimeOutSeconds int         `json:"time_out_seconds"`
	Error          string      `json:"error"`
}

// UnmarshalEvent decodes one event record. Defaults follow the record format:
// originator "user", role user for messages and assistant for summaries,
// caller "user" for calls.
func UnmarshalEvent(data []byte) (Event, error) {
	var rec eventRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch rec.EventType {
	case EventTypeMessage:
		if rec.MessageText == nil {
			return nil, fmt.Errorf("%w: message requires message_text", ErrInvalidEvent)
		}
		role, err := parseRole(rec.Role, RoleUser)
		if err != nil {
			return nil, err
		}
		return MessageEvent{
			Originator:  stringOr(rec.Originator, UserOriginator),
			Role:        role,
			MessageText: *rec.MessageText,
			Hidden:      rec.Hidden,
		}, nil
	case EventTypeSummary:
		if rec.SummaryText == nil {
			return nil, fmt.Errorf("%w: summary requires summary_text", ErrInvalidEvent)
		}
		role, err := parseRole(rec.Role, RoleAssistant)
		if err != nil {
			return nil, err
		}
		kind := rec.SummaryType
		if kind == "" {
			kind = SummaryStandaloneQuestion
		}
		if kind != SummaryStandaloneQuestion {
			return nil, fmt.Errorf("%w: unknown summary_type %q", ErrInvalidEvent, kind)
		}
		return SummaryEvent{
			Originator:  stringOr(rec.Originator, UserOriginator),
			Role:        role,
			SummaryType: kind,
			SummaryText: *rec.SummaryText,
			Hidden:      rec.Hidden,
		}, nil
	case EventTypeCall:
		if rec.Called == nil {
			return nil, fmt.Errorf("%w: call requires called", ErrInvalidEvent)
		}
		ts, err := parseTimeStamp(rec.TimeStamp)
		if err != nil {
			return nil, err
		}
		return CallEvent{
			Caller:         stringOr(rec.Caller, UserOriginator),
			Called:         *rec.Called,
			TimeStamp:      ts,
			TimeOutSeconds: rec.TimeOutSeconds,
		}, nil
	case EventTypeReturn:
		if rec.Called == nil {
			return nil, fmt.Errorf("%w: return requires called", ErrInvalidEvent)
		}
		ts, err := parseTimeStamp(rec.TimeStamp)
		if err != nil {
			return nil, err
		}
		return ReturnEvent{
			Caller:    stringOr(rec.Caller, ""),
			Called:    *rec.Called,
			TimeStamp: ts,
			Error:     rec.Error,
		}, nil
	case "":
		return nil, fmt.Errorf("%w: event_type required", ErrInvalidEvent)
	default:
		return nil, fmt.Errorf("%w: unknown event_type %q", ErrInvalidEvent, rec.EventType)
	}
}

func parseRole(r, def Role) (Role, error) {
	switch r {
	case "":
		return def, nil
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidEvent, r)
	}
}

// parseTimeStamp accepts RFC 3339 with any offset and normalizes to UTC.
// A missing stamp decodes as the zero time.
func parseTimeStamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// timestamps without a zone are taken as UTC
		naive, naiveErr := time.Parse(naiveTimeLayout, s)
		if naiveErr != nil {
			return time.Time{}, fmt.Errorf("%w: time_stamp: %v", ErrInvalidEvent, err)
		}
		t = naive
	}
	return t.UTC(), nil
}

const naiveTimeLayout = "2006-01-02T15:04:05.999999999"

func stringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
