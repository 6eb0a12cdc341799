package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Frame structure
// --------------------------------------------------------------------------

// Reserved frame field names. The invoker always assigns the type and
// correlation id fields itself; payload entries under these keys are discarded
// so a caller cannot spoof the routing metadata of its own request.
const (
	FieldType          = "type"
	FieldCorrelationID = "correlationId"
	FieldData          = "data"
	FieldError         = "err"
)

// Frame is a single wire-level message used for both requests and responses.
// It carries a type, an optional correlation id linking a response to its
// request, and arbitrary payload fields.
type Frame map[string]any

// NewFrame builds a frame of the given type from a caller-supplied payload.
// A map payload is merged into the frame with reserved keys stripped first;
// any other non-nil payload is nested under the "data" field.
func NewFrame(msgType string, payload any) Frame {
	frame := Frame{}

	switch p := payload.(type) {
	case nil:
	case Frame:
		for k, v := range p {
			frame[k] = v
		}
	case map[string]any:
		for k, v := range p {
			frame[k] = v
		}
	default:
		frame[FieldData] = payload
	}

	// Reserved fields always win over payload entries.
	delete(frame, FieldCorrelationID)
	frame[FieldType] = msgType

	return frame
}

// NewErrorFrame builds an error response frame.
func NewErrorFrame(err string) Frame {
	return Frame{FieldType: "error", FieldError: err}
}

// Type returns the frame type, or "" if unset.
func (f Frame) Type() string {
	if t, ok := f[FieldType].(string); ok {
		return t
	}
	return ""
}

// CorrelationID returns the correlation id of the frame. The second return
// value reports whether the frame carries one. Deserialized frames store
// numbers as float64 or json.Number depending on the serializer, so all
// numeric encodings are accepted.
func (f Frame) CorrelationID() (uint64, bool) {
	v, ok := f[FieldCorrelationID]
	if !ok {
		return 0, false
	}

	switch id := v.(type) {
	case uint64:
		return id, true
	case int64:
		return uint64(id), true
	case int:
		return uint64(id), true
	case float64:
		return uint64(id), true
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// SetCorrelationID stamps the invoker-assigned correlation id onto the frame.
func (f Frame) SetCorrelationID(id uint64) {
	f[FieldCorrelationID] = id
}

// Err returns the error message carried by the frame, or "" if none.
func (f Frame) Err() string {
	if e, ok := f[FieldError].(string); ok {
		return e
	}
	return ""
}

// String renders the frame for logging.
func (f Frame) String() string {
	return fmt.Sprintf("frame(type=%s, fields=%d)", f.Type(), len(f))
}
