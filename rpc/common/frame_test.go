package common

import (
	"encoding/json"
	"testing"
)

func TestNewFrameMergesMapPayload(t *testing.T) {
	frame := NewFrame("get", map[string]any{"key": "alpha", "n": 1})

	if frame.Type() != "get" {
		t.Errorf("expected type get, got %s", frame.Type())
	}
	if frame["key"] != "alpha" {
		t.Errorf("payload field lost: %v", frame["key"])
	}
	if frame["n"] != 1 {
		t.Errorf("payload field lost: %v", frame["n"])
	}
}

func TestNewFrameNestsScalarPayload(t *testing.T) {
	frame := NewFrame("set", "hello")

	if frame[FieldData] != "hello" {
		t.Errorf("scalar payload not nested under data: %v", frame[FieldData])
	}
}

func TestNewFrameStripsReservedFields(t *testing.T) {
	frame := NewFrame("get", map[string]any{
		FieldType:          "spoofed",
		FieldCorrelationID: uint64(9999),
	})

	if frame.Type() != "get" {
		t.Errorf("payload overrode the frame type: %s", frame.Type())
	}
	if _, ok := frame.CorrelationID(); ok {
		t.Error("payload smuggled a correlation id into the frame")
	}
}

func TestCorrelationIDAcceptsNumericEncodings(t *testing.T) {
	// Deserializers hand back different numeric types depending on config
	for name, value := range map[string]any{
		"uint64":  uint64(42),
		"int64":   int64(42),
		"int":     42,
		"float64": float64(42),
		"number":  json.Number("42"),
	} {
		frame := Frame{FieldCorrelationID: value}
		id, ok := frame.CorrelationID()
		if !ok || id != 42 {
			t.Errorf("%s: expected id 42, got %d (ok=%v)", name, id, ok)
		}
	}

	frame := Frame{FieldCorrelationID: "not-a-number"}
	if _, ok := frame.CorrelationID(); ok {
		t.Error("string correlation id should not parse")
	}
}

func TestErrorFrame(t *testing.T) {
	frame := NewErrorFrame("boom")

	if frame.Err() != "boom" {
		t.Errorf("expected error boom, got %s", frame.Err())
	}
	if frame.Type() != "error" {
		t.Errorf("expected type error, got %s", frame.Type())
	}
}
