package serializer

import "github.com/kanal-io/kanal/rpc/common"

// IFrameSerializer is the interface for all Frame serializers
type IFrameSerializer interface {
	// Serialize serializes a Frame into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(frame common.Frame) ([]byte, error)
	// Deserialize deserializes a byte array into a Frame
	// It takes a byte array and a pointer to a Frame as parameters
	// It returns an error if any
	Deserialize(b []byte, frame *common.Frame) error
}
