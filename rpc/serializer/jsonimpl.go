package serializer

import (
	"github.com/kanal-io/kanal/rpc/common"
	jsoniter "github.com/json-iterator/go"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IFrameSerializer {
	return &jsonSerializerImpl{json: jsoniter.ConfigFastest}
}

// jsonSerializerImpl implements the IFrameSerializer interface using json encoding
type jsonSerializerImpl struct {
	json jsoniter.API
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IFrameSerializer)
// --------------------------------------------------------------------------

func (j *jsonSerializerImpl) Serialize(frame common.Frame) ([]byte, error) {
	return j.json.Marshal(frame)
}

func (j *jsonSerializerImpl) Deserialize(b []byte, frame *common.Frame) error {
	return j.json.Unmarshal(b, frame)
}
