// Package serializer handles the conversion between Frame objects and their
// wire representation. The serializer is injected into both the client runtime
// and the server, so the encoding can be swapped without touching either.
//
// Key Components:
//
//   - IFrameSerializer: The serializer contract (Serialize/Deserialize).
//
//   - NewJSONSerializer: JSON implementation backed by jsoniter's fastest
//     configuration. This is the default encoding of the substrate.
package serializer
