package service

import "encoding/json"

// jsonCodec marshals RPC messages as plain JSON. Registering it under the
// name "json" replaces connect's default protojson codec so the wire types
// below can be ordinary structs.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}
