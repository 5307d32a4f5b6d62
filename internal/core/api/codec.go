package api

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// decodeRequest unmarshals a Struct request into dst via its JSON form.
func decodeRequest(in *structpb.Struct, dst interface{}) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return invalidf("encode request: %v", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return invalidf("%v", err)
	}
	return nil
}

// encodeResponse converts a response document to a Struct.
func encodeResponse(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

// formatTimestamp renders t in the canonical protobuf JSON form.
func formatTimestamp(t time.Time) (string, error) {
	data, err := protojson.Marshal(timestamppb.New(t))
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	return s, nil
}
