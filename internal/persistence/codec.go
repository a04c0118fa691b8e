package persistence

import (
	"bytes"
	"encoding/gob"

	"github.com/petrijr/disparo/pkg/api"
)

// EncodeValue serializes arbitrary Go values using encoding/gob.
// Callers must ensure that values are gob-encodable and that concrete
// types carried inside interfaces have been registered with
// gob.Register (pkg/api registers the common payload shapes).
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	// Encode as interface{} so values decode back into interface{}.
	var iv = v
	if err := enc.Encode(&iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue deserializes interface-encoded gob data produced by
// EncodeValue. Empty input yields nil.
func DecodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var iv any
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// EncodeSteps serializes a run's step-result slice.
func EncodeSteps(steps []api.StepResult) ([]byte, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(steps); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSteps deserializes a step-result slice. Empty input yields nil.
func DecodeSteps(data []byte) ([]api.StepResult, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var steps []api.StepResult
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&steps); err != nil {
		return nil, err
	}
	return steps, nil
}
