package taskqueue

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// EncodeTask serializes a task for the durable queue backends. Event
// data maps round-trip through gob as long as their values are
// gob-encodable.
func EncodeTask(t Task) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&t); err != nil {
		return nil, fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	return buf.Bytes(), nil
}

// DecodeTask reverses EncodeTask.
func DecodeTask(data []byte) (*Task, error) {
	t := new(Task)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return t, nil
}
