package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/disparo/pkg/api"
)

// RedisRunStore is a RunStore backed by Redis. It uses a simple key
// structure:
//
//	<prefix>run:<id>    => gob-encoded redisRunPayload
//	<prefix>idx:order   => LIST of run IDs in insertion order
//
// Filtering happens on the decoded payloads; the insertion-order list
// is the only index, which keeps Save/Update cheap and preserves the
// ListRuns ordering contract.
type RedisRunStore struct {
	client *redis.Client
	prefix string
}

var _ RunStore = (*RedisRunStore)(nil)

type redisRunPayload struct {
	ID          string
	Function    string
	EventName   string
	EventData   []byte
	Status      string
	CurrentStep int
	Output      []byte
	Steps       []byte
	Error       string
	CreatedAt   int64
}

// NewRedisRunStore creates a RedisRunStore. prefix is optional but
// recommended (e.g. "disparo:").
func NewRedisRunStore(client *redis.Client, prefix string) *RedisRunStore {
	if prefix == "" {
		prefix = "disparo:"
	}
	return &RedisRunStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisRunStore) keyRun(id string) string {
	return s.prefix + "run:" + id
}

func (s *RedisRunStore) keyOrder() string {
	return s.prefix + "idx:order"
}

func encodeRedisPayload(run *api.FunctionRun) ([]byte, error) {
	eventData, output, steps, errStr, err := encodeRunColumns(run)
	if err != nil {
		return nil, err
	}

	payload := redisRunPayload{
		ID:          run.ID,
		Function:    run.Function,
		EventName:   run.Event.Name,
		EventData:   eventData,
		Status:      string(run.Status),
		CurrentStep: run.CurrentStep,
		Output:      output,
		Steps:       steps,
		Error:       errStr,
		CreatedAt:   run.CreatedAt.UnixNano(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisPayload(data []byte) (*api.FunctionRun, error) {
	if len(data) == 0 {
		return nil, ErrRunNotFound
	}
	var payload redisRunPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}

	run := &api.FunctionRun{
		ID:          payload.ID,
		Function:    payload.Function,
		Event:       api.Event{Name: payload.EventName},
		Status:      api.Status(payload.Status),
		CurrentStep: payload.CurrentStep,
		CreatedAt:   time.Unix(0, payload.CreatedAt),
	}

	dataVal, err := DecodeValue(payload.EventData)
	if err != nil {
		return nil, err
	}
	if m, ok := dataVal.(map[string]any); ok {
		run.Event.Data = m
	}

	outVal, err := DecodeValue(payload.Output)
	if err != nil {
		return nil, err
	}
	run.Output = outVal

	stepVals, err := DecodeSteps(payload.Steps)
	if err != nil {
		return nil, err
	}
	run.Steps = stepVals

	if payload.Error != "" {
		run.Err = errors.New(payload.Error)
	}

	return run, nil
}

func (s *RedisRunStore) SaveRun(run *api.FunctionRun) error {
	ctx := context.Background()

	data, err := encodeRedisPayload(run)
	if err != nil {
		return err
	}

	// New runs go at the end of the order list; SETNX-style existence
	// check keeps re-saves from duplicating the index entry.
	existed, err := s.client.Exists(ctx, s.keyRun(run.ID)).Result()
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.keyRun(run.ID), data, 0).Err(); err != nil {
		return err
	}

	if existed == 0 {
		if err := s.client.RPush(ctx, s.keyOrder(), run.ID).Err(); err != nil {
			return err
		}
	}

	return nil
}

func (s *RedisRunStore) UpdateRun(run *api.FunctionRun) error {
	ctx := context.Background()

	existed, err := s.client.Exists(ctx, s.keyRun(run.ID)).Result()
	if err != nil {
		return err
	}
	if existed == 0 {
		return ErrRunNotFound
	}

	data, err := encodeRedisPayload(run)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.keyRun(run.ID), data, 0).Err()
}

func (s *RedisRunStore) GetRun(id string) (*api.FunctionRun, error) {
	ctx := context.Background()

	data, err := s.client.Get(ctx, s.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return decodeRedisPayload(data)
}

func (s *RedisRunStore) ListRuns(filter RunFilter) ([]*api.FunctionRun, error) {
	ctx := context.Background()

	ids, err := s.client.LRange(ctx, s.keyOrder(), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.FunctionRun{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.FunctionRun{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyRun(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var runs []*api.FunctionRun
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		run, err := decodeRedisPayload(data)
		if err != nil {
			return nil, err
		}
		if filter.Function != "" && run.Function != filter.Function {
			continue
		}
		if filter.Event != "" && run.Event.Name != filter.Event {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}
