package broker

import (
	"encoding/json"
	"errors"
	"fmt"

	"doc-converter/internal/domain"
)

var ErrEmptySourceKey = errors.New("task has no source key")

// EncodeTask returns the partition key and JSON payload for a task. Keying by
// source key keeps repeated requests for one object on one partition.
func EncodeTask(task domain.ConversionTask) ([]byte, []byte, error) {
	value, err := json.Marshal(task)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return []byte(task.SourceKey), value, nil
}

func DecodeTask(value []byte) (domain.ConversionTask, error) {
	var task domain.ConversionTask
	if err := json.Unmarshal(value, &task); err != nil {
		return task, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.SourceKey == "" {
		return task, ErrEmptySourceKey
	}
	return task, nil
}

func EncodeEvent(ev domain.ConvertedEvent) ([]byte, []byte, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return []byte(ev.DestinationKey), value, nil
}
