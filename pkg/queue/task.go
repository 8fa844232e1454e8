package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is one notification job. Data is JSON-encoded by the brokers, so
// values come back as strings, float64 and nested maps.
type Task struct {
	ID         string                 `json:"id"`
	Type       TaskType               `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	CreatedAt  time.Time              `json:"created_at"`
	Attempts   int                    `json:"attempts"`
	MaxRetries int                    `json:"max_retries"`
}

func NewTask(taskType TaskType, data map[string]interface{}) *Task {
	now := time.Now()
	return &Task{
		ID:        generateTaskID(),
		Type:      taskType,
		Data:      data,
		ExecuteAt: now,
		CreatedAt: now,
	}
}

// Validate rejects tasks no handler could run.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task id is required")
	}
	if !t.Type.Known() {
		return fmt.Errorf("unsupported task type %q", t.Type)
	}
	if t.Data == nil {
		t.Data = make(map[string]interface{})
	}
	return nil
}

func (t *Task) GetString(key string) string {
	s, _ := t.Data[key].(string)
	return s
}

// GetMap returns a nested object, e.g. the payload of a publish_event task.
func (t *Task) GetMap(key string) map[string]interface{} {
	m, _ := t.Data[key].(map[string]interface{})
	return m
}

func generateTaskID() string {
	return "task_" + uuid.NewString()
}
