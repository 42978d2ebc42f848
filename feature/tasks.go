package feature

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Task is one in-flight jsk invocation.
type Task struct {
	Index     int
	Command   string
	ChannelID string
	AuthorID  string
	StartedAt time.Time

	cancel context.CancelFunc
}

// Cancel aborts the task's context.
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
}

// TaskList tracks running invocations. Indices increase monotonically and are
// never reused within a process.
type TaskList struct {
	mu    sync.Mutex
	next  int
	tasks []*Task
}

func NewTaskList() *TaskList {
	return &TaskList{next: 1}
}

// Add registers a task and returns it.
func (l *TaskList) Add(command string, msg Message, cancel context.CancelFunc) *Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := &Task{
		Index:     l.next,
		Command:   command,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.AuthorID,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	l.next++
	l.tasks = append(l.tasks, t)
	return t
}

// Remove drops the task with the given index.
func (l *TaskList) Remove(index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, t := range l.tasks {
		if t.Index == index {
			l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
			return
		}
	}
}

// Snapshot copies the current task slice, oldest first.
func (l *TaskList) Snapshot() []*Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Len reports the number of running tasks.
func (l *TaskList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Lookup finds a task by index. A negative index counts from the newest, so
// -1 is the most recently started task.
func (l *TaskList) Lookup(index int) (*Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 {
		i := len(l.tasks) + index
		if i < 0 || i >= len(l.tasks) {
			return nil, false
		}
		return l.tasks[i], true
	}
	for _, t := range l.tasks {
		if t.Index == index {
			return t, true
		}
	}
	return nil, false
}

// CancelAll aborts every running task and reports how many were cancelled.
func (l *TaskList) CancelAll() int {
	l.mu.Lock()
	tasks := make([]*Task, len(l.tasks))
	copy(tasks, l.tasks)
	l.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
	return len(tasks)
}

func describeTask(t *Task) string {
	return fmt.Sprintf("%d: `%s` (%s ago, channel %s)",
		t.Index, t.Command, time.Since(t.StartedAt).Round(time.Second), t.ChannelID)
}
