package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vinayprograms/taskman/errors"
	"github.com/vinayprograms/taskman/logging"
)

// Input limits, matching the tool parameter schemas.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is assigned when a task is created without one.
const DefaultPriority = PriorityMedium

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// Valid returns true if the priority is one of the known values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank returns the sort rank of the priority. Lower rank sorts first,
// so listings come out high, medium, low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// ParsePriority converts a string into a Priority.
// An empty string yields the default priority.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultPriority, nil
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	}
	return "", errors.Newf(errors.ErrCodeInvalidInput,
		"invalid priority %q: must be one of low, medium, high", s)
}

// Status represents the completion state of a task.
type Status string

const (
	// StatusPending indicates the task has not been completed.
	StatusPending Status = "pending"

	// StatusCompleted indicates the task is done.
	StatusCompleted Status = "completed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Task represents a unit of work tracked by the store.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// clone returns a copy of the task so callers never alias store-owned state.
func (t *Task) clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		done := *t.CompletedAt
		c.CompletedAt = &done
	}
	return &c
}

// Filter selects tasks during listing. Zero values mean "no filtering".
type Filter struct {
	// Status filters by exact status; empty matches all statuses.
	Status Status

	// Priority filters by exact priority; empty matches all priorities.
	Priority Priority
}

func (f Filter) matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}

// Store owns the canonical set of tasks and the next-ID counter, backed by
// a single JSON file. All operations are safe for concurrent use; every
// mutation flushes to disk before returning and rolls back in-memory state
// if the flush fails.
type Store struct {
	mu     sync.Mutex
	path   string
	tasks  map[int64]*Task
	nextID int64
	now    func() time.Time
	log    *logging.Logger
}

// Open loads the store from the backing file at path. An absent, corrupt,
// or unparseable file degrades to an empty store rather than failing
// startup; the first flush recreates it.
func Open(path string, log *logging.Logger) *Store {
	s := &Store{
		path:   path,
		tasks:  make(map[int64]*Task),
		nextID: 1,
		now:    time.Now,
		log:    log,
	}
	s.load()
	return s
}

// SetClock overrides the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Create validates the input, assigns the next ID, and persists the new
// task. No ID is consumed when validation fails.
func (s *Store) Create(title, description string, priority Priority) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.InvalidInput("title must not be empty")
	}
	if len(title) > MaxTitleLen {
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"title exceeds %d characters", MaxTitleLen)
	}
	if len(description) > MaxDescriptionLen {
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"description exceeds %d characters", MaxDescriptionLen)
	}
	if priority == "" {
		priority = DefaultPriority
	}
	if !priority.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"invalid priority %q: must be one of low, medium, high", priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	task := &Task{
		ID:          id,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      StatusPending,
		CreatedAt:   s.now().UTC(),
	}
	s.tasks[id] = task
	s.nextID++

	if err := s.flushLocked(); err != nil {
		delete(s.tasks, id)
		s.nextID = id
		return nil, err
	}
	return task.clone(), nil
}

// Get returns the task with the given ID.
func (s *Store) Get(id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	return task.clone(), nil
}

// List returns tasks matching the filter, ordered by priority (high first)
// and then by creation time (oldest first). It never writes to disk and an
// empty result is a valid, non-error outcome.
func (s *Store) List(f Filter) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if f.matches(task) {
			result = append(result, task.clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Priority.Rank() != result[j].Priority.Rank() {
			return result[i].Priority.Rank() < result[j].Priority.Rank()
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Update mutates the provided fields of an existing task. Nil pointers
// leave the field unchanged; an update with no fields is a successful
// no-op. ID, status, and timestamps are never touched.
func (s *Store) Update(id int64, title, description *string, priority *Priority) (*Task, error) {
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return nil, errors.InvalidInput("title must not be empty")
		}
		if len(t) > MaxTitleLen {
			return nil, errors.Newf(errors.ErrCodeInvalidInput,
				"title exceeds %d characters", MaxTitleLen)
		}
		title = &t
	}
	if description != nil && len(*description) > MaxDescriptionLen {
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"description exceeds %d characters", MaxDescriptionLen)
	}
	if priority != nil && !priority.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"invalid priority %q: must be one of low, medium, high", *priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	if title == nil && description == nil && priority == nil {
		return task.clone(), nil
	}

	prev := task.clone()
	if title != nil {
		task.Title = *title
	}
	if description != nil {
		task.Description = *description
	}
	if priority != nil {
		task.Priority = *priority
	}

	if err := s.flushLocked(); err != nil {
		s.tasks[id] = prev
		return nil, err
	}
	return task.clone(), nil
}

// Complete marks a task as completed and stamps completed_at. Completing
// an already-completed task is an idempotent success: the task is returned
// unchanged and the timestamp is not rewritten.
func (s *Store) Complete(id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	if task.Status == StatusCompleted {
		return task.clone(), nil
	}

	done := s.now().UTC()
	task.Status = StatusCompleted
	task.CompletedAt = &done

	if err := s.flushLocked(); err != nil {
		task.Status = StatusPending
		task.CompletedAt = nil
		return nil, err
	}
	return task.clone(), nil
}

// Delete removes a task permanently. The ID is never reassigned.
func (s *Store) Delete(id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	delete(s.tasks, id)

	if err := s.flushLocked(); err != nil {
		s.tasks[id] = task
		return nil, err
	}
	return task.clone(), nil
}

// Len returns the number of tasks in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// NextID returns the current value of the ID counter.
func (s *Store) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

// Snapshot returns copies of all tasks ordered by ID. Used to rebuild the
// search index at startup.
func (s *Store) Snapshot() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		result = append(result, task.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
