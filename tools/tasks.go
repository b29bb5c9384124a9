package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/taskman/errors"
	"github.com/vinayprograms/taskman/logging"
	"github.com/vinayprograms/taskman/search"
	"github.com/vinayprograms/taskman/store"
)

// priorityEnum is shared by every schema that accepts a priority.
var priorityEnum = []string{"low", "medium", "high"}

// syncIndex mirrors a store mutation into the search index. Index writes
// are best-effort: the store has already persisted, so a failed index
// write is logged and the tool still succeeds.
func syncIndex(ix *search.Index, log *logging.Logger, t *store.Task) {
	if ix == nil {
		return
	}
	if err := ix.Upsert(t); err != nil && log != nil {
		log.Warn("index_upsert_failed", map[string]interface{}{
			"task_id": t.ID,
			"error":   err.Error(),
		})
	}
}

// dropFromIndex removes a deleted task from the search index.
func dropFromIndex(ix *search.Index, log *logging.Logger, id int64) {
	if ix == nil {
		return
	}
	if err := ix.Remove(id); err != nil && log != nil {
		log.Warn("index_remove_failed", map[string]interface{}{
			"task_id": id,
			"error":   err.Error(),
		})
	}
}

// --- create_task ---

type createTaskTool struct {
	store *store.Store
	index *search.Index
	log   *logging.Logger
}

func (t *createTaskTool) Name() string { return "create_task" }

func (t *createTaskTool) Description() string {
	return "Create a new task with a title, optional description, and optional priority (low, medium, high; defaults to medium)."
}

func (t *createTaskTool) Annotations() Annotations {
	return Annotations{
		Title:           "Create Task",
		ReadOnlyHint:    false,
		DestructiveHint: false,
		IdempotentHint:  false,
		OpenWorldHint:   false,
	}
}

func (t *createTaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Short title for the task",
				"maxLength":   store.MaxTitleLen,
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Longer free-form details",
				"maxLength":   store.MaxDescriptionLen,
			},
			"priority": map[string]interface{}{
				"type":        "string",
				"description": "Task priority",
				"enum":        priorityEnum,
			},
		},
		"required":             []string{"title"},
		"additionalProperties": false,
	}
}

func (t *createTaskTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	title, err := args.String("title")
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	description := args.StringOr("description", "")
	priority, err := store.ParsePriority(args.StringOr("priority", ""))
	if err != nil {
		return nil, err
	}

	task, err := t.store.Create(title, description, priority)
	if err != nil {
		return nil, err
	}
	syncIndex(t.index, t.log, task)

	return fmt.Sprintf("%s Created task %d: %s (%s)",
		glyphCompleted, task.ID, task.Title, task.Priority), nil
}

// --- list_tasks ---

type listTasksTool struct {
	store *store.Store
}

func (t *listTasksTool) Name() string { return "list_tasks" }

func (t *listTasksTool) Description() string {
	return "List tasks, optionally filtered by status and priority. Output is sorted by priority (high first) and then by creation time."
}

func (t *listTasksTool) Annotations() Annotations {
	return Annotations{
		Title:           "List Tasks",
		ReadOnlyHint:    true,
		DestructiveHint: false,
		IdempotentHint:  true,
		OpenWorldHint:   false,
	}
}

func (t *listTasksTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"status": map[string]interface{}{
				"type":        "string",
				"description": "Filter by status",
				"enum":        []string{"pending", "completed", "all"},
			},
			"priority": map[string]interface{}{
				"type":        "string",
				"description": "Filter by priority",
				"enum":        priorityEnum,
			},
			"format": map[string]interface{}{
				"type":        "string",
				"description": "Output format",
				"enum":        []string{"markdown", "json"},
			},
		},
		"additionalProperties": false,
	}
}

func (t *listTasksTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	var filter store.Filter
	switch status := args.StringOr("status", "all"); status {
	case "all", "":
	case "pending":
		filter.Status = store.StatusPending
	case "completed":
		filter.Status = store.StatusCompleted
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidInput,
			"invalid status %q: must be one of pending, completed, all", status)
	}

	if raw := args.StringOr("priority", ""); raw != "" {
		priority := store.Priority(raw)
		if !priority.Valid() {
			return nil, errors.Newf(errors.ErrCodeInvalidInput,
				"invalid priority %q: must be one of low, medium, high", raw)
		}
		filter.Priority = priority
	}

	tasks := t.store.List(filter)

	if args.StringOr("format", "markdown") == "json" {
		return RenderJSON(tasks)
	}
	return RenderMarkdown(tasks), nil
}

// --- update_task ---

type updateTaskTool struct {
	store *store.Store
	index *search.Index
	log   *logging.Logger
}

func (t *updateTaskTool) Name() string { return "update_task" }

func (t *updateTaskTool) Description() string {
	return "Update the title, description, or priority of an existing task. Only the provided fields change."
}

func (t *updateTaskTool) Annotations() Annotations {
	return Annotations{
		Title:           "Update Task",
		ReadOnlyHint:    false,
		DestructiveHint: false,
		IdempotentHint:  true,
		OpenWorldHint:   false,
	}
}

func (t *updateTaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "integer",
				"description": "ID of the task to update",
			},
			"title": map[string]interface{}{
				"type":        "string",
				"description": "New title",
				"maxLength":   store.MaxTitleLen,
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "New description",
				"maxLength":   store.MaxDescriptionLen,
			},
			"priority": map[string]interface{}{
				"type":        "string",
				"description": "New priority",
				"enum":        priorityEnum,
			},
		},
		"required":             []string{"task_id"},
		"additionalProperties": false,
	}
}

func (t *updateTaskTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	id, err := args.Int64("task_id")
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	var title, description *string
	var priority *store.Priority
	var changes []string

	if args.Has("title") {
		v, err := args.String("title")
		if err != nil {
			return nil, errors.InvalidInput(err.Error())
		}
		title = &v
		changes = append(changes, fmt.Sprintf("title → %q", strings.TrimSpace(v)))
	}
	if args.Has("description") {
		v, err := args.String("description")
		if err != nil {
			return nil, errors.InvalidInput(err.Error())
		}
		description = &v
		changes = append(changes, "description updated")
	}
	if args.Has("priority") {
		raw, err := args.String("priority")
		if err != nil {
			return nil, errors.InvalidInput(err.Error())
		}
		p, err := store.ParsePriority(raw)
		if err != nil {
			return nil, err
		}
		priority = &p
		changes = append(changes, fmt.Sprintf("priority → %s", p))
	}

	task, err := t.store.Update(id, title, description, priority)
	if err != nil {
		return nil, err
	}

	if len(changes) == 0 {
		return fmt.Sprintf("Task %d unchanged: no fields provided", task.ID), nil
	}
	syncIndex(t.index, t.log, task)

	return fmt.Sprintf("%s Updated task %d: %s",
		glyphCompleted, task.ID, strings.Join(changes, ", ")), nil
}

// --- complete_task ---

type completeTaskTool struct {
	store *store.Store
	index *search.Index
	log   *logging.Logger
}

func (t *completeTaskTool) Name() string { return "complete_task" }

func (t *completeTaskTool) Description() string {
	return "Mark a task as completed. Completing an already-completed task is a no-op."
}

func (t *completeTaskTool) Annotations() Annotations {
	return Annotations{
		Title:           "Complete Task",
		ReadOnlyHint:    false,
		DestructiveHint: false,
		IdempotentHint:  true,
		OpenWorldHint:   false,
	}
}

func (t *completeTaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "integer",
				"description": "ID of the task to complete",
			},
		},
		"required":             []string{"task_id"},
		"additionalProperties": false,
	}
}

func (t *completeTaskTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	id, err := args.Int64("task_id")
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	// Look first so the already-done case gets its own message.
	existing, err := t.store.Get(id)
	if err != nil {
		return nil, err
	}
	alreadyDone := existing.Status == store.StatusCompleted

	task, err := t.store.Complete(id)
	if err != nil {
		return nil, err
	}
	syncIndex(t.index, t.log, task)

	if alreadyDone {
		return fmt.Sprintf("Task %d is already completed: %s", task.ID, task.Title), nil
	}
	return fmt.Sprintf("%s Completed task %d: %s", glyphCompleted, task.ID, task.Title), nil
}

// --- delete_task ---

type deleteTaskTool struct {
	store *store.Store
	index *search.Index
	log   *logging.Logger
}

func (t *deleteTaskTool) Name() string { return "delete_task" }

func (t *deleteTaskTool) Description() string {
	return "Delete a task permanently. Task IDs are never reused."
}

func (t *deleteTaskTool) Annotations() Annotations {
	return Annotations{
		Title:           "Delete Task",
		ReadOnlyHint:    false,
		DestructiveHint: true,
		IdempotentHint:  false,
		OpenWorldHint:   false,
	}
}

func (t *deleteTaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "integer",
				"description": "ID of the task to delete",
			},
		},
		"required":             []string{"task_id"},
		"additionalProperties": false,
	}
}

func (t *deleteTaskTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	id, err := args.Int64("task_id")
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	task, err := t.store.Delete(id)
	if err != nil {
		return nil, err
	}
	dropFromIndex(t.index, t.log, task.ID)

	return fmt.Sprintf("%s Deleted task %d: %s", glyphDeleted, task.ID, task.Title), nil
}

// --- search_tasks ---

type searchTasksTool struct {
	store *store.Store
	index *search.Index
}

func (t *searchTasksTool) Name() string { return "search_tasks" }

func (t *searchTasksTool) Description() string {
	return "Full-text search over task titles and descriptions. Returns the best matches first."
}

func (t *searchTasksTool) Annotations() Annotations {
	return Annotations{
		Title:           "Search Tasks",
		ReadOnlyHint:    true,
		DestructiveHint: false,
		IdempotentHint:  true,
		OpenWorldHint:   false,
	}
}

func (t *searchTasksTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search terms",
				"minLength":   1,
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of results (default 10)",
				"minimum":     1,
				"maximum":     50,
			},
		},
		"required":             []string{"query"},
		"additionalProperties": false,
	}
}

func (t *searchTasksTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	query, err := args.String("query")
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.InvalidInput("query must not be empty")
	}
	limit := args.IntOr("limit", 10)

	matches, err := t.index.Search(query, limit)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInternal, "search failed")
	}

	// Resolve hits against the store; a hit whose task vanished between the
	// index read and now is silently skipped.
	tasks := make([]*store.Task, 0, len(matches))
	for _, m := range matches {
		if task, err := t.store.Get(m.ID); err == nil {
			tasks = append(tasks, task)
		}
	}

	if len(tasks) == 0 {
		return fmt.Sprintf("No tasks matched %q.", query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d task(s) matching %q\n", len(tasks), query)
	for _, task := range tasks {
		b.WriteString("\n")
		b.WriteString(taskLine(task))
	}
	return b.String(), nil
}
