package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/vinayprograms/taskman/errors"
)

// fileState is the on-disk representation of the store: the full task set
// plus the ID counter, in one JSON document. The layout must round-trip
// losslessly; tasks are kept sorted by ID so the file stays diffable.
type fileState struct {
	Tasks  []*Task `json:"tasks"`
	NextID int64   `json:"next_id"`
}

// load reads the backing file into the store. Any failure (missing file,
// unreadable file, malformed JSON) degrades to an empty store; startup
// must never fail on bad state.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if s.log != nil {
			if os.IsNotExist(err) {
				s.log.StoreLoad(s.path, 0, s.nextID, true)
			} else {
				s.log.Warn("store_load_failed", map[string]interface{}{
					"path":  s.path,
					"error": err.Error(),
				})
			}
		}
		return
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		if s.log != nil {
			s.log.Warn("store_load_corrupt", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return
	}

	var maxID int64
	for _, task := range state.Tasks {
		if task == nil || task.ID == 0 {
			continue
		}
		s.tasks[task.ID] = task
		if task.ID > maxID {
			maxID = task.ID
		}
	}

	// Repair the counter if the file disagrees with its own tasks; the
	// counter must stay strictly greater than every existing ID.
	s.nextID = state.NextID
	if s.nextID <= maxID {
		s.nextID = maxID + 1
	}
	if s.nextID < 1 {
		s.nextID = 1
	}

	if s.log != nil {
		s.log.StoreLoad(s.path, len(s.tasks), s.nextID, false)
	}
}

// flushLocked serializes the full store state to the backing file.
// The caller must hold s.mu. The write goes to a temp file in the same
// directory followed by a rename, so a crash mid-write never truncates
// the previous state.
func (s *Store) flushLocked() error {
	state := fileState{
		Tasks:  make([]*Task, 0, len(s.tasks)),
		NextID: s.nextID,
	}
	for _, task := range s.tasks {
		state.Tasks = append(state.Tasks, task)
	}
	sort.Slice(state.Tasks, func(i, j int) bool { return state.Tasks[i].ID < state.Tasks[j].ID })

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInternal, "encoding store state")
	}

	if err := s.writeAtomic(data); err != nil {
		if s.log != nil {
			s.log.StoreFlush(s.path, len(s.tasks), err)
		}
		return errors.WrapWithCode(err, errors.ErrCodePersistence,
			"failed to persist tasks", errors.WithMetadata("path", s.path))
	}

	if s.log != nil {
		s.log.StoreFlush(s.path, len(s.tasks), nil)
	}
	return nil
}

// writeAtomic writes data to the backing path via a temp file and rename.
func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
