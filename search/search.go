// Package search provides a full-text index over tasks, powering the
// search_tasks tool. The index is derived state: it is rebuilt from the
// store at startup and kept in sync on every mutation, so losing it never
// loses a task.
package search

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/vinayprograms/taskman/store"
)

// Index is a bleve-backed full-text index of task titles and descriptions.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// taskDocument is the indexed representation of a task.
type taskDocument struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// Match is a single search hit.
type Match struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}

// Open opens or creates an on-disk index at path.
func Open(path string) (*Index, error) {
	var index bleve.Index
	var err error

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
	} else {
		index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open search index: %w", err)
		}
	}
	return &Index{index: index}, nil
}

// OpenMemOnly creates an in-memory index. Used in tests and when no index
// directory is configured.
func OpenMemOnly() (*Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &Index{index: index}, nil
}

// buildIndexMapping creates the bleve index mapping: analyzed text for
// title and description, exact-match keywords for status and priority.
func buildIndexMapping() mapping.IndexMapping {
	taskMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	taskMapping.AddFieldMappingsAt("title", textFieldMapping)
	taskMapping.AddFieldMappingsAt("description", textFieldMapping)
	taskMapping.AddFieldMappingsAt("status", keywordFieldMapping)
	taskMapping.AddFieldMappingsAt("priority", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = taskMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// docID converts a task ID into a bleve document ID.
func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Upsert indexes a task, replacing any previous version.
func (ix *Index) Upsert(t *store.Task) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	doc := taskDocument{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status.String(),
		Priority:    t.Priority.String(),
	}
	if err := ix.index.Index(docID(t.ID), doc); err != nil {
		return fmt.Errorf("failed to index task %d: %w", t.ID, err)
	}
	return nil
}

// Remove deletes a task from the index. Removing an unindexed task is a
// no-op.
func (ix *Index) Remove(id int64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.index.Delete(docID(id)); err != nil {
		return fmt.Errorf("failed to remove task %d from index: %w", id, err)
	}
	return nil
}

// Rebuild replaces the index contents with the given tasks. Called at
// startup so the index always reflects the backing file, even if a
// previous process died between a flush and an index write.
func (ix *Index) Rebuild(tasks []*store.Task) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.index.NewBatch()

	// Drop documents for tasks that no longer exist.
	count, err := ix.index.DocCount()
	if err == nil && count > 0 {
		existing := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
		existing.Size = int(count)
		if res, err := ix.index.Search(existing); err == nil {
			live := make(map[string]bool, len(tasks))
			for _, t := range tasks {
				live[docID(t.ID)] = true
			}
			for _, hit := range res.Hits {
				if !live[hit.ID] {
					batch.Delete(hit.ID)
				}
			}
		}
	}

	for _, t := range tasks {
		doc := taskDocument{
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status.String(),
			Priority:    t.Priority.String(),
		}
		if err := batch.Index(docID(t.ID), doc); err != nil {
			return fmt.Errorf("failed to batch task %d: %w", t.ID, err)
		}
	}

	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}
	return nil
}

// Search runs a full-text query over titles and descriptions and returns
// up to limit matches, best first.
func (ix *Index) Search(query string, limit int) ([]Match, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		matches = append(matches, Match{ID: id, Score: hit.Score})
	}
	return matches, nil
}

// Close releases the index resources.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}
