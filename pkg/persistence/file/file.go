// Package file provides a file-system persistence implementation. Each
// entity is one JSON document under the root directory; good for local
// development and tests, and the reference behavior for other backends.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tasklane/automation/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root        string
	workflows   *WorkflowRepository
	executions  *ExecutionRepository
	rules       *RuleRepository
	transitions *TransitionRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. A "file://" prefix is stripped so database-url style
// configuration works unchanged.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	store := &store{root: cleanRoot}

	return &Persistence{
		root:        cleanRoot,
		workflows:   &WorkflowRepository{store: store},
		executions:  &ExecutionRepository{store: store},
		rules:       &RuleRepository{store: store},
		transitions: &TransitionRepository{store: store},
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository { return p.workflows }

func (p *Persistence) Executions() persistence.ExecutionRepository { return p.executions }

func (p *Persistence) Rules() persistence.RuleRepository { return p.rules }

func (p *Persistence) Transitions() persistence.TransitionRepository { return p.transitions }

// HealthCheck verifies the root directory is reachable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return fmt.Errorf("file persistence root %s not writable: %w", p.root, err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// store serializes JSON document access. File writes are whole-document
// replacements guarded by a single lock; this backend favors simplicity
// over write throughput.
type store struct {
	mu   sync.RWMutex
	root string
}

func (s *store) write(collection, id string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, id, err)
	}

	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}

	return nil
}

// read loads one document into v; it returns os.ErrNotExist when the
// document is absent so repositories can map it to their sentinel.
func (s *store) read(collection, id string, v any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.root, collection, id+".json"))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s/%s: %w", collection, id, err)
	}

	return nil
}

func (s *store) remove(collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.root, collection, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}

	return err
}

// ids lists the document IDs of a collection. A missing collection
// directory is an empty collection.
func (s *store) ids(collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := os.DirFS(filepath.Join(s.root, collection))

	files, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, strings.TrimSuffix(f, ".json"))
	}

	return ids, nil
}
