package sessions

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/delver-ai/delver/internal/storage/dirstore"
)

const turnsFile = "turns.jsonl"

// FileStore persists runs as directories with meta.json + turns.jsonl.
type FileStore struct {
	ds *dirstore.DirStore
}

// NewFileStore creates a FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{ds: dirstore.NewDirStore(baseDir, "run")}
}

func generateRunID() string {
	u := uuid.New().String()
	return "run_" + strings.ReplaceAll(u[:8], "-", "")
}

// Create initialises a new run directory with meta.json.
func (fs *FileStore) Create(query, mode, model string) (*Run, error) {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	now := time.Now()
	r := &Run{
		ID:        generateRunID(),
		Query:     query,
		Mode:      mode,
		Model:     model,
		Status:    RunActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := fs.ds.EnsureDir(r.ID); err != nil {
		return nil, err
	}
	if err := fs.ds.WriteMeta(r.ID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Get reads run metadata by ID.
func (fs *FileStore) Get(id string) (*Run, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	return fs.readMeta(id)
}

// List returns all runs sorted by UpdatedAt descending.
func (fs *FileStore) List() ([]*Run, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	ids, err := fs.ds.ListDirs()
	if err != nil {
		return nil, err
	}

	var runs []*Run
	for _, id := range ids {
		r, err := fs.readMeta(id)
		if err != nil {
			continue // skip corrupted runs
		}
		runs = append(runs, r)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].UpdatedAt.After(runs[j].UpdatedAt)
	})

	return runs, nil
}

// UpdateMeta atomically rewrites a run's meta.json.
func (fs *FileStore) UpdateMeta(r *Run) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	r.UpdatedAt = time.Now()
	return fs.ds.WriteMeta(r.ID, r)
}

// Complete marks a run as completed and records its outcome.
func (fs *FileStore) Complete(id, answer string, iterations, violations int, duration time.Duration) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	r, err := fs.readMeta(id)
	if err != nil {
		return err
	}

	r.Status = RunCompleted
	r.Answer = answer
	r.Iterations = iterations
	r.Violations = violations
	r.Duration = duration
	r.UpdatedAt = time.Now()
	return fs.ds.WriteMeta(id, r)
}

// Fail marks a run as failed with an error message.
func (fs *FileStore) Fail(id, errMsg string) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	r, err := fs.readMeta(id)
	if err != nil {
		return err
	}

	r.Status = RunFailed
	r.Error = errMsg
	r.UpdatedAt = time.Now()
	return fs.ds.WriteMeta(id, r)
}

// AppendTurn appends a turn to the run's JSONL transcript and updates meta.
func (fs *FileStore) AppendTurn(runID string, turn Turn) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	if turn.Ts.IsZero() {
		turn.Ts = time.Now()
	}
	if err := fs.ds.AppendJSONL(runID, turnsFile, turn); err != nil {
		return err
	}

	r, err := fs.readMeta(runID)
	if err != nil {
		return err
	}
	r.TurnCount++
	r.UpdatedAt = time.Now()
	return fs.ds.WriteMeta(runID, r)
}

// LoadTurns reads the full transcript of a run.
func (fs *FileStore) LoadTurns(runID string) ([]Turn, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	return dirstore.LoadJSONL[Turn](fs.ds, runID, turnsFile)
}

func (fs *FileStore) readMeta(id string) (*Run, error) {
	var r Run
	if err := fs.ds.ReadMeta(id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

var _ Store = (*FileStore)(nil)
