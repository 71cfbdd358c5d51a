package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-jobpost-automation/internal/models"
)

// JSONFile appends listings to a daily job-search-YYYY-MM-DD.json array.
type JSONFile struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func NewJSONFile(dir string) *JSONFile {
	return &JSONFile{dir: dir, now: time.Now}
}

func (j *JSONFile) Name() string {
	return "jsonfile"
}

func (j *JSONFile) Path() string {
	return filepath.Join(j.dir, fmt.Sprintf("job-search-%s.json", j.now().Format("2006-01-02")))
}

func (j *JSONFile) Publish(_ context.Context, l models.JobListing) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", j.dir, err)
	}
	path := j.Path()

	var listings []models.JobListing
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &listings); err != nil {
			return false, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	listings = append(listings, l)
	data, err := json.MarshalIndent(listings, "", " ")
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
