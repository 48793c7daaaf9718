package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"canvas-editor/core"

	"github.com/sirupsen/logrus"
)

const designExt = ".json"

// fsStore keeps one JSON file per design under basePath/designs.
type fsStore struct {
	basePath string
}

// NewStore creates the storage directory when it does not exist yet.
func NewStore(basePath string) (*fsStore, error) {
	s := &fsStore{basePath: basePath}
	if err := os.MkdirAll(s.designPath(), 0755); err != nil {
		return nil, fmt.Errorf("create design directory: %w", err)
	}
	return s, nil
}

func (s *fsStore) designPath() string {
	return filepath.Join(s.basePath, "designs")
}

// filePath maps an id to its file, refusing ids that would escape the
// design directory.
func (s *fsStore) filePath(id string) (string, error) {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid design id %q", id)
	}
	dir, err := filepath.Abs(s.designPath())
	if err != nil {
		return "", err
	}
	file, err := filepath.Abs(filepath.Join(dir, id+designExt))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(file, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: access denied")
	}
	return file, nil
}

func (s *fsStore) List(ctx context.Context) ([]*core.Design, error) {
	log := logrus.WithField("path", s.designPath())

	files, err := os.ReadDir(s.designPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.Design{}, nil
		}
		log.WithError(err).Error("Failed to read design directory")
		return nil, err
	}

	designs := make([]*core.Design, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != designExt {
			continue
		}
		d, err := s.read(filepath.Join(s.designPath(), file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read design file %s, skipping", file.Name())
			continue
		}
		d.Data = nil
		designs = append(designs, d)
	}
	sort.Slice(designs, func(i, j int) bool {
		return designs[i].UpdatedAt.After(designs[j].UpdatedAt)
	})

	log.Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *fsStore) read(path string) (*core.Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d core.Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode design file: %w", err)
	}
	return &d, nil
}

func (s *fsStore) Get(ctx context.Context, id string) (*core.Design, error) {
	log := logrus.WithField("design_id", id)

	path, err := s.filePath(id)
	if err != nil {
		log.WithError(err).Warn("Rejected design id")
		return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}
	d, err := s.read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("Design file not found")
			return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to read design file")
		return nil, err
	}

	log.Info("Design retrieved successfully")
	return d, nil
}

func (s *fsStore) Save(ctx context.Context, design *core.Design) error {
	path, err := s.filePath(design.ID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"design_id": design.ID, "path": path})

	now := time.Now()
	design.CreatedAt = now
	if existing, err := s.read(path); err == nil {
		design.CreatedAt = existing.CreatedAt
	}
	design.UpdatedAt = now

	data, err := json.Marshal(design)
	if err != nil {
		log.WithError(err).Error("Failed to marshal design")
		return err
	}

	// write then rename so readers never see a partial file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write design file")
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		log.WithError(err).Error("Failed to move design file into place")
		return err
	}

	log.Info("Design saved successfully")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, id string) error {
	log := logrus.WithField("design_id", id)

	path, err := s.filePath(id)
	if err != nil {
		return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Design file not found for deletion")
			return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to delete design file")
		return err
	}

	log.Info("Design deleted successfully")
	return nil
}
