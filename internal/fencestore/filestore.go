package fencestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
)

// fences.yaml layout:
//
//	fences:
//	  - name: Downtown
//	    instance_id: 1      # optional, 0 matches every instance
//	    fence_type: polygon # optional
//	    fence_data:
//	      - "[Downtown]"
//	      - "52.52,13.40"
type fileDoc struct {
	Fences []fileFence `yaml:"fences"`
}

type fileFence struct {
	Name       string   `yaml:"name"`
	InstanceID int      `yaml:"instance_id"`
	FenceType  string   `yaml:"fence_type"`
	FenceData  []string `yaml:"fence_data"`
	GeoJSON    string   `yaml:"geojson"`
}

// FileStore re-reads a YAML file on every call so edits show up without a restart.
type FileStore struct {
	path   string
	pc     *ParseCache
	logger *slog.Logger
}

func NewFileStore(path string, pc *ParseCache, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, pc: pc, logger: logger}
}

func (s *FileStore) AllFences(ctx context.Context, instanceID int) (*model.FenceSet, error) {
	return instrumented(ctx, s.logger, "file", func() (*model.FenceSet, error) {
		doc, err := s.read()
		if err != nil {
			return nil, err
		}
		var records []Record
		for _, f := range doc.Fences {
			if f.InstanceID != 0 && f.InstanceID != instanceID {
				continue
			}
			rec := Record{Name: f.Name, FenceType: f.FenceType}
			if f.GeoJSON != "" {
				rec.FenceType, rec.FenceData = TypeGeoJSON, f.GeoJSON
			} else {
				raw, err := json.Marshal(f.FenceData)
				if err != nil {
					return nil, fmt.Errorf("encode fence %q: %w", f.Name, err)
				}
				rec.FenceData = string(raw)
			}
			records = append(records, rec)
		}
		return buildSet(ctx, s.logger, s.pc, records), nil
	})
}

func (s *FileStore) read() (fileDoc, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return fileDoc{}, fmt.Errorf("%w: read %s: %v", ErrUnavailable, s.path, err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, s.path, err)
	}
	return doc, nil
}

func (s *FileStore) Ping(_ context.Context) error {
	_, err := s.read()
	return err
}

func (s *FileStore) Close() error { return nil }
