package service

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"docufind/internal/records/models"
	dErrors "docufind/pkg/domain-errors"
)

//go:embed seeds/document_types.yaml
var defaultDocumentTypes []byte

type seedFile struct {
	DocumentTypes []models.DocumentType `yaml:"document_types"`
}

// ParseDocumentTypes reads a document-type seed file. IDs must be positive and
// unique, names non-empty.
func ParseDocumentTypes(raw []byte) ([]models.DocumentType, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse document types: %w", err)
	}
	seen := make(map[int]bool, len(f.DocumentTypes))
	for i, dt := range f.DocumentTypes {
		dt.Name = strings.TrimSpace(dt.Name)
		if dt.ID <= 0 || dt.Name == "" {
			return nil, fmt.Errorf("document type #%d: id and name are required", i+1)
		}
		if seen[dt.ID] {
			return nil, fmt.Errorf("document type id %d is duplicated", dt.ID)
		}
		seen[dt.ID] = true
		f.DocumentTypes[i] = dt
	}
	return f.DocumentTypes, nil
}

// SeedDocumentTypes upserts raw, or the built-in list when raw is empty.
func (s *Service) SeedDocumentTypes(ctx context.Context, raw []byte) (int, error) {
	if len(raw) == 0 {
		raw = defaultDocumentTypes
	}
	types, err := ParseDocumentTypes(raw)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}
	if err := s.records.UpsertDocumentTypes(ctx, types); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document types")
	}
	s.logger.InfoContext(ctx, "document types seeded", "count", len(types))
	return len(types), nil
}
