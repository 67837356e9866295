// Package service holds the per-resource business flow: validate, hash
// secrets, connect relations, then call the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/artist-manager/internal/apperror"
	"github.com/sakif/artist-manager/internal/auth"
	"github.com/sakif/artist-manager/internal/model"
	"github.com/sakif/artist-manager/internal/repository"
	"github.com/sakif/artist-manager/internal/resource"
	"github.com/sakif/artist-manager/internal/validation"
)

// Hasher turns a write-only secret into the value that gets stored.
// *auth.PasswordService satisfies it.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// ResourceService runs CRUD for exactly one resource type.
type ResourceService struct {
	desc   *resource.Descriptor
	store  repository.Store
	hasher Hasher
	logger *slog.Logger
}

// NewResourceService binds a service to one descriptor. hasher may be nil
// for resources without write-only fields.
func NewResourceService(d *resource.Descriptor, store repository.Store, hasher Hasher, logger *slog.Logger) *ResourceService {
	return &ResourceService{
		desc:   d,
		store:  store,
		hasher: hasher,
		logger: logger.With(slog.String("resource", d.Path)),
	}
}

// Descriptor returns the resource this service is bound to.
func (s *ResourceService) Descriptor() *resource.Descriptor {
	return s.desc
}

// List returns every record in insertion order.
func (s *ResourceService) List(ctx context.Context) ([]model.Record, error) {
	records, err := s.store.FindMany(ctx, s.desc)
	if err != nil {
		s.logger.Error("failed to list records", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing %s: %w", s.desc.Path, err)
	}
	return records, nil
}

// Get returns one record or an error wrapping apperror.ErrNotFound.
func (s *ResourceService) Get(ctx context.Context, id int64) (model.Record, error) {
	record, err := s.store.FindUnique(ctx, s.desc, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to get record",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("getting %s %d: %w", s.desc.LowerName(), id, err)
	}
	return record, nil
}

// Create validates payload with every required field enforced and stores
// the new record.
func (s *ResourceService) Create(ctx context.Context, payload map[string]any) (model.Record, error) {
	data, err := s.prepare(payload, validation.Create)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Create(ctx, s.desc, data)
	if err != nil {
		s.logger.Error("failed to create record", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating %s: %w", s.desc.LowerName(), err)
	}

	s.logger.Info("record created", slog.Int64("id", record.ID()))
	return record, nil
}

// Update validates only the supplied fields and applies them to record id.
// Nothing is written when validation fails.
func (s *ResourceService) Update(ctx context.Context, id int64, payload map[string]any) (model.Record, error) {
	data, err := s.prepare(payload, validation.Update)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Update(ctx, s.desc, id, data)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to update record",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("updating %s %d: %w", s.desc.LowerName(), id, err)
	}

	s.logger.Info("record updated", slog.Int64("id", id))
	return record, nil
}

// Delete permanently removes record id. Deleting it again reports not found.
func (s *ResourceService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, s.desc, id); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to delete record",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return fmt.Errorf("deleting %s %d: %w", s.desc.LowerName(), id, err)
	}

	s.logger.Info("record deleted", slog.Int64("id", id))
	return nil
}

// prepare turns a raw payload into store input: validated, secrets hashed,
// relations in Connect form.
func (s *ResourceService) prepare(payload map[string]any, mode validation.Mode) (model.Record, error) {
	cleaned, fieldErrs := validation.Validate(s.desc, payload, mode)
	if len(fieldErrs) > 0 {
		return nil, apperror.Validation(fieldErrs)
	}

	if err := s.hashSecrets(cleaned); err != nil {
		return nil, err
	}

	return ConnectRelations(s.desc, cleaned), nil
}

func (s *ResourceService) hashSecrets(data model.Record) error {
	for _, f := range s.desc.Fields {
		if !f.WriteOnly {
			continue
		}
		plaintext, ok := data[f.Name].(string)
		if !ok {
			continue
		}
		if s.hasher == nil {
			return fmt.Errorf("hashing %s.%s: no hasher configured", s.desc.Path, f.Name)
		}
		hashed, err := s.hasher.Hash(plaintext)
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return apperror.ValidationFailed(f.Name,
				fmt.Sprintf("%s must be at most %d bytes long", f.Label, auth.MaxPasswordBytes))
		}
		if err != nil {
			return fmt.Errorf("hashing %s.%s: %w", s.desc.Path, f.Name, err)
		}
		data[f.Name] = hashed
	}
	return nil
}
