// Package repository defines the persistence collaborator the services talk
// to. Implementations live in sub-packages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/artist-manager/internal/model"
	"github.com/sakif/artist-manager/internal/resource"
)

// Connect links the owning record to every listed id of a relation's target
// resource. Linking is additive: ids already connected stay connected and
// nothing is ever unlinked.
//
// Write payloads carry a Connect under the relation's field name. Scalar
// fields are carried as plain values (string, int64, float64 or nil).
type Connect struct {
	IDs []int64
}

// Store is keyed by resource descriptor, so one implementation serves every
// resource type.
//
// FindUnique, Update and Delete return an error wrapping
// apperror.ErrNotFound when no record has the given id.
type Store interface {
	FindMany(ctx context.Context, d *resource.Descriptor) ([]model.Record, error)
	FindUnique(ctx context.Context, d *resource.Descriptor, id int64) (model.Record, error)
	Create(ctx context.Context, d *resource.Descriptor, data model.Record) (model.Record, error)
	Update(ctx context.Context, d *resource.Descriptor, id int64, data model.Record) (model.Record, error)
	Delete(ctx context.Context, d *resource.Descriptor, id int64) error

	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
	Close() error
}
