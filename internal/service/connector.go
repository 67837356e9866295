package service

import (
	"github.com/sakif/artist-manager/internal/model"
	"github.com/sakif/artist-manager/internal/repository"
	"github.com/sakif/artist-manager/internal/resource"
)

// ConnectRelations rewrites each relation field of cleaned data from a list
// of ids into the store's Connect form. A relation that was not supplied
// stays absent, so its existing links are left alone.
//
// The input is not modified.
func ConnectRelations(d *resource.Descriptor, data model.Record) model.Record {
	if len(d.Relations) == 0 {
		return data
	}

	out := data.Clone()
	for _, rel := range d.Relations {
		v, ok := out[rel.Field]
		if !ok {
			continue
		}
		ids, ok := v.([]int64)
		if !ok {
			// Validation never leaves anything else here.
			delete(out, rel.Field)
			continue
		}
		out[rel.Field] = repository.Connect{IDs: ids}
	}
	return out
}
