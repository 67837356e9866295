package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/artist-manager/internal/apperror"
	"github.com/sakif/artist-manager/internal/model"
	"github.com/sakif/artist-manager/internal/resource"
)

// Resolved is the record the lookup middleware found for the {id} path
// parameter.
type Resolved struct {
	ID     int64
	Record model.Record
}

type resolvedKey struct{}

// WithResolved returns a copy of ctx carrying res.
func WithResolved(ctx context.Context, res Resolved) context.Context {
	return context.WithValue(ctx, resolvedKey{}, res)
}

// ResolvedFromContext returns the record attached by Lookup.
func ResolvedFromContext(ctx context.Context) (Resolved, bool) {
	res, ok := ctx.Value(resolvedKey{}).(Resolved)
	return res, ok
}

// Finder loads one record by id. *service.ResourceService satisfies it.
type Finder interface {
	Get(ctx context.Context, id int64) (model.Record, error)
}

// Lookup resolves the {id} path parameter to a record of d before the
// wrapped handler runs. A malformed id is rejected with 400 before the
// store is touched; a missing record is a 404.
func Lookup(d *resource.Descriptor, finder Finder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := chi.URLParam(r, "id")
			id, ok := parseID(raw)
			if !ok {
				writeError(w, logger, apperror.InvalidIdentifier(d.LowerName(), raw))
				return
			}

			record, err := finder.Get(r.Context(), id)
			if err != nil {
				writeError(w, logger, err)
				return
			}

			ctx := WithResolved(r.Context(), Resolved{ID: id, Record: record})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseID accepts positive base-10 integers only: no sign, no spaces.
func parseID(raw string) (int64, bool) {
	if raw == "" || raw[0] < '0' || raw[0] > '9' {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
