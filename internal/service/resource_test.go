package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/artist-manager/internal/apperror"
	"github.com/sakif/artist-manager/internal/auth"
	"github.com/sakif/artist-manager/internal/model"
	"github.com/sakif/artist-manager/internal/repository"
	"github.com/sakif/artist-manager/internal/resource"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore keeps records per table in memory and remembers what it was
// asked to write.
type fakeStore struct {
	tables map[string]map[int64]model.Record
	nextID int64

	lastDesc *resource.Descriptor
	lastData model.Record
	writes   int
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tables: make(map[string]map[int64]model.Record)}
}

func (f *fakeStore) table(d *resource.Descriptor) map[int64]model.Record {
	t, ok := f.tables[d.Table]
	if !ok {
		t = make(map[int64]model.Record)
		f.tables[d.Table] = t
	}
	return t
}

func (f *fakeStore) apply(rec, data model.Record) {
	for k, v := range data {
		if c, ok := v.(repository.Connect); ok {
			rec[k] = append(rec.IDs(k), c.IDs...)
			continue
		}
		rec[k] = v
	}
}

func (f *fakeStore) FindMany(_ context.Context, d *resource.Descriptor) ([]model.Record, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]model.Record, 0)
	for id := int64(1); id <= f.nextID; id++ {
		if rec, ok := f.table(d)[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (f *fakeStore) FindUnique(_ context.Context, d *resource.Descriptor, id int64) (model.Record, error) {
	rec, ok := f.table(d)[id]
	if !ok {
		return nil, apperror.NotFound(d.Name, id)
	}
	return rec.Clone(), nil
}

func (f *fakeStore) Create(_ context.Context, d *resource.Descriptor, data model.Record) (model.Record, error) {
	f.writes++
	f.lastDesc, f.lastData = d, data
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.nextID++
	rec := model.Record{model.FieldID: f.nextID}
	f.apply(rec, data)
	f.table(d)[f.nextID] = rec
	return rec.Clone(), nil
}

func (f *fakeStore) Update(_ context.Context, d *resource.Descriptor, id int64, data model.Record) (model.Record, error) {
	f.writes++
	f.lastDesc, f.lastData = d, data
	rec, ok := f.table(d)[id]
	if !ok {
		return nil, apperror.NotFound(d.Name, id)
	}
	f.apply(rec, data)
	return rec.Clone(), nil
}

func (f *fakeStore) Delete(_ context.Context, d *resource.Descriptor, id int64) error {
	f.writes++
	f.lastDesc = d
	if _, ok := f.table(d)[id]; !ok {
		return apperror.NotFound(d.Name, id)
	}
	delete(f.table(d), id)
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T, d *resource.Descriptor) (*ResourceService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	hasher, err := auth.NewPasswordService(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordService() error = %v", err)
	}
	return NewResourceService(d, store, hasher, testLogger()), store
}

func validArtist() map[string]any {
	return map[string]any{"first_name": "Jane", "last_name": "Smith", "stage_name": "J-Smith"}
}

func validUser() map[string]any {
	return map[string]any{
		"first_name": "Jane",
		"last_name":  "Smith",
		"username":   "jsmith",
		"email":      "jane@example.com",
		"password":   "hunter2hunter2",
	}
}

// =========================================================================
// CREATE
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc, store := newTestService(t, resource.Artists)

	payload := validArtist()
	payload["first_name"] = "  Jane  "
	payload["unknown"] = "dropped"

	rec, err := svc.Create(context.Background(), payload)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if rec.ID() != 1 {
		t.Errorf("ID = %d, want 1", rec.ID())
	}
	if store.lastData["first_name"] != "Jane" {
		t.Errorf("stored first_name = %q, want trimmed", store.lastData["first_name"])
	}
	if _, ok := store.lastData["unknown"]; ok {
		t.Error("unknown field reached the store")
	}
}

func TestCreate_ValidationStopsBeforeStore(t *testing.T) {
	svc, store := newTestService(t, resource.Users)

	payload := validUser()
	delete(payload, "password")

	_, err := svc.Create(context.Background(), payload)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Create() error = %v, want a validation AppError", err)
	}
	if len(appErr.Fields) != 1 || appErr.Fields[0].Field != "password" {
		t.Errorf("Fields = %+v, want one entry for password", appErr.Fields)
	}
	if store.writes != 0 {
		t.Errorf("store saw %d writes, want 0", store.writes)
	}
}

func TestCreate_HashesPassword(t *testing.T) {
	svc, store := newTestService(t, resource.Users)

	if _, err := svc.Create(context.Background(), validUser()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stored, _ := store.lastData["password"].(string)
	if stored == "hunter2hunter2" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte("hunter2hunter2")); err != nil {
		t.Errorf("stored value is not a bcrypt hash of the password: %v", err)
	}
}

func TestCreate_PasswordOverByteLimit(t *testing.T) {
	svc, store := newTestService(t, resource.Users)

	payload := validUser()
	// 40 characters pass the length rule but take 80 bytes.
	payload["password"] = strings.Repeat("é", 40)

	_, err := svc.Create(context.Background(), payload)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}
	if store.writes != 0 {
		t.Error("store was called despite an unhashable password")
	}
}

func TestCreate_WriteOnlyWithoutHasher(t *testing.T) {
	store := newFakeStore()
	svc := NewResourceService(resource.Users, store, nil, testLogger())

	_, err := svc.Create(context.Background(), validUser())
	if err == nil {
		t.Fatal("Create() should refuse to store a secret without a hasher")
	}
	if errors.Is(err, apperror.ErrValidation) {
		t.Errorf("missing hasher is a server fault, got validation error %v", err)
	}
}

func TestCreate_ConnectsRelations(t *testing.T) {
	svc, store := newTestService(t, resource.RecordLabels)

	_, err := svc.Create(context.Background(), map[string]any{
		"name":           "Label",
		"signed_artists": []any{1, 2},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	c, ok := store.lastData["signed_artists"].(repository.Connect)
	if !ok {
		t.Fatalf("signed_artists = %T, want repository.Connect", store.lastData["signed_artists"])
	}
	if len(c.IDs) != 2 || c.IDs[0] != 1 || c.IDs[1] != 2 {
		t.Errorf("Connect.IDs = %v, want [1 2]", c.IDs)
	}
	if _, ok := store.lastData["contracts"]; ok {
		t.Error("absent relation should not reach the store")
	}
}

func TestCreate_StoreErrorIsInternal(t *testing.T) {
	svc, store := newTestService(t, resource.Artists)
	store.failWith = errors.New("disk full")

	_, err := svc.Create(context.Background(), validArtist())
	if err == nil {
		t.Fatal("Create() should surface the store error")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		t.Errorf("store failure should not be an AppError, got %v", appErr)
	}
}

// =========================================================================
// GET / LIST
// =========================================================================

func TestGet(t *testing.T) {
	svc, _ := newTestService(t, resource.Artists)
	created, _ := svc.Create(context.Background(), validArtist())

	found, err := svc.Get(context.Background(), created.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found["stage_name"] != "J-Smith" {
		t.Errorf("stage_name = %v, want J-Smith", found["stage_name"])
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t, resource.Artists)

	_, err := svc.Get(context.Background(), 99)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	svc, _ := newTestService(t, resource.Artists)
	for i := 0; i < 3; i++ {
		payload := validArtist()
		payload["stage_name"] = fmt.Sprintf("artist-%d", i)
		if _, err := svc.Create(context.Background(), payload); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	records, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("List() returned %d records, want 3", len(records))
	}
	if records[0]["stage_name"] != "artist-0" {
		t.Errorf("first record = %v, want insertion order", records[0]["stage_name"])
	}
}

func TestList_StoreError(t *testing.T) {
	svc, store := newTestService(t, resource.Artists)
	store.failWith = errors.New("connection reset")

	if _, err := svc.List(context.Background()); err == nil {
		t.Fatal("List() should surface the store error")
	}
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdate_Partial(t *testing.T) {
	svc, store := newTestService(t, resource.Users)
	created, err := svc.Create(context.Background(), validUser())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID(), map[string]any{"username": "renamed"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated["username"] != "renamed" {
		t.Errorf("username = %v, want renamed", updated["username"])
	}
	if len(store.lastData) != 1 {
		t.Errorf("store received %v, want only username", store.lastData)
	}
}

func TestUpdate_ValidationStopsBeforeStore(t *testing.T) {
	svc, store := newTestService(t, resource.Artists)
	created, _ := svc.Create(context.Background(), validArtist())
	writes := store.writes

	_, err := svc.Update(context.Background(), created.ID(), map[string]any{"stage_name": ""})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Update() error = %v, want ErrValidation", err)
	}
	if store.writes != writes {
		t.Error("a failed validation still reached the store")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t, resource.Artists)

	_, err := svc.Update(context.Background(), 7, map[string]any{"stage_name": "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_RelationsAreAdditive(t *testing.T) {
	svc, _ := newTestService(t, resource.RecordLabels)
	created, err := svc.Create(context.Background(), map[string]any{
		"name":      "Label",
		"contracts": []any{5},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID(), map[string]any{
		"signed_artists": []any{1, 2},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if got := updated.IDs("signed_artists"); len(got) != 2 {
		t.Errorf("signed_artists = %v, want two ids", got)
	}
	if got := updated.IDs("contracts"); len(got) != 1 || got[0] != 5 {
		t.Errorf("contracts = %v, want untouched [5]", got)
	}
}

// =========================================================================
// DELETE
// =========================================================================

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t, resource.Tracks)
	created, _ := svc.Create(context.Background(), map[string]any{"title": "Song"})

	if err := svc.Delete(context.Background(), created.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	err := svc.Delete(context.Background(), created.ID())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

// Each service must only ever hand its own descriptor to the store.
func TestService_BoundToItsResource(t *testing.T) {
	for _, d := range resource.Default().All() {
		t.Run(d.Path, func(t *testing.T) {
			svc, store := newTestService(t, d)

			if err := svc.Delete(context.Background(), 1); !errors.Is(err, apperror.ErrNotFound) {
				t.Fatalf("Delete() error = %v, want ErrNotFound", err)
			}
			if store.lastDesc != d {
				t.Errorf("Delete() addressed %s, want %s", store.lastDesc.Path, d.Path)
			}

			_, _ = svc.Update(context.Background(), 1, map[string]any{})
			if store.lastDesc != d {
				t.Errorf("Update() addressed %s, want %s", store.lastDesc.Path, d.Path)
			}
			if svc.Descriptor() != d {
				t.Errorf("Descriptor() = %s, want %s", svc.Descriptor().Path, d.Path)
			}
		})
	}
}
