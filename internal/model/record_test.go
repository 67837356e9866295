package model

import "testing"

func TestRecordAccessors(t *testing.T) {
	r := Record{
		FieldID:  int64(42),
		"tracks": []int64{3, 4},
	}

	if r.ID() != 42 {
		t.Errorf("ID() = %d, want 42", r.ID())
	}
	if ids := r.IDs("tracks"); len(ids) != 2 || ids[0] != 3 {
		t.Errorf("IDs(tracks) = %v, want [3 4]", ids)
	}
}

func TestRecordID_Missing(t *testing.T) {
	if id := (Record{}).ID(); id != 0 {
		t.Errorf("ID() on empty record = %d, want 0", id)
	}
}

func TestRecordClone_CopiesRelations(t *testing.T) {
	r := Record{"title": "Blue", "tracks": []int64{1}}
	c := r.Clone()

	c.IDs("tracks")[0] = 99
	c["title"] = "Red"

	if r.IDs("tracks")[0] != 1 {
		t.Error("Clone() shares the relation slice with the original")
	}
	if r["title"] != "Blue" {
		t.Error("Clone() shares the map with the original")
	}
}
