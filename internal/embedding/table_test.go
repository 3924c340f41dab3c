package embedding

import (
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/movierec/internal/models"
)

func TestTable_VectorFor(t *testing.T) {
	tbl, err := NewTable([][]float32{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 3 || tbl.Dimensions() != 2 {
		t.Fatalf("shape = %d x %d, want 3 x 2", tbl.Len(), tbl.Dimensions())
	}
	v, err := tbl.VectorFor(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 2 || v[0] != 3 || v[1] != 4 {
		t.Errorf("VectorFor(1) = %v, want [3 4]", v)
	}

	// callers cannot mutate the table
	v[0] = 99
	again, _ := tbl.VectorFor(1)
	if again[0] != 3 {
		t.Errorf("table mutated through returned vector: %v", again)
	}
}

func TestTable_VectorForOutOfRange(t *testing.T) {
	tbl, err := NewTable([][]float32{{1}})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []models.ItemID{-1, 1} {
		if _, err := tbl.VectorFor(id); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("VectorFor(%d) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestNewTable_Invalid(t *testing.T) {
	tests := map[string][][]float32{
		"empty":    nil,
		"zero dim": {{}},
		"ragged":   {{1, 2}, {3}},
		"nan":      {{1, 2}, {float32(math.NaN()), 0}},
		"inf":      {{float32(math.Inf(-1)), 2}},
	}
	for name, vecs := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewTable(vecs); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTable_Vectors(t *testing.T) {
	tbl, _ := NewTable([][]float32{{1, 2}, {3, 4}})
	vs := tbl.Vectors()
	if len(vs) != 2 || vs[1][1] != 4 {
		t.Errorf("Vectors() = %v", vs)
	}
}
