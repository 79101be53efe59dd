package engine

import (
	"image"
	"image/color"
	"testing"
)

func TestBitmapStoreRefIsContentHash(t *testing.T) {
	s := NewBitmapStore()
	a := Solid(8, 8, opaque)
	b := Solid(8, 8, opaque)
	if s.Ref(a) != s.Ref(b) {
		t.Fatal("equal pixels produced different refs")
	}
	if s.Ref(a) == s.Ref(Solid(8, 4, opaque)) {
		t.Fatal("different sizes share a ref")
	}
	c := Solid(8, 8, opaque)
	c.SetNRGBA(3, 3, color.NRGBA{})
	if s.Ref(a) == s.Ref(c) {
		t.Fatal("different pixels share a ref")
	}
	if s.Ref(nil) != "" {
		t.Fatal("nil bitmap has a ref")
	}
	if s.Len() != 0 {
		t.Fatal("Ref retained a bitmap")
	}
}

func TestBitmapStorePutGetRetain(t *testing.T) {
	s := NewBitmapStore()
	a := Solid(4, 4, opaque)
	b := Solid(4, 4, color.NRGBA{A: 255})

	ra := s.Put(a)
	rb := s.Put(b)
	if s.Put(Solid(4, 4, opaque)) != ra || s.Len() != 2 {
		t.Fatalf("duplicate content stored twice, len = %d", s.Len())
	}
	if got, ok := s.Get(ra); !ok || got != a {
		t.Fatal("Get did not return the first stored bitmap")
	}

	s.Retain(map[string]struct{}{rb: {}})
	if _, ok := s.Get(ra); ok {
		t.Fatal("unreferenced bitmap survived Retain")
	}
	if _, ok := s.Get(rb); !ok {
		t.Fatal("kept bitmap dropped")
	}
}

func TestBitmapStoreForget(t *testing.T) {
	s := NewBitmapStore()
	stored := Solid(4, 4, opaque)
	s.Put(stored)
	held := Solid(5, 5, opaque)
	table := map[string]*image.NRGBA{s.Ref(held): held}
	for i := 0; i < 50; i++ {
		s.Ref(Solid(6, 6, color.NRGBA{R: uint8(i), A: 255}))
	}

	s.Forget(table)
	if len(s.refs) != 2 {
		t.Fatalf("memo len = %d, want 2", len(s.refs))
	}
	if _, ok := s.refs[stored]; !ok {
		t.Fatal("stored bitmap forgotten")
	}
	if _, ok := s.refs[held]; !ok {
		t.Fatal("held bitmap forgotten")
	}
}

func TestRefMemoStaysBoundedAcrossEdits(t *testing.T) {
	ed := newTestEditor(t)
	l := addSolid(t, ed, 40, 40, "rug")

	for i := 0; i < 100; i++ {
		ed.commitBitmap(l, Solid(40, 40, color.NRGBA{R: uint8(i), A: 255}))
		ed.Flush()
		ed.DrawCommands()
		ed.Panel()
	}

	// Stored snapshots, plus the live bitmap and its thumbnail.
	if limit := ed.store.Len() + 2; len(ed.store.refs) > limit {
		t.Fatalf("memo len = %d after 100 edits, want <= %d", len(ed.store.refs), limit)
	}
}
