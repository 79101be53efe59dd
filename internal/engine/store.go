package engine

import (
	"encoding/binary"
	"encoding/hex"
	"image"

	"golang.org/x/crypto/blake2b"
)

// BitmapStore holds bitmaps referenced from snapshots by content hash.
// Bitmaps put in the store must not be mutated afterwards.
type BitmapStore struct {
	byRef map[string]*image.NRGBA
	refs  map[*image.NRGBA]string
}

// NewBitmapStore creates an empty store.
func NewBitmapStore() *BitmapStore {
	return &BitmapStore{
		byRef: make(map[string]*image.NRGBA),
		refs:  make(map[*image.NRGBA]string),
	}
}

// Ref returns the content hash of img without retaining it.
func (s *BitmapStore) Ref(img *image.NRGBA) string {
	if img == nil {
		return ""
	}
	if ref, ok := s.refs[img]; ok {
		return ref
	}

	h, _ := blake2b.New256(nil)
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], uint32(img.Rect.Dx()))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(img.Rect.Dy()))
	h.Write(dims[:])
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		off := img.PixOffset(img.Rect.Min.X, y)
		h.Write(img.Pix[off : off+img.Rect.Dx()*4])
	}
	ref := hex.EncodeToString(h.Sum(nil)[:16])
	s.refs[img] = ref
	return ref
}

// Put stores img and returns its reference.
func (s *BitmapStore) Put(img *image.NRGBA) string {
	ref := s.Ref(img)
	if ref == "" {
		return ""
	}
	if _, ok := s.byRef[ref]; !ok {
		s.byRef[ref] = img
	}
	return ref
}

// Get returns the bitmap stored under ref.
func (s *BitmapStore) Get(ref string) (*image.NRGBA, bool) {
	img, ok := s.byRef[ref]
	return img, ok
}

// Len returns the number of stored bitmaps.
func (s *BitmapStore) Len() int { return len(s.byRef) }

// Forget drops memoized refs of bitmaps that are neither stored nor held
// by one of the given ref tables. Callers pass the tables they still serve
// from, so the memo stays proportional to what is reachable.
func (s *BitmapStore) Forget(held ...map[string]*image.NRGBA) {
	for img, ref := range s.refs {
		if s.byRef[ref] == img {
			continue
		}
		keep := false
		for _, m := range held {
			if m[ref] == img {
				keep = true
				break
			}
		}
		if !keep {
			delete(s.refs, img)
		}
	}
}

// Retain drops every bitmap whose reference is not in keep.
func (s *BitmapStore) Retain(keep map[string]struct{}) {
	for ref := range s.byRef {
		if _, ok := keep[ref]; !ok {
			delete(s.byRef, ref)
		}
	}
	for img, ref := range s.refs {
		if _, ok := keep[ref]; !ok {
			delete(s.refs, img)
		}
	}
}
