package engine

import "image"

// PanelItem is one row of the layer panel.
type PanelItem struct {
	LayerID     string `json:"layerId"`
	Name        string `json:"name"`
	Selected    bool   `json:"selected"`
	CanMoveUp   bool   `json:"canMoveUp"`
	CanMoveDown bool   `json:"canMoveDown"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// Panel presents the layers top-first with thumbnails. It is rebuilt
// lazily after the scene reports a change.
type Panel struct {
	ed     *Editor
	items  []PanelItem
	dirty  bool
	thumbs map[*image.NRGBA]*image.NRGBA
	byRef  map[string]*image.NRGBA

	ThumbWidth  int
	ThumbHeight int
}

func newPanel(ed *Editor, w, h int) *Panel {
	return &Panel{
		ed:          ed,
		dirty:       true,
		thumbs:      make(map[*image.NRGBA]*image.NRGBA),
		byRef:       make(map[string]*image.NRGBA),
		ThumbWidth:  w,
		ThumbHeight: h,
	}
}

func (p *Panel) invalidate() { p.dirty = true }

// Items returns the rows, topmost layer first.
func (p *Panel) Items() []PanelItem {
	if p.dirty {
		p.rebuild()
	}
	return p.items
}

// Thumbnail returns a thumbnail bitmap by the reference in a PanelItem.
func (p *Panel) Thumbnail(ref string) (*image.NRGBA, bool) {
	img, ok := p.byRef[ref]
	return img, ok
}

func (p *Panel) rebuild() {
	scene := p.ed.scene
	layers := scene.layers
	n := len(layers)

	items := make([]PanelItem, 0, n)
	thumbs := make(map[*image.NRGBA]*image.NRGBA, n)
	byRef := make(map[string]*image.NRGBA, n)

	for i := n - 1; i >= 0; i-- {
		l := layers[i]
		item := PanelItem{
			LayerID:     l.ID,
			Name:        l.DisplayName(i),
			Selected:    scene.State.SelectedID == l.ID,
			CanMoveUp:   i < n-1,
			CanMoveDown: i > 0,
		}
		if src := l.Displayed(); src != nil {
			th, ok := p.thumbs[src]
			if !ok {
				th = Thumbnail(src, p.ThumbWidth, p.ThumbHeight)
			}
			thumbs[src] = th
			item.Thumbnail = p.ed.store.Ref(th)
			byRef[item.Thumbnail] = th
		}
		items = append(items, item)
	}

	p.items = items
	p.thumbs = thumbs
	p.byRef = byRef
	p.dirty = false
	p.ed.store.Forget(p.ed.frame, byRef)
}
