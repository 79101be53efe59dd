package engine

import (
	"bytes"
	"image"
	"image/png"
	"sync"
)

// BitmapCodec encodes committed bitmaps into the bytes served to the
// browser.
type BitmapCodec interface {
	Encode(img image.Image) ([]byte, error)
	ContentType() string
}

// PNGCodec encodes bitmaps as PNG with the fastest compression level.
type PNGCodec struct{}

func (PNGCodec) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (PNGCodec) ContentType() string { return "image/png" }

// completion is the result of encoding one issued bitmap edit.
type completion struct {
	layer *Layer
	gen   uint64
	img   *image.NRGBA
	data  []byte
	err   error
}

// Pipeline encodes edited bitmaps off the editor goroutine. Completions are
// only ever applied by the goroutine that calls Pump or Flush.
type Pipeline struct {
	codec   BitmapCodec
	results chan completion

	mu       sync.Mutex
	inflight int
}

// NewPipeline creates a pipeline using codec.
func NewPipeline(codec BitmapCodec) *Pipeline {
	if codec == nil {
		codec = PNGCodec{}
	}
	return &Pipeline{
		codec:   codec,
		results: make(chan completion, 64),
	}
}

// Submit schedules img, the gen-th edit of l, for encoding.
func (p *Pipeline) Submit(l *Layer, gen uint64, img *image.NRGBA) {
	p.mu.Lock()
	p.inflight++
	p.mu.Unlock()

	go func() {
		data, err := p.codec.Encode(img)
		p.results <- completion{layer: l, gen: gen, img: img, data: data, err: err}
	}()
}

// Inflight returns the number of submitted edits not yet applied.
func (p *Pipeline) Inflight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight
}

// Pump applies every completion that is already available and returns how
// many were handled. It never blocks.
func (p *Pipeline) Pump(apply func(completion)) int {
	n := 0
	for {
		select {
		case c := <-p.results:
			p.done()
			apply(c)
			n++
		default:
			return n
		}
	}
}

// Flush blocks until every submitted edit has been applied.
func (p *Pipeline) Flush(apply func(completion)) int {
	n := 0
	for p.Inflight() > 0 {
		c := <-p.results
		p.done()
		apply(c)
		n++
	}
	return n
}

func (p *Pipeline) done() {
	p.mu.Lock()
	p.inflight--
	p.mu.Unlock()
}
