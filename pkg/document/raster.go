package document

import (
	"bytes"
	"fmt"
	"image/png"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// basePointsPerInch is the PDF user space resolution; a scale of 1.0 renders at 72 DPI.
const basePointsPerInch = 72.0

// PageSet is an opened document whose pages can be rasterized one at a time.
type PageSet interface {
	NumPages() int
	RenderPNG(index int, scale float64) ([]byte, error)
	Close() error
}

// Rasterizer opens PDF documents for page rendering using MuPDF.
type Rasterizer struct{}

// NewRasterizer constructs a MuPDF backed rasterizer.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{}
}

// Open parses the PDF bytes. The returned PageSet must be closed by the caller.
func (r *Rasterizer) Open(data []byte) (PageSet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty pdf", ErrMalformed)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		parseFailures.WithLabelValues("pdf_raster").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &fitzPages{doc: doc}, nil
}

type fitzPages struct {
	mu  sync.Mutex
	doc *fitz.Document
}

func (p *fitzPages) NumPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.NumPage()
}

// RenderPNG renders the zero-based page index at the given zoom factor and encodes it as PNG.
func (p *fitzPages) RenderPNG(index int, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}

	p.mu.Lock()
	img, err := p.doc.ImageDPI(index, basePointsPerInch*scale)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index+1, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", index+1, err)
	}
	return buf.Bytes(), nil
}

func (p *fitzPages) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Close()
}
