package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/jung-kurt/gofpdf"
)

// PNG encodes a flattened collage.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF places a flattened collage on a single page. The page is sized in
// points to the canvas, so an export rendered at pixelRatio 2 keeps its
// full resolution when printed.
func PDF(img image.Image, pixelRatio float64, title string) ([]byte, error) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	b := img.Bounds()
	pageW := float64(b.Dx()) / pixelRatio
	pageH := float64(b.Dy()) / pixelRatio

	data, err := PNG(img)
	if err != nil {
		return nil, err
	}

	size := gofpdf.SizeType{Wd: pageW, Ht: pageH}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	pdf.SetTitle(title, true)
	pdf.SetCreator("collage", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("", size)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("collage", opts, bytes.NewReader(data))
	pdf.ImageOptions("collage", 0, 0, pageW, pageH, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), nil
}
