package assist

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// MaxPhotoBytes bounds the size of an uploaded photo.
const MaxPhotoBytes = 10 << 20

// ErrBadImage is returned for uploads that are not a decodable image.
var ErrBadImage = errors.New("assist: unreadable image")

// prepareImage decodes a photo, applies its EXIF orientation, shrinks it to
// fit maxSide and re-encodes it as JPEG.
func prepareImage(r io.Reader, maxSide int) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPhotoBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if len(data) > MaxPhotoBytes {
		return nil, "", fmt.Errorf("%w: larger than %d bytes", ErrBadImage, MaxPhotoBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	b := img.Bounds()
	if maxSide > 0 && (b.Dx() > maxSide || b.Dy() > maxSide) {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("assist: encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
