package imaging

import (
	"bytes"
	"encoding/base64"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// PreviewResult contains an encoded frame or region image.
type PreviewResult struct {
	Frame       int    `json:"frame"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop returns the clamped region of frame as an image.
func Crop(frame video.Frame, region Region) (*image.NRGBA, error) {
	if err := frame.Validate(); err != nil {
		return nil, &DataError{Region: region, Err: err}
	}
	b := region.Clamp(frame.Width, frame.Height)
	if b.Empty() {
		return nil, errors.Errorf("region %s has no area inside %dx%d frame", region, frame.Width, frame.Height)
	}
	return imaging.Crop(frame.ToNRGBA(), b.Rect()), nil
}

// Preview encodes frame, or the given region of it, as base64 PNG.
func Preview(frame video.Frame, region *Region, scale float64) (*PreviewResult, error) {
	var img image.Image
	if region != nil {
		cropped, err := Crop(frame, *region)
		if err != nil {
			return nil, err
		}
		img = cropped
	} else {
		if err := frame.Validate(); err != nil {
			return nil, &DataError{Err: err}
		}
		img = frame.ToNRGBA()
	}
	return encodePreview(frame.Index, img, scale)
}

func encodePreview(index int, img image.Image, scale float64) (*PreviewResult, error) {
	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(img.Bounds().Dx()) * scale)
		newHeight := int(float64(img.Bounds().Dy()) * scale)
		if newWidth > 0 && newHeight > 0 {
			img = imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "failed to encode preview")
	}

	return &PreviewResult{
		Frame:       index,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
