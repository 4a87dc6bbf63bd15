package detect

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Region is a plate bounding box in source-image coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Region) Area() int { return r.Width * r.Height }

// Detection is a located plate: the cropped plate image, its bounds and
// the vertical offset of the detection window within the original photo.
type Detection struct {
	Plate     []byte
	Region    Region
	TopOffset int
}

// Detector locates a license plate in the image at path. A nil Detection
// with a nil error means no plate was found; that is an expected outcome,
// not a fault.
type Detector interface {
	Detect(ctx context.Context, imagePath string) (*Detection, error)
}

// Passthrough hands the whole photo to the extraction stage as the
// "crop", leaving plate localization to the vision model. Used when no
// YOLO model files are configured, and by tests.
type Passthrough struct{}

func (Passthrough) Detect(ctx context.Context, imagePath string) (*Detection, error) {
	_ = ctx
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// not a decodable image: treat as "no plate", not a fault
		return nil, nil
	}

	return &Detection{
		Plate:  data,
		Region: Region{X: 0, Y: 0, Width: cfg.Width, Height: cfg.Height},
	}, nil
}
