//go:build !gocv
// +build !gocv

package detect

import (
	"context"
	"errors"
)

// YOLODetector stub for builds without the gocv tag.
type YOLODetector struct {
	ConfigPath    string
	WeightsPath   string
	ConfThreshold float32
}

func NewYOLODetector(configPath, weightsPath string, confThreshold float64) *YOLODetector {
	return &YOLODetector{
		ConfigPath:    configPath,
		WeightsPath:   weightsPath,
		ConfThreshold: float32(confThreshold),
	}
}

// Detect fails when the binary was built without the gocv tag.
func (d *YOLODetector) Detect(ctx context.Context, imagePath string) (*Detection, error) {
	_ = ctx
	_ = imagePath
	return nil, errors.New("gocv build tag is not enabled")
}
