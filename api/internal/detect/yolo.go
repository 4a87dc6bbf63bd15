//go:build gocv
// +build gocv

package detect

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// YOLODetector runs a YOLO plate model through the OpenCV DNN module.
type YOLODetector struct {
	ConfigPath    string
	WeightsPath   string
	ConfThreshold float32
	NMSThreshold  float32
	InputSize     int
}

func NewYOLODetector(configPath, weightsPath string, confThreshold float64) *YOLODetector {
	return &YOLODetector{
		ConfigPath:    configPath,
		WeightsPath:   weightsPath,
		ConfThreshold: float32(confThreshold),
		NMSThreshold:  0.4,
		InputSize:     416,
	}
}

// Detect runs the network over the photo and crops the highest-confidence
// plate box. Returns nil when no box clears the confidence threshold.
func (d *YOLODetector) Detect(ctx context.Context, imagePath string) (*Detection, error) {
	_ = ctx

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		// unreadable file: no plate to find
		return nil, nil
	}
	defer img.Close()

	net := gocv.ReadNet(d.WeightsPath, d.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s / %s", d.WeightsPath, d.ConfigPath)
	}
	defer net.Close()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(d.InputSize, d.InputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	net.SetInput(blob, "")

	outNames := make([]string, 0, 3)
	for _, i := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(i)
		outNames = append(outNames, layer.GetName())
		layer.Close()
	}

	outputs := net.ForwardLayers(outNames)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	boxes, scores := d.collectBoxes(outputs, img.Cols(), img.Rows())
	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, scores, d.ConfThreshold, d.NMSThreshold)
	if len(indices) == 0 {
		return nil, nil
	}

	best := boxes[indices[0]]
	best = clampRect(best, img.Cols(), img.Rows())
	if best.Dx() <= 0 || best.Dy() <= 0 {
		return nil, nil
	}

	crop := img.Region(best)
	defer crop.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, crop)
	if err != nil {
		return nil, fmt.Errorf("encode plate crop: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	if len(data) == 0 {
		return nil, errors.New("empty plate crop encoding")
	}

	return &Detection{
		Plate: data,
		Region: Region{
			X:      best.Min.X,
			Y:      best.Min.Y,
			Width:  best.Dx(),
			Height: best.Dy(),
		},
		TopOffset: best.Min.Y,
	}, nil
}

// collectBoxes converts raw YOLO output rows (cx, cy, w, h, obj, class...)
// into pixel-space rects above the confidence threshold.
func (d *YOLODetector) collectBoxes(outputs []gocv.Mat, imgW, imgH int) ([]image.Rectangle, []float32) {
	var boxes []image.Rectangle
	var scores []float32

	for _, out := range outputs {
		data, err := out.DataPtrFloat32()
		if err != nil {
			continue
		}
		cols := out.Cols()
		for row := 0; row < out.Rows(); row++ {
			r := data[row*cols : (row+1)*cols]
			conf := r[4]
			if conf < d.ConfThreshold {
				continue
			}
			cx := r[0] * float32(imgW)
			cy := r[1] * float32(imgH)
			w := r[2] * float32(imgW)
			h := r[3] * float32(imgH)

			x := int(cx - w/2)
			y := int(cy - h/2)
			boxes = append(boxes, image.Rect(x, y, x+int(w), y+int(h)))
			scores = append(scores, conf)
		}
	}
	return boxes, scores
}

func clampRect(r image.Rectangle, w, h int) image.Rectangle {
	return r.Intersect(image.Rect(0, 0, w, h))
}
