package rembg

import (
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// hasUsefulAlpha 检查 alpha 通道是否真的包含透明信息
// 只要存在非 255（非完全不透明），就认为"已有抠图"
func hasUsefulAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}

// resizeWithinMax 缩放（最长边 <= maxSize），maxSize <= 0 时不缩放
func resizeWithinMax(img image.Image, maxSize int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if maxSize <= 0 || longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}

// alphaBBox 从 alpha 通道计算主体 bounding box
func alphaBBox(img *image.NRGBA, threshold float64) (image.Rectangle, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	th := uint8(threshold * 255)

	minX, minY := w, h
	maxX, maxY := 0, 0
	found := false

	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			if img.Pix[row+x*4+3] <= th {
				continue
			}
			found = true
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}

	if !found {
		return image.Rectangle{}, ErrNoForeground
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), nil
}

// toNRGBA returns a fresh NRGBA copy anchored at the origin, so callers may mutate it.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
