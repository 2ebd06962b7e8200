package rembg

import (
	"context"
	"image"
)

const (
	DefaultTolerance = 32
	DefaultMaxSide   = 2048

	// 每处理这么多像素检查一次 ctx
	cancelCheckEvery = 1 << 14
)

// ColorKeyRemBG removes the background by keying out the colour found on the image border.
// Only pixels connected to the border are cleared, so foreground regions of the same
// colour survive as long as they are enclosed.
type ColorKeyRemBG struct {
	tolerance uint8
	maxSide   int
}

type ColorKeyOption func(*ColorKeyRemBG)

func WithTolerance(t uint8) ColorKeyOption {
	return func(r *ColorKeyRemBG) {
		r.tolerance = t
	}
}

// WithMaxSide caps the longest side of the output. Zero keeps the original size.
func WithMaxSide(n int) ColorKeyOption {
	return func(r *ColorKeyRemBG) {
		r.maxSide = n
	}
}

func NewColorKeyRemBG(opts ...ColorKeyOption) *ColorKeyRemBG {
	r := &ColorKeyRemBG{
		tolerance: DefaultTolerance,
		maxSide:   DefaultMaxSide,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ColorKeyRemBG) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if img.Bounds().Empty() {
		return nil, ErrNoForeground
	}

	// 先缩放再复制，避免整张原图再拷贝一份
	src := toNRGBA(resizeWithinMax(img, r.maxSide))

	// 已有抠图，直接返回
	if hasUsefulAlpha(src) {
		return src, nil
	}

	if err := r.keyOut(ctx, src, borderColor(src)); err != nil {
		return nil, err
	}

	if _, err := alphaBBox(src, 0.5); err != nil {
		return nil, err
	}
	return src, nil
}

// keyOut flood-fills from every border pixel close to bg and makes the region transparent.
func (r *ColorKeyRemBG) keyOut(ctx context.Context, img *image.NRGBA, bg [3]uint8) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	visited := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))

	push := func(x, y int) {
		idx := y*w + x
		if visited[idx] {
			return
		}
		visited[idx] = true
		off := y*img.Stride + x*4
		if !r.matches(img.Pix[off:off+3], bg) {
			return
		}
		queue = append(queue, idx)
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for n := 0; len(queue) > 0; n++ {
		if n%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := idx%w, idx/w

		off := y*img.Stride + x*4
		img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = 0, 0, 0, 0

		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	return nil
}

func (r *ColorKeyRemBG) matches(px []uint8, bg [3]uint8) bool {
	for i := 0; i < 3; i++ {
		d := int(px[i]) - int(bg[i])
		if d < 0 {
			d = -d
		}
		if d > int(r.tolerance) {
			return false
		}
	}
	return true
}

// borderColor averages the four corner pixels.
func borderColor(img *image.NRGBA) [3]uint8 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	corners := [4][2]int{{0, 0}, {w - 1, 0}, {0, h - 1}, {w - 1, h - 1}}

	var sum [3]int
	for _, c := range corners {
		off := c[1]*img.Stride + c[0]*4
		for i := 0; i < 3; i++ {
			sum[i] += int(img.Pix[off+i])
		}
	}
	return [3]uint8{uint8(sum[0] / 4), uint8(sum[1] / 4), uint8(sum[2] / 4)}
}
