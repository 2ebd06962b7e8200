package rembg

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(w, h int, bg, fg color.NRGBA, fgRect image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (image.Point{X: x, Y: y}).In(fgRect) {
				img.SetNRGBA(x, y, fg)
			} else {
				img.SetNRGBA(x, y, bg)
			}
		}
	}
	return img
}

var (
	white = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	red   = color.NRGBA{R: 200, G: 10, B: 10, A: 255}
)

func TestColorKeyRemBG_Remove(t *testing.T) {
	t.Parallel()

	src := square(20, 20, white, red, image.Rect(7, 7, 13, 13))
	out, err := NewColorKeyRemBG().Remove(context.Background(), src)
	require.NoError(t, err)

	got, ok := out.(*image.NRGBA)
	require.True(t, ok)
	assert.Equal(t, uint8(0), got.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), got.NRGBAAt(19, 19).A)
	assert.Equal(t, uint8(0), got.NRGBAAt(6, 10).A)
	assert.Equal(t, red, got.NRGBAAt(10, 10))

	// 输入不应被修改
	assert.Equal(t, white, src.NRGBAAt(0, 0))

	bbox, err := alphaBBox(got, 0.5)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(7, 7, 13, 13), bbox)
}

func TestColorKeyRemBG_KeepsEnclosedBackgroundColour(t *testing.T) {
	t.Parallel()

	src := square(21, 21, white, red, image.Rect(5, 5, 16, 16))
	src.SetNRGBA(10, 10, white)

	out, err := NewColorKeyRemBG().Remove(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.(*image.NRGBA).NRGBAAt(10, 10).A)
}

func TestColorKeyRemBG_NoForeground(t *testing.T) {
	t.Parallel()

	src := square(8, 8, white, white, image.Rectangle{})
	_, err := NewColorKeyRemBG().Remove(context.Background(), src)
	assert.ErrorIs(t, err, ErrNoForeground)
}

func TestColorKeyRemBG_AlreadyTransparent(t *testing.T) {
	t.Parallel()

	src := square(8, 8, color.NRGBA{}, red, image.Rect(2, 2, 6, 6))
	out, err := NewColorKeyRemBG().Remove(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.(*image.NRGBA).Pix)
}

func TestColorKeyRemBG_MaxSide(t *testing.T) {
	t.Parallel()

	src := square(100, 50, white, red, image.Rect(30, 10, 70, 40))
	out, err := NewColorKeyRemBG(WithMaxSide(40)).Remove(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 40, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())
}

func TestColorKeyRemBG_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := square(20, 20, white, red, image.Rect(7, 7, 13, 13))
	_, err := NewColorKeyRemBG().Remove(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestColorKeyRemBG_Tolerance(t *testing.T) {
	t.Parallel()

	near := color.NRGBA{R: 230, G: 230, B: 230, A: 255}
	src := square(10, 10, white, near, image.Rect(3, 3, 7, 7))

	_, err := NewColorKeyRemBG(WithTolerance(32)).Remove(context.Background(), src)
	assert.ErrorIs(t, err, ErrNoForeground)

	out, err := NewColorKeyRemBG(WithTolerance(5)).Remove(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.(*image.NRGBA).NRGBAAt(5, 5).A)
}
