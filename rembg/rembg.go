package rembg

import (
	"context"
	"errors"
	"image"
)

// ErrNoForeground is returned when nothing is left after the background is removed.
var ErrNoForeground = errors.New("no foreground detected")

type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// Image is an encoded image travelling over the wire.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}
