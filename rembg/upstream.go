package rembg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"
)

// UpstreamRemBG delegates removal to another remove-bg service.
type UpstreamRemBG struct {
	client *Client
}

func NewUpstreamRemBG(client *Client) *UpstreamRemBG {
	return &UpstreamRemBG{client: client}
}

func (u *UpstreamRemBG) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	out, err := u.client.Submit(ctx, Image{Name: "image.png", ContentType: "image/png", Data: buf.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("upstream remove: %w", err)
	}

	result, _, err := image.Decode(bytes.NewReader(out.Data))
	if err != nil {
		return nil, fmt.Errorf("decode upstream image: %w", err)
	}
	return result, nil
}
