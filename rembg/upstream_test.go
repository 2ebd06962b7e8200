package rembg

import (
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamRemBG_Remove(t *testing.T) {
	t.Parallel()

	local := NewColorKeyRemBG()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile(FieldName)
		require.NoError(t, err)
		defer func() {
			_ = file.Close()
		}()

		img, _, err := image.Decode(file)
		require.NoError(t, err)
		out, err := local.Remove(r.Context(), img)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "image/png")
		require.NoError(t, png.Encode(w, out))
	}))
	defer server.Close()

	src := square(20, 20, white, red, image.Rect(7, 7, 13, 13))
	out, err := NewUpstreamRemBG(NewClient(server.URL)).Remove(context.Background(), src)
	require.NoError(t, err)

	_, _, _, a := out.At(0, 0).RGBA()
	assert.Zero(t, a)
	_, _, _, a = out.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}

func TestUpstreamRemBG_BadBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer server.Close()

	_, err := NewUpstreamRemBG(NewClient(server.URL)).Remove(context.Background(), square(4, 4, white, red, image.Rect(1, 1, 3, 3)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode upstream image")
}
