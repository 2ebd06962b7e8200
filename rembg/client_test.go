package rembg

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	nhttp "github.com/chaos-io/bgremover/util/http"
	"github.com/chaos-io/bgremover/util/http/mocks"
)

func TestClient_Submit(t *testing.T) {
	t.Parallel()

	input := []byte("jpeg-bytes")
	output := []byte("png-bytes")
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, EndpointPath, r.URL.Path)

		file, header, err := r.FormFile(FieldName)
		require.NoError(t, err)
		defer func() {
			_ = file.Close()
		}()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		assert.Equal(t, input, data)
		assert.Equal(t, "cat.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		assert.Len(t, r.MultipartForm.File, 1)

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(output)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	got, err := client.Submit(context.Background(), Image{Name: "cat.jpg", ContentType: "image/jpeg", Data: input})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, output, got.Data)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, "cat.jpg", got.Name)
}

func TestClient_Submit_StatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Submit(context.Background(), Image{Name: "a.png", ContentType: "image/png", Data: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, nhttp.StatusCode(err))
}

func TestClient_Submit_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).Submit(context.Background(), Image{Name: "a.png", ContentType: "image/png", Data: []byte("x")})
	require.Error(t, err)
	assert.Zero(t, nhttp.StatusCode(err))
}

func TestClient_Submit_Mock(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cli := mocks.NewMockIClient(ctrl)
	boom := errors.New("boom")

	cli.EXPECT().
		DoHTTPRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *nhttp.RequestParam) error {
			assert.Equal(t, "http://rembg.local/api/remove-bg", p.RequestURI)
			assert.Equal(t, http.MethodPost, p.Method)
			assert.Contains(t, p.Header["Content-Type"], "multipart/form-data; boundary=")
			return boom
		}).
		Times(1)

	_, err := NewClient("http://rembg.local", WithHTTPClient(cli)).
		Submit(context.Background(), Image{Name: "a.webp", ContentType: "image/webp", Data: []byte("x")})
	assert.ErrorIs(t, err, boom)
}

func TestClient_Submit_SniffsMissingContentType(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cli := mocks.NewMockIClient(ctrl)
	pngMagic := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	cli.EXPECT().
		DoHTTPRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *nhttp.RequestParam) error {
			raw, ok := p.Response.(*[]byte)
			require.True(t, ok)
			*raw = pngMagic
			return nil
		})

	got, err := NewClient("http://rembg.local", WithHTTPClient(cli)).
		Submit(context.Background(), Image{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.ContentType)
}
