package rembg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	nhttp "github.com/chaos-io/bgremover/util/http"
)

const (
	FieldName    = "image"
	EndpointPath = "/api/remove-bg"
)

// Client posts images to a remove-bg endpoint and returns the processed bytes.
// A non-2xx answer surfaces as *nhttp.StatusError.
type Client struct {
	baseURL string
	cli     nhttp.IClient
	logger  *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(cli nhttp.IClient) ClientOption {
	return func(c *Client) {
		c.cli = cli
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a client for the service rooted at baseURL.
// The default transport has no timeout: a call ends when the server answers or ctx is done.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cli == nil {
		c.cli = nhttp.NewHTTPClient(nhttp.WithTimeout(0))
	}
	return c
}

/*
	curl -X POST "$BASE_URL/api/remove-bg" -F "image=@my_image.png"
*/
func (c *Client) Submit(ctx context.Context, img Image) (Image, error) {
	body, contentType, err := encodeMultipart(img)
	if err != nil {
		return Image{}, err
	}

	var raw []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: c.baseURL + EndpointPath,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": contentType},
		Body:       body,
		Response:   &raw,
	}
	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		c.logger.DebugContext(ctx, "remove-bg request failed", "uri", reqParam.RequestURI, "error", err)
		return Image{}, err
	}

	ct := ""
	if reqParam.ResponseHeader != nil {
		ct = reqParam.ResponseHeader.Get("Content-Type")
	}
	if ct == "" {
		ct = mimetype.Detect(raw).String()
	}

	c.logger.DebugContext(ctx, "remove-bg request done", "name", img.Name, "content_type", ct, "bytes", len(raw))
	return Image{Name: img.Name, ContentType: ct, Data: raw}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes the single "image" part, keeping the caller's content type
// instead of the application/octet-stream CreateFormFile would use.
func encodeMultipart(img Image) (*bytes.Buffer, string, error) {
	name := img.Name
	if name == "" {
		name = FieldName
	}
	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldName, quoteEscaper.Replace(name)))
	h.Set("Content-Type", ct)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("copy form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
