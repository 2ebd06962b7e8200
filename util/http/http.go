package http

import (
	"context"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam describes one outbound request.
//
// Body may be an io.Reader (sent as is), nil, or any value that is JSON encoded.
// Response may be nil, a *[]byte that receives the raw body, or a pointer that the
// JSON body is decoded into. ResponseHeader is filled with the response headers.
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	ResponseHeader http.Header
	Timeout        time.Duration
}
