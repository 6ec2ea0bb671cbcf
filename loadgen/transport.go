package loadgen

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	TransportHTTP     = "http"
	TransportFastHTTP = "fasthttp"
)

// Transport issues one request and records its outcome in the sample.
type Transport interface {
	Issue(*Sample)
	URL() string
}

func NewTransport(kind, url string) (Transport, error) {
	switch kind {
	case TransportHTTP, "":
		return NewHTTPTransport(url), nil
	case TransportFastHTTP:
		return NewFastHTTPTransport(url), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want %q or %q)", kind, TransportHTTP, TransportFastHTTP)
	}
}

// HTTPTransport is an HTTP/1.1 client on net/http.
type HTTPTransport struct {
	url    string
	client *http.Client
}

func NewHTTPTransport(url string) *HTTPTransport {
	tr := &http.Transport{
		IdleConnTimeout: 60 * time.Minute,
	}
	return &HTTPTransport{
		url:    url,
		client: &http.Client{Transport: tr, Timeout: 60 * time.Minute},
	}
}

func (t *HTTPTransport) Issue(sample *Sample) {
	resp, err := t.client.Get(t.url)
	if err != nil {
		sample.StatusCode = 0
		sample.ErrStr = err.Error()
		return
	}
	// drain so the connection goes back to the pool
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	sample.StatusCode = resp.StatusCode
	sample.ErrStr = ""
}

func (t *HTTPTransport) URL() string {
	return t.url
}

// FastHTTPTransport is an HTTP/1.1 client on fasthttp.
type FastHTTPTransport struct {
	url    string
	client *fasthttp.Client
}

func NewFastHTTPTransport(url string) *FastHTTPTransport {
	return &FastHTTPTransport{
		url: url,
		client: &fasthttp.Client{
			MaxIdleConnDuration: 60 * time.Minute,
			ReadTimeout:         60 * time.Minute,
			WriteTimeout:        60 * time.Minute,
		},
	}
}

func (t *FastHTTPTransport) Issue(sample *Sample) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(t.url)
	if err := t.client.Do(req, resp); err != nil {
		sample.StatusCode = 0
		sample.ErrStr = err.Error()
		return
	}
	sample.StatusCode = resp.StatusCode()
	sample.ErrStr = ""
}

func (t *FastHTTPTransport) URL() string {
	return t.url
}
