package responder

import (
	"io"

	"github.com/valyala/fasthttp"
)

// ContentType is sent with every response.
const ContentType = "text/plain"

var body = []byte("Hello,world!\n")

// Handle answers every request with the same 200 text/plain response.
// Method, path, headers and body of the request are ignored.
func Handle(ctx *fasthttp.RequestCtx) {
	// The server releases an unread body stream without consuming it, and
	// the leftover bytes would be parsed as the next request on the
	// connection.
	if ctx.Request.IsBodyStream() {
		_, _ = io.Copy(io.Discard, ctx.RequestBodyStream())
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(ContentType)
	// body is never written to, so it can be shared by all responses
	ctx.Response.SetBodyRaw(body)
}
