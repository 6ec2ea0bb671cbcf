package responder

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
)

func startResponder(t *testing.T) *Responder {
	t.Helper()
	r := New(Config{Host: "127.0.0.1", Port: 0, Backlog: DefaultBacklog})
	if err := r.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = r.Serve()
	}()
	t.Cleanup(func() {
		_ = r.Close()
	})
	return r
}

func checkResponse(t *testing.T, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", got)
	}
	if got := resp.Header.Get("Content-Length"); got != "13" {
		t.Errorf("Content-Length = %q, want 13", got)
	}
	if got := resp.Header.Get("Server"); got != "" {
		t.Errorf("unexpected Server header %q", got)
	}
	if !bytes.Equal(data, body) {
		t.Errorf("body = %q, want %q", data, body)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Host != "0.0.0.0" || cfg.Port != 1080 || cfg.Backlog != 8192 {
		t.Fatalf("unexpected default config %+v", cfg)
	}
	if cfg.Addr() != "0.0.0.0:1080" {
		t.Fatalf("Addr() = %q", cfg.Addr())
	}
	if got := New(cfg).URL(); got != "http://0.0.0.0:1080/" {
		t.Fatalf("URL() = %q", got)
	}
}

func TestHandleIgnoresRequest(t *testing.T) {
	tests := []struct {
		method string
		uri    string
		header map[string]string
		body   string
	}{
		{method: "GET", uri: "/"},
		{method: "POST", uri: "/anything", body: "some=form&data=1"},
		{method: "PUT", uri: "/a/b/c?x=1", header: map[string]string{"Content-Type": "application/json"}, body: `{"k":"v"}`},
		{method: "DELETE", uri: "/nope"},
		{method: "PATCH", uri: "/", header: map[string]string{"Accept": "text/html"}},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.uri, func(t *testing.T) {
			var ctx fasthttp.RequestCtx
			ctx.Request.Header.SetMethod(tt.method)
			ctx.Request.SetRequestURI(tt.uri)
			for k, v := range tt.header {
				ctx.Request.Header.Set(k, v)
			}
			ctx.Request.SetBodyString(tt.body)

			Handle(&ctx)

			if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
				t.Errorf("status = %d, want 200", got)
			}
			if got := string(ctx.Response.Header.ContentType()); got != ContentType {
				t.Errorf("content type = %q", got)
			}
			if got := string(ctx.Response.Body()); got != "Hello,world!\n" {
				t.Errorf("body = %q", got)
			}
		})
	}
}

func TestHandleDrainsBodyStream(t *testing.T) {
	src := strings.NewReader(strings.Repeat("b", 64*1024))
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("POST")
	ctx.Request.SetBodyStream(src, src.Len())

	Handle(&ctx)

	if src.Len() != 0 {
		t.Fatalf("%d body bytes left unread", src.Len())
	}
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Errorf("status = %d, want 200", got)
	}
	if !bytes.Equal(ctx.Response.Body(), body) {
		t.Errorf("body = %q", ctx.Response.Body())
	}
}

func TestResponderGetAndPost(t *testing.T) {
	r := startResponder(t)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(r.URL())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	checkResponse(t, resp)

	resp, err = client.Post(r.URL()+"anything", "application/octet-stream", strings.NewReader("arbitrary body"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	checkResponse(t, resp)
}

func TestResponderRawExchange(t *testing.T) {
	r := startResponder(t)

	bigBody := strings.Repeat("x", 5_000_000)
	tests := []struct {
		name      string
		request   string
		responses int
	}{
		{
			name:      "pipelined keep-alive",
			request:   "GET / HTTP/1.1\r\nHost: test\r\n\r\n" + "POST /anything HTTP/1.1\r\nHost: test\r\nContent-Length: 3\r\n\r\nabc",
			responses: 2,
		},
		{
			name:      "8KB header",
			request:   "GET / HTTP/1.1\r\nHost: test\r\nCookie: " + strings.Repeat("c", 8000) + "\r\n\r\n",
			responses: 1,
		},
		{
			// the second request only parses if the large body was consumed
			name: "5MB body then keep-alive",
			request: "POST /upload HTTP/1.1\r\nHost: test\r\nContent-Length: " + strconv.Itoa(len(bigBody)) + "\r\n\r\n" + bigBody +
				"GET / HTTP/1.1\r\nHost: test\r\n\r\n",
			responses: 2,
		},
		{
			name:      "chunked body",
			request:   "POST / HTTP/1.1\r\nHost: test\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n",
			responses: 1,
		},
		{
			name:      "HTTP/1.0",
			request:   "GET /old HTTP/1.0\r\n\r\n",
			responses: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := net.DialTimeout("tcp", r.Addr().String(), 5*time.Second)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

			// written concurrently so a large request cannot block the reads
			written := make(chan error, 1)
			go func() {
				_, err := io.WriteString(conn, tt.request)
				written <- err
			}()

			br := bufio.NewReader(conn)
			for i := 0; i < tt.responses; i++ {
				resp, err := http.ReadResponse(br, nil)
				if err != nil {
					t.Fatalf("response %d: %v", i, err)
				}
				if resp.Proto != "HTTP/1.1" {
					t.Errorf("proto = %q", resp.Proto)
				}
				if resp.ContentLength != 13 {
					t.Errorf("content length = %d", resp.ContentLength)
				}
				checkResponse(t, resp)
			}
			if err := <-written; err != nil {
				t.Fatalf("write: %v", err)
			}
		})
	}
}

func TestResponderConcurrentRequests(t *testing.T) {
	r := startResponder(t)
	client := &http.Client{Timeout: 10 * time.Second}

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(fmt.Sprintf("%spath/%d", r.URL(), i))
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				errs <- err
				return
			}
			if resp.StatusCode != http.StatusOK || !bytes.Equal(data, body) {
				errs <- fmt.Errorf("request %d: status %d body %q", i, resp.StatusCode, data)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestListenFailsWhenPortInUse(t *testing.T) {
	first := startResponder(t)
	port := first.Addr().(*net.TCPAddr).Port

	second := New(Config{Host: "127.0.0.1", Port: port, Backlog: DefaultBacklog})
	err := second.Listen()
	if err == nil {
		_ = second.Close()
		t.Fatal("second Listen on the same port succeeded")
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("127.0.0.1:%d", port)) {
		t.Errorf("error does not name the address: %v", err)
	}
}

func TestListenTwice(t *testing.T) {
	r := startResponder(t)
	if err := r.Listen(); err == nil {
		t.Fatal("expected error on second Listen")
	}
}

func TestServeBeforeListen(t *testing.T) {
	r := New(DefaultConfig())
	if err := r.Serve(); err != ErrNotListening {
		t.Fatalf("Serve() = %v, want ErrNotListening", err)
	}
	if err := r.Close(); err != ErrNotListening {
		t.Fatalf("Close() = %v, want ErrNotListening", err)
	}
	if r.Addr() != nil {
		t.Fatal("Addr() should be nil before Listen")
	}
}
