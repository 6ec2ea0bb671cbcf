// Package responder serves a fixed plain-text response to every HTTP request.
// It is meant to be pointed at by load generators, not used as an application.
package responder

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/valyala/fasthttp"
	"github.com/valyala/tcplisten"
)

const (
	DefaultHost    = "0.0.0.0"
	DefaultPort    = 1080
	DefaultBacklog = 8192

	MaxHeaderBytes = 1 << 20
)

var ErrNotListening = errors.New("responder is not listening")

type Config struct {
	Host string
	Port int
	// Backlog is handed to listen(2) as is.
	Backlog int
}

func DefaultConfig() Config {
	return Config{
		Host:    DefaultHost,
		Port:    DefaultPort,
		Backlog: DefaultBacklog,
	}
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Responder struct {
	cfg    Config
	ln     net.Listener
	server *fasthttp.Server
}

func New(cfg Config) *Responder {
	return &Responder{
		cfg: cfg,
		server: &fasthttp.Server{
			Handler:               Handle,
			NoDefaultServerHeader: true,
			NoDefaultContentType:  true,
			// request headers up to 1 MiB, like net/http's MaxHeaderBytes
			ReadBufferSize: MaxHeaderBytes,
			// bodies are never buffered, so no size limit applies to them
			StreamRequestBody: true,
		},
	}
}

// Listen binds the listening socket. There is no retry and no fallback port:
// the caller is expected to treat the error as fatal.
func (r *Responder) Listen() error {
	if r.ln != nil {
		return fmt.Errorf("already listening on %s", r.ln.Addr())
	}
	lc := &tcplisten.Config{Backlog: r.cfg.Backlog}
	ln, err := lc.NewListener("tcp4", r.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", r.cfg.Addr(), err)
	}
	r.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen succeeded.
func (r *Responder) Addr() net.Addr {
	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// URL is the address announced at startup, e.g. http://0.0.0.0:1080/.
func (r *Responder) URL() string {
	addr := r.cfg.Addr()
	if r.ln != nil {
		addr = r.ln.Addr().String()
	}
	return "http://" + addr + "/"
}

// Serve accepts connections until the listener is closed.
func (r *Responder) Serve() error {
	if r.ln == nil {
		return ErrNotListening
	}
	return r.server.Serve(r.ln)
}

// Close closes the listener. Connections already accepted are left to the
// server.
func (r *Responder) Close() error {
	if r.ln == nil {
		return ErrNotListening
	}
	return r.ln.Close()
}
