package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Deeksh1tha/Energy-Audit/pkg/registry"
)

// DefaultAddr is the loopback push endpoint.
const DefaultAddr = "127.0.0.1:5052"

// Listener is the push path: it accepts connections, reads one batch per
// connection and merges it into the registry. Closing the connection is the
// acknowledgement.
type Listener struct {
	addr        string
	reg         *registry.Registry
	readTimeout time.Duration
	log         *slog.Logger

	ln net.Listener
	wg sync.WaitGroup
}

// ListenerOptions configures NewListener.
type ListenerOptions struct {
	Addr        string        // default DefaultAddr
	ReadTimeout time.Duration // per connection; default 5s
	Logger      *slog.Logger
}

// NewListener returns a listener that registers pushed batches into reg.
// Call Listen before Serve.
func NewListener(reg *registry.Registry, o ListenerOptions) *Listener {
	l := &Listener{addr: o.Addr, reg: reg, readTimeout: o.ReadTimeout, log: o.Logger}
	if l.addr == "" {
		l.addr = DefaultAddr
	}
	if l.readTimeout <= 0 {
		l.readTimeout = 5 * time.Second
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	l.log = l.log.With("component", "ingest")
	return l
}

// Listen binds the socket. A bind failure is fatal for the collector.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("ingest: listen %s: %w", l.addr, err)
	}
	l.ln = ln
	l.log.Info("listening for pid updates", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve accepts connections until ctx is done, then closes the socket and
// waits for in-flight connections to finish.
func (l *Listener) Serve(ctx context.Context) error {
	if l.ln == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}

	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()
	defer l.wg.Wait()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.log.Warn("accept", "err", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handle(conn)
		}()
	}
}

// Close stops accepting. Serve returns once in-flight connections finish.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	_ = conn.SetReadDeadline(time.Now().Add(l.readTimeout))
	b, err := Decode(conn)
	if err != nil {
		l.log.Warn("dropping batch", "remote", remote, "err", err)
		return
	}

	added := 0
	for _, t := range b {
		if l.reg.Add(t) {
			added++
		}
	}
	l.log.Info("received pid updates", "remote", remote, "targets", len(b), "new", added)
}

// Push dials addr and sends b as one frame.
func Push(ctx context.Context, addr string, b Batch, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("ingest: push: %w", err)
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	return Encode(conn, b)
}
