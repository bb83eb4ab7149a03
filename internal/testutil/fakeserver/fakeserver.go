// Package fakeserver runs an in-process stand-in for the Matlab command server.
package fakeserver

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/frame"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
)

// Reply scripts what the server does after reading one command.
type Reply struct {
	Text  string
	Raw   []byte
	Delay time.Duration
	// Hangup closes the connection without writing anything.
	Hangup bool
}

type Handler func(cmd string) Reply

// Static answers every command with text.
func Static(text string) Handler {
	return func(string) Reply { return Reply{Text: text} }
}

type Server struct {
	ln      net.Listener
	handler Handler

	mu       sync.Mutex
	commands []string
	closed   bool

	wg sync.WaitGroup
}

// New returns a server that is not listening yet; see ListenAt.
func New(h Handler) *Server {
	return &Server{handler: h}
}

// Start listens on an ephemeral loopback port.
func Start(t testing.TB, h Handler) *Server {
	t.Helper()
	return StartAt(t, session.Endpoint{Host: "127.0.0.1", Port: 0}, h)
}

// StartAt listens on ep, which is usually a port reserved with ReservePort.
func StartAt(t testing.TB, ep session.Endpoint, h Handler) *Server {
	t.Helper()
	s := New(h)
	if err := s.ListenAt(ep); err != nil {
		t.Fatalf("fakeserver listen %s: %v", ep.Address(), err)
	}
	t.Cleanup(s.Close)
	return s
}

// ListenAt binds ep and starts accepting. It may be called from any goroutine.
func (s *Server) ListenAt(ep session.Endpoint) error {
	ln, err := net.Listen("tcp", ep.Address())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = ln.Close()
		return net.ErrClosed
	}
	s.ln = ln
	s.wg.Add(1)
	go s.serve(ln)
	return nil
}

// ReservePort returns a loopback endpoint nothing is listening on.
func ReservePort(t testing.TB) session.Endpoint {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	ep, err := session.ParseEndpoint(ln.Addr().String())
	if err != nil {
		t.Fatalf("parse reserved addr: %v", err)
	}
	_ = ln.Close()
	return ep
}

func (s *Server) Endpoint() session.Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return session.Endpoint{}
	}
	ep, _ := session.ParseEndpoint(s.ln.Addr().String())
	return ep
}

// Commands returns every command received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

func (s *Server) Close() {
	s.mu.Lock()
	ln := s.ln
	s.closed = true
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	s.wg.Wait()
}

func (s *Server) serve(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	hb := make([]byte, frame.HeaderSize)
	if _, err := io.ReadFull(conn, hb); err != nil {
		return
	}
	h, err := frame.DecodeHeader(hb)
	if err != nil {
		return
	}
	body := make([]byte, h.BodySize)
	if _, err := io.ReadFull(conn, body); err != nil {
		return
	}
	cmd, err := frame.DecodeString(h, body)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()

	if s.handler == nil {
		return
	}
	reply := s.handler(cmd)
	if reply.Delay > 0 {
		time.Sleep(reply.Delay)
	}
	if reply.Hangup {
		return
	}
	out := reply.Raw
	if out == nil {
		out, err = frame.Encode("MATLAB", reply.Text)
		if err != nil {
			return
		}
	}
	_, _ = conn.Write(out)
}

// TypedFrame builds a frame whose header declares typ over an arbitrary body.
func TypedFrame(typ string, body []byte) []byte {
	h := frame.Header{
		Version:    frame.Version,
		Type:       typ,
		DeviceName: "MATLAB",
		BodySize:   uint64(len(body)),
		CRC:        frame.Checksum(body),
	}
	return append(frame.EncodeHeader(h), body...)
}

// TruncatedStringFrame declares a STRING body of the full length but only carries keep bytes of it.
func TruncatedStringFrame(text string, keep int) []byte {
	body := make([]byte, 4+len(text))
	binary.BigEndian.PutUint16(body[0:2], frame.EncodingUSASCII)
	binary.BigEndian.PutUint16(body[2:4], uint16(len(text)))
	copy(body[4:], text)
	full := TypedFrame(frame.TypeString, body)
	return full[:frame.HeaderSize+keep]
}
