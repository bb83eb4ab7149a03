package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/frame"
)

var (
	ErrClosed       = errors.New("session: closed")
	ErrShortWrite   = errors.New("session: short write")
	ErrShortRead    = errors.New("session: short read")
	ErrNoReply      = errors.New("session: no reply")
	ErrTimeout      = errors.New("session: timed out")
	ErrBodyTooLarge = errors.New("session: body too large")
)

// Session owns one TCP connection to the command server.
type Session struct {
	conn net.Conn
	addr string
	cfg  Config
}

// Dial makes a single connection attempt.
func Dial(ctx context.Context, ep Endpoint, cfg Config) (*Session, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", ep.Address())
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn, addr: ep.Address(), cfg: cfg}, nil
}

func (s *Session) Addr() string {
	return s.addr
}

// Send writes b in full or fails.
func (s *Session) Send(b []byte, timeout time.Duration) error {
	if s.conn == nil {
		return ErrClosed
	}
	if err := s.conn.SetWriteDeadline(deadline(timeout)); err != nil {
		return err
	}
	n, err := s.conn.Write(b)
	if n < len(b) {
		if err == nil {
			err = io.ErrShortWrite
		}
		if isTimeout(err) {
			return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrTimeout, n, len(b), err)
		}
		return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrShortWrite, n, len(b), err)
	}
	return err
}

// ReceiveHeader reads and decodes exactly one frame header.
// Nothing received before EOF or the deadline is ErrNoReply; a partial
// header is ErrShortRead or ErrTimeout.
func (s *Session) ReceiveHeader(timeout time.Duration) (frame.Header, error) {
	buf, got, err := s.readExactly(frame.HeaderSize, timeout)
	if err != nil {
		if got == 0 {
			return frame.Header{}, fmt.Errorf("%w: %w", ErrNoReply, err)
		}
		return frame.Header{}, err
	}
	return frame.DecodeHeader(buf)
}

// ReceiveBody reads exactly length bytes. A partial body is never returned.
func (s *Session) ReceiveBody(length uint64, timeout time.Duration) ([]byte, error) {
	if length > s.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, length, s.cfg.MaxBodyBytes)
	}
	buf, _, err := s.readExactly(int(length), timeout)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Skip discards length bytes so the stream stays aligned on the next frame.
func (s *Session) Skip(length uint64, timeout time.Duration) error {
	if s.conn == nil {
		return ErrClosed
	}
	if length > s.cfg.MaxBodyBytes {
		return fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, length, s.cfg.MaxBodyBytes)
	}
	if err := s.conn.SetReadDeadline(deadline(timeout)); err != nil {
		return err
	}
	n, err := io.CopyN(io.Discard, s.conn, int64(length))
	if err != nil {
		return readErr(int(n), int(length), err)
	}
	return nil
}

// Close releases the socket. Safe to call more than once.
func (s *Session) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) readExactly(n int, timeout time.Duration) ([]byte, int, error) {
	if s.conn == nil {
		return nil, 0, ErrClosed
	}
	if err := s.conn.SetReadDeadline(deadline(timeout)); err != nil {
		return nil, 0, err
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(s.conn, buf)
	if err != nil {
		return nil, got, readErr(got, n, err)
	}
	return buf, got, nil
}

func readErr(got, want int, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w after %d of %d bytes: %w", ErrTimeout, got, want, err)
	}
	return fmt.Errorf("%w: %d of %d bytes: %w", ErrShortRead, got, want, err)
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
