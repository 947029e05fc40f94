package singleinstance

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"notify-shell/src/messages"
)

const (
	residentHost    = "127.0.0.1"
	pingRequest     = "PING\n"
	pongResponse    = "PONG\n"
	successStatus   = "SUCCESS\n"
	errorStatus     = "ERROR\n"
	handshakeWindow = 3 * time.Second
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	mu        sync.Mutex
	lis       net.Listener
	incoming  chan *tcpConn
	port      int
	closeOnce sync.Once
	closed    chan struct{}
}

func newTcpServer() Server {
	return &tcpServer{incoming: make(chan *tcpConn, 8), closed: make(chan struct{})}
}

// Start binds ONLY the start port of the configured range. If occupied, fail.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	addr := residentAddr(Ports().Start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("singleinstance: failed to bind %s: %v", addr, err)
		return err
	}
	s.lis = lis
	s.port = lis.Addr().(*net.TCPAddr).Port
	log.Printf("singleinstance: listening on %s", addr)
	go s.acceptLoop(ctx, lis)
	return nil
}

// Port returns the bound port (0 if not started).
func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		tc, ok := s.handshake(c)
		if !ok {
			continue
		}
		select {
		case s.incoming <- tc:
		case <-s.closed:
			_ = c.Close()
			return
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

// handshake answers PING probes and parses the request line of real clients.
func (s *tcpServer) handshake(c net.Conn) (*tcpConn, bool) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(handshakeWindow))
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	line, err := br.ReadString('\n')
	if err != nil {
		_ = c.Close()
		return nil, false
	}
	if line == pingRequest {
		log.Printf("singleinstance: PING from %s -> PONG", remote)
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		_ = c.Close()
		return nil, false
	}

	tc := &tcpConn{c: c, w: bw, br: br}
	var req messages.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		log.Printf("singleinstance: bad request from %s: %v", remote, err)
		_ = tc.RespondError(fmt.Sprintf("malformed request: %v", err))
		_ = c.Close()
		return nil, false
	}
	if err := req.Validate(); err != nil {
		_ = tc.RespondError(err.Error())
		_ = c.Close()
		return nil, false
	}
	_ = c.SetDeadline(time.Time{})
	tc.r = req
	log.Printf("singleinstance: request from %s op=%s", remote, req.Op)
	return tc, true
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, net.ErrClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		if s.lis != nil {
			_ = s.lis.Close()
		}
		s.mu.Unlock()
	})
	return nil
}

type tcpConn struct {
	c  net.Conn
	r  messages.Request
	w  *bufio.Writer
	br *bufio.Reader
}

func (tc *tcpConn) Request() messages.Request { return tc.r }

func (tc *tcpConn) NextUpdate(ctx context.Context) (messages.Update, error) {
	stop := context.AfterFunc(ctx, func() { _ = tc.c.SetReadDeadline(time.Now()) })
	defer stop()
	line, err := tc.br.ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return messages.Update{}, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) || (err == io.EOF && strings.TrimSpace(line) == "") {
			return messages.Update{}, io.EOF
		}
		if err != io.EOF {
			return messages.Update{}, err
		}
	}
	var u messages.Update
	if err := json.Unmarshal([]byte(line), &u); err != nil {
		return messages.Update{}, fmt.Errorf("malformed update: %w", err)
	}
	return u, nil
}

func (tc *tcpConn) RespondSuccess(body []byte) error {
	if _, err := tc.w.WriteString(successStatus); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := tc.w.Write(body); err != nil {
			return err
		}
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorStatus + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
