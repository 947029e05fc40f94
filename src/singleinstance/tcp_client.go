package singleinstance

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"notify-shell/src/messages"
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TryDelegate(ctx context.Context, req messages.Request, updates <-chan messages.Update) (bool, []byte, error) {
	timeout := clampToDeadline(ctx, 2*time.Second)
	port, ok := scan(ctx, timeout)
	if !ok {
		return false, nil, nil
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", residentAddr(port))
	if err != nil {
		return false, nil, fmt.Errorf("resident on port %d vanished: %w", port, err)
	}
	body, err := exchange(ctx, conn, req, updates)
	return true, body, err
}

// exchange sends req, streams updates and reads the status reply.
func exchange(ctx context.Context, conn net.Conn, req messages.Request, updates <-chan messages.Update) ([]byte, error) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	if updates != nil {
		go streamUpdates(conn, updates, done)
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read status: %w", err)
	}
	rest, _ := io.ReadAll(br)
	switch status {
	case successStatus:
		return rest, nil
	case errorStatus:
		return nil, errors.New(string(rest))
	}
	return nil, fmt.Errorf("unexpected status %q", status)
}

func streamUpdates(conn net.Conn, updates <-chan messages.Update, done <-chan struct{}) {
	enc := json.NewEncoder(conn)
	for {
		select {
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				if tc, isTCP := conn.(*net.TCPConn); isTCP {
					_ = tc.CloseWrite()
				}
				return
			}
			if err := enc.Encode(u); err != nil {
				return
			}
		}
	}
}
