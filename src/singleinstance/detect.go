package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

const detectPerPort = 300 * time.Millisecond

// DetectResidentPort reports the first port in range whose listener answers PONG.
func DetectResidentPort(ctx context.Context) (int, bool) {
	return scan(ctx, detectPerPort)
}

func scan(ctx context.Context, perPort time.Duration) (int, bool) {
	r := Ports()
	for port := r.Start; port <= r.End && ctx.Err() == nil; port++ {
		if answersPing(ctx, residentAddr(port), clampToDeadline(ctx, perPort)) {
			return port, true
		}
	}
	return 0, false
}

func residentAddr(port int) string { return net.JoinHostPort(residentHost, strconv.Itoa(port)) }

// clampToDeadline shortens d so a probe never outlives ctx.
func clampToDeadline(ctx context.Context, d time.Duration) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return d
	}
	if left := time.Until(dl); left > 0 && left < d {
		return left
	}
	return d
}

func answersPing(ctx context.Context, addr string, timeout time.Duration) bool {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && line == pongResponse
}
