package singleinstance

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultPortStart = 49600
	defaultPortEnd   = 49650

	portStartEnv = "SINGLEINSTANCE_PORT_START"
	portEndEnv   = "SINGLEINSTANCE_PORT_END"
)

// PortRange is an inclusive range of loopback ports.
type PortRange struct {
	Start int
	End   int
}

func (r PortRange) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

// Ports returns the configured range from SINGLEINSTANCE_PORT_START and
// SINGLEINSTANCE_PORT_END, clamped to [1024, 65535].
func Ports() PortRange {
	r := PortRange{Start: envPort(portStartEnv, defaultPortStart), End: envPort(portEndEnv, defaultPortEnd)}
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	if r.Start < 1024 {
		r.Start = 1024
	}
	if r.End > 65535 {
		r.End = 65535
	}
	return r
}

func envPort(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}
