package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPort is used when a command omits the port.
const DefaultPort uint16 = 1234

var ErrInvalidPort = errors.New("invalid port")

// ParsePort parses a decimal port. An empty argument yields DefaultPort.
func ParsePort(arg string) (uint16, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return DefaultPort, nil
	}
	n, err := strconv.ParseUint(arg, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w %q", ErrInvalidPort, arg)
	}
	return uint16(n), nil
}

// ParseEndpoint parses "host port", "host:port", "host" or "port".
// A missing host is "localhost"; a missing port is DefaultPort.
func ParseEndpoint(arg string) (string, uint16, error) {
	fields := strings.Fields(arg)
	switch len(fields) {
	case 0:
		return "localhost", DefaultPort, nil
	case 1:
		f := fields[0]
		if host, port, ok := strings.Cut(f, ":"); ok {
			p, err := ParsePort(port)
			if err != nil {
				return "", 0, err
			}
			if host == "" {
				host = "localhost"
			}
			return host, p, nil
		}
		if isNumber(f) {
			p, err := ParsePort(f)
			return "localhost", p, err
		}
		return f, DefaultPort, nil
	case 2:
		p, err := ParsePort(fields[1])
		if err != nil {
			return "", 0, err
		}
		return fields[0], p, nil
	}
	return "", 0, fmt.Errorf("expected host and port, got %q", arg)
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
