package singleinstance

import (
	"os"
	"strconv"
)

const (
	residentHost = "127.0.0.1"
	// DefaultPort is used off Windows when SINGLEINSTANCE_PORT is unset.
	DefaultPort = 49560
	// PipeName is the default Windows endpoint.
	PipeName = `\\.\pipe\crosshair-overlay`
)

// Endpoint names where the resident listens: a named pipe on Windows, a
// loopback TCP port elsewhere. Zero fields take the defaults.
type Endpoint struct {
	Port     int
	PipeName string
}

// DefaultEndpoint honours SINGLEINSTANCE_PORT.
func DefaultEndpoint() Endpoint {
	port := DefaultPort
	if v := os.Getenv("SINGLEINSTANCE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}
	return EndpointForPort(port)
}

// EndpointForPort uses port when it lies in [1024, 65535] and DefaultPort
// otherwise.
func EndpointForPort(port int) Endpoint {
	if port < 1024 || port > 65535 {
		port = DefaultPort
	}
	return Endpoint{Port: port, PipeName: PipeName}
}

func (e Endpoint) pipe() string {
	if e.PipeName == "" {
		return PipeName
	}
	return e.PipeName
}

func (e Endpoint) tcpAddr() string {
	return residentHost + ":" + strconv.Itoa(e.Port)
}
