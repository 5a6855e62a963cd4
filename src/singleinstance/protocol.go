// Package singleinstance lets one resident process own the overlay and
// accept control commands from short-lived CLI invocations over a
// line-based protocol.
//
// A client sends one line, "<COMMAND>[ <arg>]\n", and the resident answers
// "OK <text>\n" or "ERR <text>\n". PING is answered with PONG before the
// connection ever reaches the application.
package singleinstance

import (
	"errors"
	"fmt"
	"strings"
)

// Command names understood by the resident.
const (
	CmdPing   = "PING"
	CmdToggle = "TOGGLE"
	CmdStart  = "START"
	CmdStop   = "STOP"
	CmdStatus = "STATUS"
	CmdCycle  = "CYCLE"
	CmdReload = "RELOAD"
	CmdSet    = "SET"
)

var commands = map[string]bool{
	CmdPing: true, CmdToggle: true, CmdStart: true, CmdStop: true,
	CmdStatus: true, CmdCycle: true, CmdReload: true, CmdSet: true,
}

const (
	pongResponse = "PONG"
	okPrefix     = "OK"
	errPrefix    = "ERR"
)

// ErrNoResident is returned by Client.Send when nothing answers on the
// endpoint.
var ErrNoResident = errors.New("no resident instance is running")

// Request is one parsed command line.
type Request struct {
	Command string
	Arg     string
}

func (r Request) String() string {
	if r.Arg == "" {
		return r.Command
	}
	return r.Command + " " + r.Arg
}

// ParseRequest splits a command line. Command names are case-insensitive.
func ParseRequest(line string) (Request, error) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	cmd = strings.ToUpper(cmd)
	if !commands[cmd] {
		return Request{}, fmt.Errorf("unknown command %q", cmd)
	}
	req := Request{Command: cmd, Arg: strings.TrimSpace(arg)}
	if cmd == CmdSet && req.Arg == "" {
		return Request{}, errors.New("SET needs key=value")
	}
	return req, nil
}

// RemoteError is an ERR reply from the resident.
type RemoteError struct{ Msg string }

func (e *RemoteError) Error() string { return e.Msg }

func parseReply(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	status, text, _ := strings.Cut(line, " ")
	switch status {
	case okPrefix:
		return text, nil
	case errPrefix:
		return "", &RemoteError{Msg: text}
	default:
		return "", fmt.Errorf("malformed reply %q", line)
	}
}

// oneLine keeps replies on a single protocol line.
func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}
