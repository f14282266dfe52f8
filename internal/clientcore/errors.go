package clientcore

import "errors"

var (
	ErrNotConnecting    = errors.New("clientcore: not awaiting a connection response")
	ErrConnectTimedOut  = errors.New("clientcore: connection attempt timed out")
	ErrConnectionDenied = errors.New("clientcore: server denied the connection")
	ErrSocketSend       = errors.New("clientcore: socket send failed")
	ErrSocketRecv       = errors.New("clientcore: socket receive failed")
	ErrDecode           = errors.New("clientcore: packet decode failed")
	ErrEncode           = errors.New("clientcore: packet encode failed")
)
