package engineio

import (
	"errors"
	"net/http"
)

var (
	ErrSessionClosed        = errors.New("session closed")
	ErrUnknownSession       = errors.New("session id unknown")
	ErrUnsupportedTransport = errors.New("transport unknown")
	ErrUnsupportedProtocol  = errors.New("unsupported protocol version")
	ErrBadHandshakeMethod   = errors.New("bad handshake method")
	ErrBadRequest           = errors.New("bad request")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrMalformedPacket      = errors.New("malformed packet")
	ErrSeparatorInPacket    = errors.New("packet contains record separator")
	ErrSessionIDCollision   = errors.New("session id collision")
)

// Engine.IO error codes returned in the JSON body of rejected requests.
const (
	codeTransportUnknown    = 0
	codeUnknownSID          = 1
	codeBadHandshakeMethod  = 2
	codeBadRequest          = 3
	codeForbidden           = 4
	codeUnsupportedProtocol = 5
)

type requestError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	status  int
}

// classify maps a request error onto the HTTP status and Engine.IO error
// code sent back to the client.
func classify(err error) requestError {
	switch {
	case errors.Is(err, ErrUnsupportedTransport):
		return requestError{Code: codeTransportUnknown, Message: "Transport unknown", status: http.StatusBadRequest}
	case errors.Is(err, ErrUnknownSession):
		return requestError{Code: codeUnknownSID, Message: "Session ID unknown", status: http.StatusBadRequest}
	case errors.Is(err, ErrBadHandshakeMethod):
		return requestError{Code: codeBadHandshakeMethod, Message: "Bad handshake method", status: http.StatusBadRequest}
	case errors.Is(err, ErrUnsupportedProtocol):
		return requestError{Code: codeUnsupportedProtocol, Message: "Unsupported protocol version", status: http.StatusBadRequest}
	case errors.Is(err, ErrPayloadTooLarge):
		return requestError{Code: codeBadRequest, Message: "Payload too large", status: http.StatusRequestEntityTooLarge}
	default:
		return requestError{Code: codeBadRequest, Message: "Bad request", status: http.StatusBadRequest}
	}
}
