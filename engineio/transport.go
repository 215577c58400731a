package engineio

import "net/http"

// transport is the delivery strategy selected once per server: a held
// HTTP response for polling, a writer goroutine for websocket.
type transport interface {
	// handshake opens a session for a request that carries no sid.
	handshake(w http.ResponseWriter, r *http.Request)

	// serve handles a request for an existing session.
	serve(session *Session, w http.ResponseWriter, r *http.Request)
}
