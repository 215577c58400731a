package engineio

import (
	"errors"
	"io"
	"net/http"
	"time"
)

// pollingTransport serves the long-polling variant: GET delivers queued
// packets through a held response, POST carries client packets.
type pollingTransport struct {
	server *Server
}

func (t pollingTransport) handshake(w http.ResponseWriter, r *http.Request) {
	session, err := t.server.open(TransportPolling)
	if err != nil {
		t.server.logger.Error("open session", "err", err)
		http.Error(w, "could not open session", http.StatusInternalServerError)
		return
	}

	// The open packet is written directly; the client has no session to
	// poll against yet.
	data, err := EncodeHandshake(session.ID(), t.server.config)
	if err != nil {
		session.Close("handshake error")
		http.Error(w, "could not encode handshake", http.StatusInternalServerError)
		return
	}

	writeText(w, http.StatusOK, string(data))
}

func (t pollingTransport) serve(session *Session, w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		session.servePoll(w, r)
	case http.MethodPost:
		session.serveIngest(w, r)
	default:
		t.server.writeError(w, ErrBadRequest)
	}
}

// servePoll holds the request until packets are flushed to it, the hold
// timer fires or the client goes away.
func (s *Session) servePoll(w http.ResponseWriter, r *http.Request) {
	p := &pollRequest{result: make(chan []*Packet, 1)}
	if !s.hold(p) {
		s.server.writeError(w, ErrUnknownSession)
		return
	}

	s.server.metrics.pollStarted()
	defer s.server.metrics.pollFinished()

	select {
	case packets := <-p.result:
		s.writePayload(w, packets)
	case <-r.Context().Done():
		s.abandon(p)
	}
}

// hold makes p the session's held poll. A previously held poll is
// resolved with a noop first so that only one response is ever pending.
func (s *Session) hold(p *pollRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		return false
	}

	if s.poll != nil {
		s.logger.Debug("resolving stale poll")
		s.flushLocked()
	}

	s.poll = p
	if len(s.queue) > 0 {
		s.flushLocked()
		return true
	}

	s.holdTimer = time.AfterFunc(s.server.config.PollTimeout, func() {
		s.expire(p)
	})
	return true
}

// expire resolves p with a noop if it is still the held poll.
func (s *Session) expire(p *pollRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poll == p {
		s.flushLocked()
	}
}

// abandon releases p after its client disconnected. Packets a racing
// flush already handed to p go back to the head of the queue, unless a
// later poll has been given packets since. Those packets are dropped.
func (s *Session) abandon(p *pollRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poll == p {
		s.poll = nil
		if s.holdTimer != nil {
			s.holdTimer.Stop()
			s.holdTimer = nil
		}
		return
	}

	select {
	case packets := <-p.result:
		if p.flushedAt != s.flushes {
			s.logger.Warn("dropping packets of abandoned poll", "count", len(packets))
			return
		}
		s.requeueLocked(packets)
	default:
	}
}

func (s *Session) requeueLocked(packets []*Packet) {
	if s.dead {
		return
	}

	kept := make([]*Packet, 0, len(packets))
	for _, packet := range packets {
		if packet.Type != PacketTypeNoop {
			kept = append(kept, packet)
		}
	}
	if len(kept) == 0 {
		return
	}

	s.queue = append(kept, s.queue...)
	if s.poll != nil {
		s.flushLocked()
	}
}

func (s *Session) writePayload(w http.ResponseWriter, packets []*Packet) {
	payload, err := EncodePayload(packets)
	if err != nil {
		// Send rejects such packets, so this is a programming error.
		s.logger.Error("encode payload", "err", err)
		payload = string((&Packet{Type: PacketTypeNoop}).Encode())
	}

	if err := writeText(w, http.StatusOK, payload); err != nil {
		s.logger.Debug("poll write failed", "err", err)
		return
	}
	s.server.metrics.sent(len(packets))
}

// serveIngest reads the client payload and processes its packets in order.
// Malformed packets are skipped; an oversized body closes the session.
func (s *Session) serveIngest(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.server.config.MaxPayload)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.server.metrics.payloadRejected()
			s.logger.Warn("payload too large", "limit", tooLarge.Limit)
			w.Header().Set("Connection", "close")
			s.server.writeError(w, ErrPayloadTooLarge)
			s.Close("payload too large")
			return
		}
		s.server.writeError(w, ErrBadRequest)
		return
	}

	for _, raw := range DecodePayload(string(data)) {
		packet, err := DecodePacket([]byte(raw))
		if err != nil {
			s.logger.Debug("skipping packet", "err", err)
			continue
		}
		if !s.handlePacket(packet) {
			break
		}
	}

	writeText(w, http.StatusOK, "ok")
}

func writeText(w http.ResponseWriter, status int, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	return err
}
