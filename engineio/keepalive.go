package engineio

import "time"

// startKeepAlive arms the ping timer. Each tick either evicts the session
// for missing pongs or queues a ping and re-arms.
func (s *Session) startKeepAlive() {
	interval := s.server.config.PingInterval

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}
	s.pingTimer = time.AfterFunc(interval, s.keepAliveTick)
}

func (s *Session) keepAliveTick() {
	interval := s.server.config.PingInterval
	deadline := interval + s.server.config.PingTimeout

	s.mu.Lock()
	if s.dead || s.pingTimer == nil {
		s.mu.Unlock()
		return
	}

	if silent := time.Since(s.lastPongAt); silent > deadline {
		s.mu.Unlock()
		s.logger.Info("ping timeout", "silent", silent.Round(time.Millisecond))
		s.Close("ping timeout")
		return
	}

	s.queue = append(s.queue, &Packet{Type: PacketTypePing})
	s.notifyLocked()
	s.pingTimer.Reset(interval)
	s.mu.Unlock()
}
