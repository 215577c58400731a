// Package socketrelay pushes server events to Socket.IO v4 clients over the
// Engine.IO long-polling transport, or over websocket when configured.
//
// It implements the part of the protocol needed for one-directional event
// delivery: the Engine.IO handshake, held polling requests, client packet
// ingestion, the ping/pong keep-alive and the Socket.IO connect handshake
// on the default namespace. Binary packets, transport upgrades, custom
// namespaces and acknowledgements are not supported.
//
// # Quick Start
//
//	server, err := socketrelay.NewServer(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server.OnConnect(func(socket *socketrelay.Socket) {
//	    log.Printf("Client connected: %s", socket.ID())
//	})
//
//	http.Handle("/socket.io/", server)
//	go http.ListenAndServe(":3000", nil)
//
//	server.Broadcast(ctx, "warningTimeChanged", map[string]any{"time": "2024-04-03 07:58:09"})
//
// # Broadcasting
//
// Broadcast reaches every session whose client sent the Socket.IO connect
// packet. Sessions that only finished the Engine.IO handshake are skipped.
// Broadcast does not wait for clients: the event is queued on each session
// and flushed to that session's next (or currently held) poll.
//
// Several processes can share broadcasts through Redis:
//
//	adapter, err := socketrelay.NewRedisAdapter(ctx, server.Namespace(), rdb, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server.Namespace().SetAdapter(adapter)
//
// # Configuration
//
// Customize server behavior with Config:
//
//	config := &socketrelay.Config{
//	    PingInterval: 25 * time.Second,
//	    PingTimeout:  20 * time.Second,
//	    PollTimeout:  20 * time.Second,
//	    MaxPayload:   1_000_000,
//	    Transport:    engineio.TransportPolling,
//	}
//	server, err := socketrelay.NewServer(config)
//
// # Thread Safety
//
// All operations are goroutine-safe. Event handlers are called in separate
// goroutines.
package socketrelay
