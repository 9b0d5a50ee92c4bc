// Package commstest starts in-process COMMS servers for tests.
package commstest

import (
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

// StartServer starts an in-process NATS server on port (-1 picks a free one) and
// returns a connected client. Both are shut down when the test ends.
func StartServer(t testing.TB, port int) (*comms.Conn, *commsserver.Server) {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("commstest - failed to create server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("commstest - server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("commstest - failed to connect: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return nc, ns
}

// Connect opens an additional client connection to ns, closed when the test ends.
func Connect(t testing.TB, ns *commsserver.Server) *comms.Conn {
	t.Helper()

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		t.Fatalf("commstest - failed to connect: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}
