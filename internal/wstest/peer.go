// Package wstest provides an in-process terminal server for tests.
//
// A Peer speaks the server side of the terminal protocol on an
// httptest.Server: it accepts websocket connections on
// /terminal/:id/ws, records every message it receives, answers pings with
// pongs and lets the test push output and control messages.
package wstest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/remote-agent-terminal/ttyclient/internal/protocol"
)

// DefaultTimeout bounds every wait performed by Peer and PeerConn helpers.
const DefaultTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Peer is a scripted terminal server.
type Peer struct {
	Server *httptest.Server

	// AutoPong answers ping messages with pong. Enabled by default.
	AutoPong bool

	conns chan *PeerConn
	mu    sync.Mutex
	all   []*PeerConn
}

// NewPeer starts a Peer; it is shut down when the test ends.
func NewPeer(t testing.TB) *Peer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	p := &Peer{
		AutoPong: true,
		conns:    make(chan *PeerConn, 16),
	}

	r := gin.New()
	r.GET("/terminal/:id/ws", p.attach)
	r.GET("/terminal/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "terminal %s", c.Param("id"))
	})

	p.Server = httptest.NewServer(r)
	t.Cleanup(p.Close)
	return p
}

// PageURL returns the http URL of the terminal page for id.
func (p *Peer) PageURL(id string) string {
	return p.Server.URL + "/terminal/" + id
}

// URL returns the websocket endpoint for id.
func (p *Peer) URL(id string) string {
	return "ws" + strings.TrimPrefix(p.Server.URL, "http") + "/terminal/" + id + "/ws"
}

// Accept waits for the next client connection.
func (p *Peer) Accept(t testing.TB) *PeerConn {
	t.Helper()
	select {
	case c := <-p.conns:
		return c
	case <-time.After(DefaultTimeout):
		t.Fatal("timed out waiting for a client connection")
		return nil
	}
}

// ExpectNoConnection fails the test if a client connects within d.
func (p *Peer) ExpectNoConnection(t testing.TB, d time.Duration) {
	t.Helper()
	select {
	case c := <-p.conns:
		t.Fatalf("unexpected client connection for %s", c.ID)
	case <-time.After(d):
	}
}

// Close disconnects every client and stops the server.
func (p *Peer) Close() {
	p.mu.Lock()
	conns := p.all
	p.all = nil
	p.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	p.Server.Close()
}

func (p *Peer) attach(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	pc := &PeerConn{
		ID:       c.Param("id"),
		Query:    c.Request.URL.RawQuery,
		conn:     conn,
		autoPong: p.AutoPong,
		messages: make(chan protocol.Message, 256),
		done:     make(chan struct{}),
	}

	p.mu.Lock()
	p.all = append(p.all, pc)
	p.mu.Unlock()

	go pc.readPump()
	p.conns <- pc
}
