// Package websocket carries packets as binary WebSocket messages.
package websocket

import (
	"net/http"

	"golang.org/x/net/websocket"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a WebSocket endpoint, e.g. ws://host:port/sbus.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler serves each WebSocket connection with serve. The connection
// is closed when serve returns.
func Handler(serve func(*ReadWriter)) http.Handler {
	return websocket.Server{
		Handler: func(conn *websocket.Conn) {
			rw := New(conn)
			defer rw.Close()
			serve(rw)
		},
		// browsers from any origin may connect.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
	}
}
