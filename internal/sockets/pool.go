package sockets

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// SocketID identifies one signalling connection. It is assigned by the
// transport layer (remote address) and opaque to everything above it.
type SocketID string

// Socket is a websocket connection with serialized writes. Reads stay on the
// single handler goroutine; writes may come from broadcasts on any goroutine.
type Socket interface {
	ID() SocketID
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	Close() error
}

type socketImpl struct {
	id      SocketID
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (s *socketImpl) ID() SocketID {
	return s.id
}

func (s *socketImpl) WriteJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteJSON(v)
}

func (s *socketImpl) ReadJSON(v interface{}) error {
	return s.ws.ReadJSON(v)
}

func (s *socketImpl) Close() error {
	return s.ws.Close()
}

type SocketPool struct {
	mutex   sync.Mutex
	sockets map[SocketID]Socket
}

func NewSocketPool() *SocketPool {
	return &SocketPool{
		sockets: make(map[SocketID]Socket),
	}
}

// AddSocket registers conn under its remote address and returns the wrapped
// socket. A previous socket with the same id is closed first.
func (p *SocketPool) AddSocket(conn *websocket.Conn) Socket {
	id := SocketID(conn.NetConn().RemoteAddr().String())
	soc := &socketImpl{id: id, ws: conn}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if oldConn, contains := p.sockets[id]; contains {
		_ = oldConn.Close()
	}
	p.sockets[id] = soc
	return soc
}

func (p *SocketPool) GetSocket(id SocketID) Socket {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if conn, contains := p.sockets[id]; contains {
		return conn
	}
	return nil
}

func (p *SocketPool) CloseSocket(id SocketID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if oldConn, contains := p.sockets[id]; contains {
		_ = oldConn.Close()
		delete(p.sockets, id)
	}
}

func (p *SocketPool) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for id, conn := range p.sockets {
		_ = conn.Close()
		delete(p.sockets, id)
	}
}
