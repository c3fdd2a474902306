package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Message types of the host socket protocol. Each message is one JSON line.
const (
	TypeHello  = "hello"
	TypeCall   = "call"
	TypeResult = "result"
)

// DefaultCallTimeout bounds how long the front end waits for a host reply.
const DefaultCallTimeout = 3 * time.Second

// Message is a single line of the host socket protocol.
//
//	host  -> front: {"type":"hello","capabilities":["onLoginSuccess",...]}
//	front -> host:  {"type":"call","id":1,"method":"onLoginSuccess","args":["tok"]}
//	host  -> front: {"type":"result","id":1,"value":"","error":""}
type Message struct {
	Type         string   `json:"type"`
	ID           uint64   `json:"id,omitempty"`
	Method       string   `json:"method,omitempty"`
	Args         []string `json:"args,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Value        string   `json:"value,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// ErrHostGone is returned for calls made after the host disconnected.
var ErrHostGone = errors.New("host disconnected")

// RemoteHost is the front end's end of a host connection.
type RemoteHost struct {
	conn        net.Conn
	callTimeout time.Duration

	writeMu sync.Mutex
	enc     *json.Encoder

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Message
	closed  chan struct{}
	once    sync.Once
}

func newRemoteHost(conn net.Conn, callTimeout time.Duration) *RemoteHost {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &RemoteHost{
		conn:        conn,
		callTimeout: callTimeout,
		enc:         json.NewEncoder(conn),
		pending:     make(map[uint64]chan Message),
		closed:      make(chan struct{}),
	}
}

// call sends method to the host and waits for its result.
func (r *RemoteHost) call(method string, args ...string) (string, error) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	ch := make(chan Message, 1)
	r.pending[id] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	r.writeMu.Lock()
	err := r.enc.Encode(Message{Type: TypeCall, ID: id, Method: method, Args: args})
	r.writeMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(r.callTimeout)
	defer timer.Stop()
	select {
	case msg := <-ch:
		if msg.Error != "" {
			return msg.Value, errors.New(msg.Error)
		}
		return msg.Value, nil
	case <-r.closed:
		return "", ErrHostGone
	case <-timer.C:
		return "", fmt.Errorf("%s: no reply within %s", method, r.callTimeout)
	}
}

// readLoop routes results to waiting calls until the connection ends.
func (r *RemoteHost) readLoop(dec *json.Decoder) error {
	defer r.close()
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read host message: %w", err)
		}
		if msg.Type != TypeResult {
			continue
		}
		r.mu.Lock()
		ch, ok := r.pending[msg.ID]
		r.mu.Unlock()
		if ok {
			// Buffered for one reply; extra replies to the same call are dropped.
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

func (r *RemoteHost) close() {
	r.once.Do(func() {
		close(r.closed)
		r.conn.Close()
	})
}

// ServeHosts accepts host connections on ln and attaches each one to slot
// after its hello. A newer connection replaces the previous host. Calls to a
// host give up after callTimeout. It returns when ctx is done or the listener
// fails.
func ServeHosts(ctx context.Context, ln net.Listener, slot *Slot, logger Logger, callTimeout time.Duration) error {
	if logger == nil {
		logger = nopLogger{}
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept host: %w", err)
		}
		go func() {
			if err := ServeHostConn(ctx, conn, slot, logger, callTimeout); err != nil {
				logger.Warn("bridge: host connection: %v", err)
			}
		}()
	}
}

// ServeHostConn runs one host connection: it waits for the hello, attaches
// the announced capabilities, and detaches when the connection closes.
func ServeHostConn(ctx context.Context, conn net.Conn, slot *Slot, logger Logger, callTimeout time.Duration) error {
	if logger == nil {
		logger = nopLogger{}
	}
	dec := json.NewDecoder(bufio.NewReader(conn))

	var hello Message
	if err := dec.Decode(&hello); err != nil {
		conn.Close()
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Type != TypeHello {
		conn.Close()
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}

	remote := newRemoteHost(conn, callTimeout)
	gen := slot.Attach(remoteCapabilities(hello.Capabilities, remote.call))
	logger.Info("bridge: host attached (capabilities: %v)", hello.Capabilities)

	stop := context.AfterFunc(ctx, remote.close)
	defer stop()

	err := remote.readLoop(dec)
	slot.DetachIf(gen)
	logger.Info("bridge: host detached")
	return err
}

// ServeAsHost runs the host side of a connection: it announces the
// capabilities of host and answers calls until the connection closes or ctx
// is done. Used by development hosts and tests.
func ServeAsHost(ctx context.Context, conn net.Conn, host any) error {
	caps := Negotiate(host)
	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(bufio.NewReader(conn))

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	if err := enc.Encode(Message{Type: TypeHello, Capabilities: caps.Names()}); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read call: %w", err)
		}
		if msg.Type != TypeCall {
			continue
		}
		reply := Message{Type: TypeResult, ID: msg.ID}
		err := safeCall(msg.Method, func() error {
			v, err := caps.Invoke(msg.Method, msg.Args)
			reply.Value = v
			return err
		})
		if err != nil {
			reply.Error = err.Error()
		}
		if err := enc.Encode(reply); err != nil {
			return fmt.Errorf("send result: %w", err)
		}
	}
}
