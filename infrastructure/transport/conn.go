package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
	"tunebridge-go/core/event"
	"tunebridge-go/core/eventbus"
	"tunebridge-go/infrastructure/logging"
)

type subscriptionRef struct {
	id eventbus.SubscriptionID
}

// serverConn is the backend side of one UI connection.
type serverConn struct {
	server *Server
	ws     *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	out    chan []byte

	// subs is only touched by the read loop.
	subs     map[channel.Channel]subscriptionRef
	inflight sync.WaitGroup
}

func (c *serverConn) serve() {
	defer c.cancel()

	if err := c.handshake(); err != nil {
		logging.From(c.ctx).Warn("Handshake failed", "error", err)
		if errors.Is(err, ErrCatalogMismatch) {
			c.ws.Close(websocket.StatusPolicyViolation, "channel catalog mismatch")
		} else {
			c.ws.Close(websocket.StatusProtocolError, "handshake failed")
		}
		return
	}

	go c.writeLoop()
	c.readLoop()

	for ch, ref := range c.subs {
		_ = c.server.dispatcher.Unsubscribe(ch, ref.id)
	}
	c.cancel()
	c.inflight.Wait()
	c.ws.Close(websocket.StatusNormalClosure, "")
}

func (c *serverConn) handshake() error {
	ctx, cancel := context.WithTimeout(c.ctx, handshakeWindow)
	defer cancel()

	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	hello, err := Decode(data)
	if err != nil {
		return err
	}
	if hello.Type != TypeHello {
		return fmt.Errorf("%w: expected hello, got %s", ErrMalformedEnvelope, hello.Type)
	}

	ours := c.server.dispatcher.Registry().Fingerprint()
	if hello.Fingerprint != ours {
		reply, _ := Encode(&Envelope{Type: TypeError, Fingerprint: ours, Error: ErrCatalogMismatch.Error()})
		_ = c.ws.Write(ctx, websocket.MessageText, reply)
		return fmt.Errorf("%w: client %s, backend %s", ErrCatalogMismatch, hello.Fingerprint, ours)
	}

	reply, err := Encode(&Envelope{Type: TypeWelcome, Fingerprint: ours})
	if err != nil {
		return err
	}
	return c.ws.Write(ctx, websocket.MessageText, reply)
}

func (c *serverConn) readLoop() {
	logger := logging.From(c.ctx)

	for {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && c.ctx.Err() == nil {
				logger.Debug("Read failed", "error", err)
			}
			return
		}

		env, err := Decode(data)
		if err != nil {
			c.sendError(err.Error())
			continue
		}

		switch env.Type {
		case TypeInvoke:
			c.inflight.Add(1)
			go c.handleInvoke(env)
		case TypeSubscribe:
			c.handleSubscribe(env)
		case TypeUnsubscribe:
			c.handleUnsubscribe(env)
		default:
			c.sendError(fmt.Sprintf("unexpected %s from client", env.Type))
		}
	}
}

func (c *serverConn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := c.ws.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logging.From(c.ctx).Debug("Write failed", "error", err)
				c.cancel()
				return
			}
		}
	}
}

func (c *serverConn) handleInvoke(env *Envelope) {
	defer c.inflight.Done()

	// Handlers log with the request id through logging.From(ctx).
	ctx := logging.ForRequest(c.ctx, env.ID)
	resp := c.server.dispatcher.Invoke(ctx, env.Channel, env.Args)
	c.send(responseEnvelope(env.ID, resp))
}

func (c *serverConn) handleSubscribe(env *Envelope) {
	if _, ok := c.subs[env.Channel]; ok {
		c.send(&Envelope{Type: TypeResponse, ID: env.ID, Channel: env.Channel, Result: json.RawMessage(`true`)})
		return
	}

	id, err := c.server.dispatcher.Subscribe(env.Channel, c.forward)
	if err != nil {
		c.send(responseEnvelope(env.ID, command.Fail(env.Channel, command.CodeUnknownChannel, "%s", err.Error())))
		return
	}
	c.subs[env.Channel] = subscriptionRef{id: id}
	logging.From(c.ctx).Debug("Subscribed", "channel", env.Channel)
	c.send(&Envelope{Type: TypeResponse, ID: env.ID, Channel: env.Channel, Result: json.RawMessage(`true`)})
}

func (c *serverConn) handleUnsubscribe(env *Envelope) {
	ref, ok := c.subs[env.Channel]
	if ok {
		if err := c.server.dispatcher.Unsubscribe(env.Channel, ref.id); err != nil {
			c.send(responseEnvelope(env.ID, command.Fail(env.Channel, command.CodeUnknownChannel, "%s", err.Error())))
			return
		}
		delete(c.subs, env.Channel)
	}
	c.send(&Envelope{Type: TypeResponse, ID: env.ID, Channel: env.Channel, Result: json.RawMessage(`true`)})
}

// forward runs on the event bus goroutine and must never block it.
func (c *serverConn) forward(e *event.Event) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		logging.From(c.ctx).Warn("Dropping unencodable event", "channel", e.Channel, "error", err)
		return
	}
	data, err := Encode(&Envelope{Type: TypeEvent, Channel: e.Channel, Payload: payload, At: e.At.UnixMilli()})
	if err != nil {
		return
	}

	select {
	case c.out <- data:
	case <-c.ctx.Done():
	default:
		logging.From(c.ctx).Warn("Outbound queue full, dropping event", "channel", e.Channel)
	}
}

func (c *serverConn) send(env *Envelope) {
	data, err := Encode(env)
	if err != nil {
		logging.From(c.ctx).Error("Failed to encode envelope", "type", env.Type, "error", err)
		return
	}
	select {
	case c.out <- data:
	case <-c.ctx.Done():
	}
}

func (c *serverConn) sendError(msg string) {
	c.send(&Envelope{Type: TypeError, Error: msg})
}

// eventTime converts the wire timestamp of an event.
func eventTime(ms int64) time.Time {
	if ms == 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
