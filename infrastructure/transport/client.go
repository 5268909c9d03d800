package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
	"tunebridge-go/core/dispatch"
	"tunebridge-go/core/event"
	"tunebridge-go/core/eventbus"
)

// ErrConnectionClosed is returned by operations on a closed client.
var ErrConnectionClosed = errors.New("connection closed")

// ClientConfig holds configuration for Dial.
type ClientConfig struct {
	// URL of the backend endpoint, e.g. ws://127.0.0.1:7638/ipc.
	URL string
	// Registry is the client's view of the catalog. Its fingerprint must match
	// the backend's.
	Registry *channel.Registry
	// Timeout bounds every Invoke. Zero means callers wait until their context ends.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client is the UI-process side of the transport. It offers the same Invoke,
// Subscribe and Unsubscribe operations as the in-process dispatcher.
type Client struct {
	ws          *websocket.Conn
	registry    *channel.Registry
	timeout     time.Duration
	logger      *slog.Logger
	fingerprint string

	// Local fan-out of forwarded events.
	bus eventbus.EventBus

	pendingMu sync.Mutex
	pending   map[string]chan *Envelope

	subsMu sync.Mutex
	remote map[channel.Channel]int
	local  map[eventbus.SubscriptionID]channel.Channel

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// Dial connects to the backend and performs the catalog handshake.
func Dial(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	if cfg.Registry == nil {
		return nil, errors.New("transport: registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ws, _, err := websocket.Dial(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.URL, err)
	}
	ws.SetReadLimit(maxFrameBytes)

	remote, err := clientHandshake(ctx, ws, cfg.Registry.Fingerprint())
	if err != nil {
		ws.Close(websocket.StatusPolicyViolation, "handshake failed")
		return nil, err
	}

	c := &Client{
		ws:          ws,
		registry:    cfg.Registry,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger.With("url", cfg.URL),
		fingerprint: remote,
		bus:         eventbus.New(cfg.Logger),
		pending:     make(map[string]chan *Envelope),
		remote:      make(map[channel.Channel]int),
		local:       make(map[eventbus.SubscriptionID]channel.Channel),
		done:        make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.readLoop()

	c.logger.Info("Connected to backend", "fingerprint", remote)
	return c, nil
}

func clientHandshake(ctx context.Context, ws *websocket.Conn, ours string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeWindow)
	defer cancel()

	hello, err := Encode(&Envelope{Type: TypeHello, Fingerprint: ours})
	if err != nil {
		return "", err
	}
	if err := ws.Write(ctx, websocket.MessageText, hello); err != nil {
		return "", fmt.Errorf("send hello: %w", err)
	}

	_, data, err := ws.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("read welcome: %w", err)
	}
	reply, err := Decode(data)
	if err != nil {
		return "", err
	}

	switch reply.Type {
	case TypeWelcome:
		if reply.Fingerprint != ours {
			return "", fmt.Errorf("%w: client %s, backend %s", ErrCatalogMismatch, ours, reply.Fingerprint)
		}
		return reply.Fingerprint, nil
	case TypeError:
		if reply.Fingerprint != "" && reply.Fingerprint != ours {
			return "", fmt.Errorf("%w: client %s, backend %s", ErrCatalogMismatch, ours, reply.Fingerprint)
		}
		return "", fmt.Errorf("backend refused connection: %s", reply.Error)
	default:
		return "", fmt.Errorf("%w: expected welcome, got %s", ErrMalformedEnvelope, reply.Type)
	}
}

// Fingerprint returns the catalog fingerprint agreed on during the handshake.
func (c *Client) Fingerprint() string {
	return c.fingerprint
}

// Registry returns the client's catalog.
func (c *Client) Registry() *channel.Registry {
	return c.registry
}

// Invoke sends a request and waits for its response. Names the local catalog
// does not know as request channels fail with UnknownChannel without a round trip.
func (c *Client) Invoke(ctx context.Context, ch channel.Channel, args command.Args) *command.Response {
	def, ok := c.registry.Lookup(ch)
	if !ok || def.Kind != channel.KindRequest {
		return command.Fail(ch, command.CodeUnknownChannel, "%q is not a request channel", ch)
	}

	for i, arg := range args {
		if !json.Valid(arg) {
			return command.Fail(ch, command.CodeInvalidRequest, "argument %d is not valid JSON", i)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, fail := c.roundTrip(ctx, &Envelope{Type: TypeInvoke, Channel: ch, Args: args})
	if fail != nil {
		return fail
	}
	resp := reply.toResponse()
	resp.Channel = ch
	return resp
}

// Subscribe registers listener for an event channel. The backend is asked to
// forward the channel only for the first local listener.
func (c *Client) Subscribe(ctx context.Context, ch channel.Channel, listener event.Listener) (eventbus.SubscriptionID, error) {
	def, err := c.registry.Require(ch)
	if err != nil {
		return "", err
	}
	if def.Kind != channel.KindEvent {
		return "", fmt.Errorf("%w: %q is a %s channel", dispatch.ErrWrongKind, ch, def.Kind)
	}
	if listener == nil {
		return "", fmt.Errorf("transport: nil listener for %q", ch)
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	// The local listener exists before the backend starts forwarding, so an
	// event sent right after the acknowledgement is not lost.
	id := c.bus.Subscribe(ch, listener)
	c.local[id] = ch
	c.remote[ch]++
	if c.remote[ch] > 1 {
		return id, nil
	}

	reply, fail := c.roundTrip(ctx, &Envelope{Type: TypeSubscribe, Channel: ch})
	if fail == nil && reply.Failure != nil {
		fail = &command.Response{Channel: ch, Failure: reply.Failure}
	}
	if fail != nil {
		c.bus.Unsubscribe(id)
		delete(c.local, id)
		delete(c.remote, ch)
		return "", fail.Err()
	}
	return id, nil
}

// Unsubscribe removes a listener. The backend stops forwarding the channel
// once its last local listener is gone. Unknown IDs are ignored.
func (c *Client) Unsubscribe(ctx context.Context, id eventbus.SubscriptionID) error {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	ch, ok := c.local[id]
	if !ok {
		return nil
	}
	c.bus.Unsubscribe(id)
	delete(c.local, id)
	c.remote[ch]--
	if c.remote[ch] > 0 {
		return nil
	}
	delete(c.remote, ch)

	reply, fail := c.roundTrip(ctx, &Envelope{Type: TypeUnsubscribe, Channel: ch})
	if fail != nil {
		return fail.Err()
	}
	if reply.Failure != nil {
		return reply.Failure
	}
	return nil
}

// Flush blocks until every event received so far has reached its listeners.
func (c *Client) Flush() {
	c.bus.Flush()
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is open or after Close.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close ends the connection and stops event delivery.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		err = c.ws.Close(websocket.StatusNormalClosure, "")
		c.cancel()
		<-c.done
		c.bus.Close()
	})
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	return err
}

// roundTrip sends env with a fresh ID and waits for the matching response.
// The failure is non-nil when no response arrived.
func (c *Client) roundTrip(ctx context.Context, env *Envelope) (*Envelope, *command.Response) {
	env.ID = uuid.NewString()
	reply := make(chan *Envelope, 1)

	c.pendingMu.Lock()
	c.pending[env.ID] = reply
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, env.ID)
		c.pendingMu.Unlock()
	}()

	data, err := Encode(env)
	if err != nil {
		return nil, command.Fail(env.Channel, command.CodeInvalidRequest, "%s", err.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, c.abandoned(ctx, env.Channel, err)
	}
	if err := c.write(data); err != nil {
		return nil, c.abandoned(ctx, env.Channel, err)
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return nil, c.abandoned(ctx, env.Channel, ctx.Err())
	case <-c.done:
		return nil, command.Fail(env.Channel, command.CodeCancelled, "%v", ErrConnectionClosed)
	}
}

// write sends one frame. The connection's own context bounds it: coder/websocket
// closes the connection when a write context ends, so a caller's context must
// never reach it.
func (c *Client) write(data []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *Client) abandoned(ctx context.Context, ch channel.Channel, err error) *command.Response {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return command.Fail(ch, command.CodeTimeout, "no response: %v", err)
	}
	if ctx.Err() != nil {
		return command.Fail(ch, command.CodeCancelled, "caller stopped waiting: %v", err)
	}
	return command.Fail(ch, command.CodeCancelled, "%v: %v", ErrConnectionClosed, err)
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			if !c.closing.Load() && c.ctx.Err() == nil {
				c.err = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
				c.logger.Warn("Backend connection lost", "error", err)
			}
			return
		}

		env, err := Decode(data)
		if err != nil {
			c.logger.Warn("Dropping malformed frame", "error", err)
			continue
		}

		switch env.Type {
		case TypeResponse:
			c.pendingMu.Lock()
			reply, ok := c.pending[env.ID]
			c.pendingMu.Unlock()
			if !ok {
				c.logger.Debug("Response for abandoned request", "id", env.ID, "channel", env.Channel)
				continue
			}
			select {
			case reply <- env:
			default:
			}
		case TypeEvent:
			payload := env.Payload
			if len(payload) == 0 {
				payload = json.RawMessage("null")
			}
			c.bus.Publish(&event.Event{Channel: env.Channel, Payload: payload, At: eventTime(env.At)})
		case TypeError:
			c.logger.Warn("Backend reported an error", "error", env.Error)
		default:
			c.logger.Debug("Ignoring unexpected frame", "type", env.Type)
		}
	}
}
