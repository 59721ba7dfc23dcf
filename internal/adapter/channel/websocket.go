package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"nhooyr.io/websocket"

	"chatwidget/internal/domain"
	"chatwidget/internal/infra/logger"
	"chatwidget/internal/infra/tracer"
)

// Adapter defaults.
const (
	DefaultDialTimeout = 10 * time.Second
	DefaultReadLimit   = 1 << 20
	DefaultQueueSize   = 64

	writeTimeout = 5 * time.Second
)

// Options tunes the websocket adapter.
type Options struct {
	DialTimeout time.Duration
	ReadLimit   int64
	QueueSize   int
	Breaker     BreakerConfig
}

func (o *Options) applyDefaults() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
}

// Adapter opens websocket channels to the conversational backend.
// Transport faults never reach the caller: they are logged here and leave
// the returned handle in ChannelFailed.
type Adapter struct {
	opts    Options
	bus     domain.EventBus
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[*websocket.Conn]
}

var _ domain.ChannelAdapter = (*Adapter)(nil)

// NewAdapter creates a websocket channel adapter. bus may be nil.
func NewAdapter(log *slog.Logger, bus domain.EventBus, opts Options) *Adapter {
	opts.applyDefaults()
	log = logger.Component(log, "channel")
	return &Adapter{
		opts:    opts,
		bus:     bus,
		logger:  log,
		breaker: newDialBreaker(opts.Breaker, log),
	}
}

// Open returns a handle immediately in ChannelConnecting and dials in the
// background. Intents sent before the dial completes are queued.
func (a *Adapter) Open(ctx context.Context, cfg domain.EndpointConfig) domain.ChannelHandle {
	hctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &handle{
		adapter: a,
		logger:  a.logger,
		ctx:     hctx,
		cancel:  cancel,
		state:   domain.ChannelConnecting,
		subs:    make(map[uint64]domain.FrameHandler),
		sendCh:  make(chan domain.Intent, a.opts.QueueSize),
		done:    make(chan struct{}),
	}

	codec, err := CodecFor(cfg.Codec)
	if err != nil {
		h.fail(err)
		return h
	}
	h.codec = codec

	target, err := endpointURL(cfg)
	if err != nil {
		h.fail(domain.NewDomainError("channel.open", domain.ErrChannelDial, err.Error()))
		return h
	}
	h.url = target
	h.logger = a.logger.With("url", target)

	h.wg.Add(1)
	go h.connect(dialOptions(cfg))
	return h
}

// endpointURL joins base URL and path and encodes the query bag.
func endpointURL(cfg domain.EndpointConfig) (string, error) {
	if len(cfg.Transports) > 0 && !slices.Contains(cfg.Transports, "websocket") {
		return "", fmt.Errorf("no supported transport in %v", cfg.Transports)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if cfg.Path != "" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(cfg.Path, "/")
	}
	if len(cfg.Query) > 0 {
		q := u.Query()
		for k, v := range cfg.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func dialOptions(cfg domain.EndpointConfig) *websocket.DialOptions {
	opts := &websocket.DialOptions{Subprotocols: cfg.Subprotocols}
	if len(cfg.Headers) > 0 {
		opts.HTTPHeader = make(http.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			opts.HTTPHeader.Set(k, v)
		}
	}
	return opts
}

func (a *Adapter) publish(ctx context.Context, t domain.EventType, h *handle) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(ctx, domain.NewEvent(t, domain.ChannelStatePayload{State: h.State().String(), URL: h.url}))
}

func (a *Adapter) publishRejected(ctx context.Context, err error) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(ctx, domain.NewEvent(domain.EventFrameRejected, domain.FrameRejectedPayload{
		Code:  domain.ErrorCodeOf(err),
		Error: err.Error(),
	}))
}

// handle is one websocket connection. The read and write loops follow the
// clientConn shape: buffered send queue, write goroutine, read goroutine,
// and a done channel closed once.
type handle struct {
	adapter *Adapter
	logger  *slog.Logger
	codec   Codec
	url     string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	state  domain.ChannelState
	conn   *websocket.Conn
	subs   map[uint64]domain.FrameHandler
	nextID uint64

	sendCh    chan domain.Intent
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (h *handle) State() domain.ChannelState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Send queues an intent. Sends on a dead handle and sends that overflow the
// queue are dropped with a log line.
func (h *handle) Send(_ context.Context, intent domain.Intent) {
	if state := h.State(); !state.Live() {
		h.logger.Debug("dropping intent on dead channel", "state", state.String(), "kind", string(intent.Kind))
		return
	}
	select {
	case h.sendCh <- intent:
	default:
		err := domain.NewDomainError("channel.send", domain.ErrSendQueueFull, string(intent.Kind))
		h.logger.Warn("dropping intent", "error", err, "code", string(domain.ErrorCodeOf(err)))
	}
}

func (h *handle) Subscribe(handler domain.FrameHandler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == domain.ChannelClosed {
		return func() {}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = handler
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Close detaches every subscriber, closes the socket with a normal closure
// and waits for the connection goroutines. It must not be called from a
// frame handler.
func (h *handle) Close() {
	h.mu.Lock()
	if h.state == domain.ChannelClosed {
		h.mu.Unlock()
		return
	}
	h.state = domain.ChannelClosed
	conn := h.conn
	clear(h.subs)
	h.mu.Unlock()

	h.closeOnce.Do(func() { close(h.done) })
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	h.cancel()
	h.wg.Wait()

	h.logger.Info("channel closed")
	h.adapter.publish(context.Background(), domain.EventChannelClosed, h)
}

// fail moves a live handle to ChannelFailed. It is the single place where
// transport errors are swallowed.
func (h *handle) fail(err error) {
	h.mu.Lock()
	if !h.state.Live() {
		h.mu.Unlock()
		return
	}
	h.state = domain.ChannelFailed
	h.mu.Unlock()

	h.closeOnce.Do(func() { close(h.done) })
	h.cancel()

	h.logger.Warn("channel failed", "error", err, "code", string(domain.ErrorCodeOf(err)))
	h.adapter.publish(context.Background(), domain.EventChannelFailed, h)
}

func (h *handle) connect(opts *websocket.DialOptions) {
	defer h.wg.Done()

	ctx, span := tracer.StartSpan(h.ctx, "channel.dial")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("channel.url", h.url), tracer.StringAttr("channel.codec", h.codec.Name()))

	conn, err := h.adapter.breaker.Execute(func() (*websocket.Conn, error) {
		// The dial context outlives the handshake; cancelling it early
		// would tear down the upgraded connection.
		dialCtx, cancelDial := context.WithCancel(ctx)
		timer := time.AfterFunc(h.adapter.opts.DialTimeout, cancelDial)
		c, _, err := websocket.Dial(dialCtx, h.url, opts)
		if !timer.Stop() {
			if err == nil {
				c.Close(websocket.StatusGoingAway, "dial timeout")
			}
			return nil, fmt.Errorf("dial timed out after %s", h.adapter.opts.DialTimeout)
		}
		return c, err
	})
	if err != nil {
		if h.ctx.Err() != nil {
			return
		}
		err = dialError(err)
		tracer.RecordError(span, err)
		h.fail(err)
		return
	}
	conn.SetReadLimit(h.adapter.opts.ReadLimit)

	h.mu.Lock()
	if h.state != domain.ChannelConnecting {
		h.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	h.conn = conn
	h.state = domain.ChannelOpen
	h.wg.Add(2)
	h.mu.Unlock()

	tracer.SetOK(span)
	h.logger.Info("channel opened")
	h.adapter.publish(ctx, domain.EventChannelOpened, h)

	go h.writeLoop(conn)
	go h.readLoop(conn)
}

func (h *handle) writeLoop(conn *websocket.Conn) {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case intent := <-h.sendCh:
			data, err := h.codec.Marshal(intent.Fields())
			if err != nil {
				h.logger.Warn("dropping unencodable intent", "error", err, "kind", string(intent.Kind))
				continue
			}
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err = conn.Write(ctx, h.codec.MessageType(), data)
			cancel()
			if err != nil {
				if h.ctx.Err() == nil {
					h.fail(domain.NewDomainError("channel.send", domain.ErrChannelEmit, err.Error()))
				}
				return
			}
		}
	}
}

func (h *handle) readLoop(conn *websocket.Conn) {
	defer h.wg.Done()
	for {
		typ, data, err := conn.Read(h.ctx)
		if err != nil {
			if h.State() == domain.ChannelOpen {
				h.fail(domain.WrapOp("channel.read", err))
			}
			return
		}

		m, err := CodecForMessageType(typ).Unmarshal(data)
		if err != nil {
			err = domain.NewDomainError("channel.decode", domain.ErrInvalidFrame, err.Error())
		} else {
			var frame domain.InboundFrame
			if frame, err = DecodeFrame(m); err == nil {
				h.dispatch(frame)
				continue
			}
		}
		h.logger.Warn("dropping invalid frame", "error", err, "code", string(domain.ErrorCodeOf(err)))
		h.adapter.publishRejected(h.ctx, err)
	}
}

func (h *handle) dispatch(frame domain.InboundFrame) {
	h.mu.RLock()
	handlers := make([]domain.FrameHandler, 0, len(h.subs))
	for _, fn := range h.subs {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(frame)
	}
}
