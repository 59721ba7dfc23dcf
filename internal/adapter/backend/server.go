package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"chatwidget/internal/adapter/channel"
	"chatwidget/internal/domain"
	"chatwidget/internal/infra/logger"
	"chatwidget/internal/infra/middleware"
	"chatwidget/internal/infra/tracer"
)

// Defaults for the mock backend.
const (
	DefaultPath          = "/ws"
	DefaultFragmentRate  = 20.0
	DefaultFragmentBurst = 1

	writeTimeout = 5 * time.Second
	replyQueue   = 16
)

// Config configures the mock backend.
type Config struct {
	Addr          string
	Path          string
	FragmentRate  float64 // fragments per second, per connection
	FragmentBurst int
	Topics        []domain.TopicSuggestion

	// UpgradesPerMin limits websocket upgrades per client IP. Zero disables.
	UpgradesPerMin int
	UpgradeBurst   int
}

// Responder produces the full reply text for a user message. The server
// streams it word by word.
type Responder func(message string) string

// Option configures a Server.
type Option func(*Server)

// WithResponder replaces the default reply generator.
func WithResponder(r Responder) Option {
	return func(s *Server) { s.respond = r }
}

// WithCorrelationIDs replaces the chatcmpl-<uuid> generator.
func WithCorrelationIDs(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

type outbound struct {
	typ  websocket.MessageType
	data []byte
}

type reply struct {
	text  string
	codec channel.Codec
}

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	id        uint64
	ws        *websocket.Conn
	sendCh    chan outbound // buffered outbound queue
	replies   chan reply
	done      chan struct{}
	closeOnce sync.Once
}

// Server is a websocket backend that speaks the widget protocol: it answers
// topic requests, streams replies as fragments and records feedback.
type Server struct {
	cfg     Config
	sink    FeedbackSink
	logger  *slog.Logger
	respond Responder
	newID   func() string
	metrics Metrics
	started time.Time

	clients sync.Map // connID (uint64) -> *clientConn
	nextID  atomic.Uint64

	mu        sync.Mutex
	httpSrv   *http.Server
	boundAddr string
	ready     chan struct{}
}

// NewServer creates a mock backend. sink may be nil, in which case feedback
// is kept in memory.
func NewServer(cfg Config, sink FeedbackSink, log *slog.Logger, opts ...Option) *Server {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.FragmentRate <= 0 {
		cfg.FragmentRate = DefaultFragmentRate
	}
	if cfg.FragmentBurst <= 0 {
		cfg.FragmentBurst = DefaultFragmentBurst
	}
	if sink == nil {
		sink = NewMemorySink()
	}
	s := &Server{
		cfg:     cfg,
		sink:    sink,
		logger:  logger.Component(log, "backend"),
		newID:   func() string { return "chatcmpl-" + uuid.NewString() },
		started: time.Now(),
		ready:   make(chan struct{}),
	}
	s.respond = s.defaultResponder
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// defaultResponder answers a picked topic with its canned message and
// echoes anything else.
func (s *Server) defaultResponder(message string) string {
	for _, t := range s.cfg.Topics {
		if t.Message != "" && (message == t.Description || message == t.Title) {
			return t.Message
		}
	}
	return fmt.Sprintf("You said: %q. This is the mock backend streaming a reply word by word.", message)
}

// Handler returns the HTTP handler serving the websocket path and the
// status API.
func (s *Server) Handler() http.Handler {
	limiter := middleware.NewLimiter(middleware.RateLimitConfig{
		RequestsPerMin: s.cfg.UpgradesPerMin,
		BurstSize:      s.cfg.UpgradeBurst,
	}, s.logger)

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, limiter.Wrap(http.HandlerFunc(s.handleUpgrade)))
	mux.HandleFunc("/api/v1/status", statusHandler(s.started, &s.metrics))
	return middleware.SecurityHeaders(mux)
}

// Metrics exposes the live counters.
func (s *Server) Metrics() *Metrics { return &s.metrics }

// Sink returns the feedback sink.
func (s *Server) Sink() FeedbackSink { return s.sink }

// Start begins accepting WebSocket connections. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("backend listen: %w", err)
	}

	s.mu.Lock()
	s.boundAddr = listener.Addr().String()
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	srv := s.httpSrv
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("mock backend started", "addr", listener.Addr().String(), "path", s.cfg.Path)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("backend serve: %w", err)
	}
	return nil
}

// Ready is closed once Start has bound its listener.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// BoundAddr returns the actual address the server bound to. Only valid after Ready.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.clients.Range(func(key, value any) bool {
		cc := value.(*clientConn)
		cc.closeOnce.Do(func() { close(cc.done) })
		cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
		s.clients.Delete(key)
		return true
	})

	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	cc := &clientConn{
		id:      s.nextID.Add(1),
		ws:      ws,
		sendCh:  make(chan outbound, 64),
		replies: make(chan reply, replyQueue),
		done:    make(chan struct{}),
	}
	s.clients.Store(cc.id, cc)
	s.metrics.ConnectionsTotal.Add(1)
	s.metrics.ConnectionsActive.Add(1)
	s.logger.Info("widget connected", "conn_id", cc.id)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx, cc)
	}()
	go func() {
		defer wg.Done()
		s.streamLoop(ctx, cc)
	}()

	// Read loop (blocking).
	s.readLoop(ctx, cc)

	// Cleanup.
	cc.closeOnce.Do(func() { close(cc.done) })
	cancel()
	wg.Wait()
	s.clients.Delete(cc.id)
	ws.Close(websocket.StatusNormalClosure, "")
	s.metrics.ConnectionsActive.Add(-1)
	s.logger.Info("widget disconnected", "conn_id", cc.id)
}

func (s *Server) readLoop(ctx context.Context, cc *clientConn) {
	for {
		typ, data, err := cc.ws.Read(ctx)
		if err != nil {
			return // connection closed or error
		}

		codec := channel.CodecForMessageType(typ)
		m, err := codec.Unmarshal(data)
		if err != nil {
			s.logger.Warn("ignoring undecodable message", "conn_id", cc.id, "error", err)
			continue
		}
		s.metrics.MessagesRecv.Add(1)
		s.dispatch(ctx, cc, codec, m)
	}
}

func (s *Server) dispatch(ctx context.Context, cc *clientConn, codec channel.Codec, m map[string]any) {
	object, _ := m["object"].(string)
	switch object {
	case domain.ObjectTopics:
		s.sendTopics(ctx, cc, codec)
	case domain.ObjectFeedback:
		s.recordFeedback(ctx, m)
	case "":
		text, ok := m["message"].(string)
		if !ok {
			s.logger.Warn("ignoring message without text", "conn_id", cc.id)
			return
		}
		select {
		case cc.replies <- reply{text: text, codec: codec}:
		case <-cc.done:
		}
	default:
		s.logger.Debug("ignoring unknown object", "conn_id", cc.id, "object", object)
	}
}

func (s *Server) sendTopics(ctx context.Context, cc *clientConn, codec channel.Codec) {
	topics := make([]any, 0, len(s.cfg.Topics))
	for _, t := range s.cfg.Topics {
		topics = append(topics, map[string]any{
			"title":       t.Title,
			"description": t.Description,
			"message":     t.Message,
		})
	}
	s.enqueue(ctx, cc, codec, map[string]any{"object": domain.ObjectTopics, "message": topics})
}

func (s *Server) recordFeedback(ctx context.Context, m map[string]any) {
	rec := FeedbackRecord{
		EntryID:    stringField(m, "id"),
		Category:   stringField(m, "category"),
		Message:    stringField(m, "message"),
		ReceivedAt: time.Now().UTC(),
	}
	if raw, ok := m["choices"].([]any); ok {
		for _, c := range raw {
			if str, ok := c.(string); ok {
				rec.Choices = append(rec.Choices, str)
			}
		}
	}
	if err := s.sink.Record(ctx, rec); err != nil {
		s.logger.Warn("feedback not recorded", "entry_id", rec.EntryID, "error", err)
		return
	}
	s.metrics.FeedbackTotal.Add(1)
	s.logger.Info("feedback recorded", "entry_id", rec.EntryID, "category", rec.Category, "choices", len(rec.Choices))
}

// streamLoop answers queued messages one at a time so replies never
// interleave on a connection.
func (s *Server) streamLoop(ctx context.Context, cc *clientConn) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.FragmentRate), s.cfg.FragmentBurst)
	for {
		select {
		case <-cc.done:
			return
		case rp := <-cc.replies:
			if err := s.streamReply(ctx, cc, limiter, rp); err != nil {
				return
			}
		}
	}
}

func (s *Server) streamReply(ctx context.Context, cc *clientConn, limiter *rate.Limiter, rp reply) error {
	ctx, span := tracer.StartSpan(ctx, "backend.stream_reply")
	defer span.End()

	id := s.newID()
	words := strings.Fields(s.respond(rp.text))
	span.SetAttributes(tracer.StringAttr("correlation.id", id), tracer.IntAttr("fragments", len(words)+1))

	for i, word := range words {
		if err := limiter.Wait(ctx); err != nil {
			tracer.RecordError(span, err)
			return err
		}
		if i < len(words)-1 {
			word += " "
		}
		s.metrics.FragmentsSent.Add(1)
		if err := s.enqueue(ctx, cc, rp.codec, fragment(id, word, nil)); err != nil {
			tracer.RecordError(span, err)
			return err
		}
	}

	s.metrics.FragmentsSent.Add(1)
	s.metrics.RepliesSent.Add(1)
	if err := s.enqueue(ctx, cc, rp.codec, fragment(id, "", "stop")); err != nil {
		tracer.RecordError(span, err)
		return err
	}
	tracer.SetOK(span)
	return nil
}

func fragment(id, text string, finishReason any) map[string]any {
	return map[string]any{
		"id":            id,
		"message":       text,
		"role":          "assistant",
		"finish_reason": finishReason,
	}
}

// enqueue encodes fields in the client's codec and waits for queue space.
func (s *Server) enqueue(ctx context.Context, cc *clientConn, codec channel.Codec, fields map[string]any) error {
	data, err := codec.Marshal(fields)
	if err != nil {
		s.logger.Warn("dropping unencodable frame", "conn_id", cc.id, "error", err)
		return nil
	}
	select {
	case cc.sendCh <- outbound{typ: codec.MessageType(), data: data}:
		return nil
	case <-cc.done:
		return domain.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) writeLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case out := <-cc.sendCh:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := cc.ws.Write(wctx, out.typ, out.data)
			cancel()
			if err != nil {
				// Unblock enqueue and the read loop; the socket is unusable.
				s.logger.Warn("write failed, dropping connection", "conn_id", cc.id, "error", err)
				cc.closeOnce.Do(func() { close(cc.done) })
				cc.ws.CloseNow()
				return
			}
		}
	}
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
