package ws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/coderoom/backend/internal/domain/room"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/coderoom/backend/internal/sandbox"
	"go.uber.org/zap"
)

// MsgCompileDisabled is the compileResult error sent while a room's breaker is open.
const MsgCompileDisabled = sandbox.ErrorPrefix + "compilation is temporarily disabled for this room after repeated timeouts"

// HubConfig tunes the dispatcher
type HubConfig struct {
	BreakerFailures uint32        // consecutive timeouts before a room's compiles are refused
	BreakerCooldown time.Duration // how long they stay refused
}

// inbound is a raw frame read from a client, or a notice the client's read
// pump wants delivered as an error event
type inbound struct {
	client *Client
	data   []byte
	notice string
}

// compileOutcome re-enters the dispatcher when a sandbox run finishes
type compileOutcome struct {
	roomID    string
	requester string
	revision  uint64 // buffer revision when the run was dispatched
	result    *sandbox.Result
	err       error
}

// Hub is the single dispatcher. Every registry write made for a client
// event, and every send to a client, happens on the goroutine running Run;
// sandbox runs are the only work done elsewhere.
type Hub struct {
	registry *room.Registry
	executor sandbox.Executor
	breakers *resilience.Group
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	clients map[string]*Client // owned by Run

	register    chan *Client
	unregister  chan *Client
	inbound     chan inbound
	compileDone chan compileOutcome

	connections atomic.Int64
	inflight    sync.WaitGroup
	stopped     chan struct{}
	stopOnce    sync.Once
}

// NewHub creates a dispatcher over the registry and executor
func NewHub(registry *room.Registry, executor sandbox.Executor, logger *logging.Logger, cfg HubConfig) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	h := &Hub{
		registry:    registry,
		executor:    executor,
		logger:      logger.Named("hub"),
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbound:     make(chan inbound, 256),
		compileDone: make(chan compileOutcome, 64),
		stopped:     make(chan struct{}),
	}

	failures := cfg.BreakerFailures
	h.breakers = resilience.NewGroup(resilience.Settings{
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(roomID string, from, to resilience.State) {
			h.logger.Warn("Compile breaker changed state",
				logging.RoomID(roomID),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return h
}

// WithMetrics adds metrics tracking to the hub
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// WithTracer records a span per compile
func (h *Hub) WithTracer(tracer *tracing.Tracer) *Hub {
	h.tracer = tracer
	return h
}

// Connections returns the number of registered clients
func (h *Hub) Connections() int {
	return int(h.connections.Load())
}

// Breakers exposes the per-room compile breakers
func (h *Hub) Breakers() *resilience.Group {
	return h.breakers
}

// Run processes events until ctx is cancelled. In-flight compiles are
// cancelled and awaited before every client is closed.
func (h *Hub) Run(ctx context.Context) {
	compileCtx, cancelCompiles := context.WithCancel(ctx)
	defer func() {
		h.stopOnce.Do(func() { close(h.stopped) })
		cancelCompiles()
		h.inflight.Wait()
		for _, client := range h.clients {
			h.drop(client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub stopping", zap.Int("clients", len(h.clients)))
			return

		case client := <-h.register:
			h.clients[client.id] = client
			h.connections.Add(1)
			if h.metrics != nil {
				h.metrics.IncWSConnections()
			}
			h.logger.Debug("Client connected", logging.ConnID(client.id))

		case client := <-h.unregister:
			if _, ok := h.clients[client.id]; ok {
				left := h.drop(client)
				h.logger.Debug("Client disconnected",
					logging.ConnID(client.id),
					zap.Strings("rooms", left),
				)
			}

		case msg := <-h.inbound:
			if msg.notice != "" {
				if _, ok := h.clients[msg.client.id]; ok {
					h.sendError(msg.client, msg.notice)
				}
				continue
			}
			h.dispatch(compileCtx, msg.client, msg.data)

		case outcome := <-h.compileDone:
			h.finishCompile(outcome)
		}
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

// Unregister removes a client and its room memberships
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// Submit queues a raw frame from client for dispatch
func (h *Hub) Submit(client *Client, data []byte) bool {
	if h.isStopped() {
		return false
	}
	select {
	case h.inbound <- inbound{client: client, data: data}:
		return true
	case <-h.stopped:
		return false
	}
}

// Notify queues an error event for client
func (h *Hub) Notify(client *Client, message string) {
	if h.isStopped() {
		return
	}
	select {
	case h.inbound <- inbound{client: client, notice: message}:
	case <-h.stopped:
	}
}

func (h *Hub) isStopped() bool {
	select {
	case <-h.stopped:
		return true
	default:
		return false
	}
}

// dispatch handles one frame. A panic in a handler is logged and the
// dispatcher keeps running.
func (h *Hub) dispatch(ctx context.Context, client *Client, data []byte) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("Recovered from panic in event handler",
				logging.ConnID(client.id),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
			h.sendError(client, "internal server error")
		}
	}()

	req, err := Decode(data)
	if err != nil {
		h.recordIn("invalid")
		h.sendError(client, err.Error())
		return
	}
	h.recordIn(req.Event)

	switch req.Event {
	case EventCreateRoom:
		h.createRoom(client, req)
	case EventJoinRoom:
		h.joinRoom(client, req)
	case EventCodeChange:
		h.codeChange(client, req)
	case EventCompile:
		h.compile(ctx, client, req)
	}
}

func (h *Hub) createRoom(client *Client, req *Request) {
	if _, err := h.registry.Create(req.RoomID, client.id); err != nil {
		h.sendError(client, err.Error())
		return
	}
	h.logger.Info("Room created", logging.RoomID(req.RoomID), logging.ConnID(client.id))
}

func (h *Hub) joinRoom(client *Client, req *Request) {
	buffer, err := h.registry.Join(req.RoomID, client.id)
	if err != nil {
		h.sendRegistryError(client, err)
		return
	}
	h.sendTo(client, EventCodeUpdate, buffer)
	h.logger.Debug("User joined room", logging.RoomID(req.RoomID), logging.ConnID(client.id))
}

func (h *Hub) codeChange(client *Client, req *Request) {
	recipients, err := h.registry.ApplyEdit(req.RoomID, client.id, req.Code)
	if err != nil {
		h.sendRegistryError(client, err)
		return
	}
	h.broadcast(recipients, EventCodeUpdate, req.Code)
}

// compile hands the code to the sandbox off the dispatcher goroutine
func (h *Hub) compile(ctx context.Context, client *Client, req *Request) {
	revision, err := h.registry.Revision(req.RoomID)
	if err != nil {
		h.sendRegistryError(client, err)
		return
	}

	done, err := h.breakers.Get(req.RoomID).Allow()
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordCompile(monitoring.OutcomeRejected, 0)
		}
		members, _ := h.registry.Members(req.RoomID)
		h.broadcast(members, EventCompileResult, CompileError{Error: MsgCompileDisabled})
		return
	}

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()

		outcome := h.run(ctx, req, client.id)
		outcome.revision = revision

		timedOut := outcome.result != nil && outcome.result.Failure != nil &&
			outcome.result.Failure.Kind == sandbox.KindTimeout
		done(!timedOut)

		select {
		case h.compileDone <- outcome:
		case <-h.stopped:
		}
	}()
}

// run executes one compile request and records its span and metrics
func (h *Hub) run(ctx context.Context, req *Request, requester string) compileOutcome {
	var span *tracing.Span
	if h.tracer != nil {
		span, ctx = h.tracer.StartSpan(ctx, "compile")
		span.SetTag("room_id", req.RoomID)
		span.SetTag("conn_id", requester)
	}
	timer := monitoring.NewTimer(h.metrics)

	result, err := h.execute(ctx, req.Code)

	outcome := compileOutcomeLabel(result, err)
	timer.Stop(outcome)

	if span != nil {
		span.SetTag("outcome", outcome)
		if err != nil {
			span.SetError(err)
		} else if result.Failure != nil {
			span.SetError(result.Failure)
		}
		span.Finish()
		h.tracer.Submit(span)
	}

	return compileOutcome{roomID: req.RoomID, requester: requester, result: result, err: err}
}

// execute shields the hub from a panicking executor
func (h *Hub) execute(ctx context.Context, code string) (result *sandbox.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("executor panic: %v", p)
		}
	}()
	result, err = h.executor.Run(ctx, code)
	if err == nil && result == nil {
		err = errors.New("executor returned no result")
	}
	return result, err
}

// finishCompile commits a successful output and tells every member. An
// output whose buffer was edited meanwhile is still broadcast but not stored.
func (h *Hub) finishCompile(outcome compileOutcome) {
	log := h.logger.With(logging.RoomID(outcome.roomID), logging.ConnID(outcome.requester))

	if outcome.err != nil {
		log.Warn("Compile could not run", zap.Error(outcome.err))
		members, _ := h.registry.Members(outcome.roomID)
		h.broadcast(members, EventCompileResult, CompileError{Error: sandbox.ErrorPrefix + outcome.err.Error()})
		return
	}

	result := outcome.result
	if result.Failure != nil {
		log.Debug("Compile failed",
			zap.Stringer("kind", result.Failure.Kind),
			zap.Duration("duration", result.Duration),
		)
		members, _ := h.registry.Members(outcome.roomID)
		h.broadcast(members, EventCompileResult, CompileError{Error: result.Failure.Message})
		return
	}

	members, err := h.registry.RecordCompileOutput(outcome.roomID, result.Output, outcome.revision)
	switch {
	case errors.Is(err, room.ErrStaleRevision):
		log.Debug("Buffer edited during compile, output not stored")
	case err != nil:
		log.Error("Failed to record compile output", zap.Error(err))
		return
	}
	h.broadcast(members, EventCompileResult, result.Output)
	log.Debug("Compile succeeded", zap.Duration("duration", result.Duration))
}

// broadcast encodes once and delivers to each listed connection
func (h *Hub) broadcast(connIDs []string, event string, data interface{}) {
	if len(connIDs) == 0 {
		return
	}
	frame, err := Encode(event, data)
	if err != nil {
		h.logger.Error("Failed to encode event", logging.Event(event), zap.Error(err))
		return
	}
	for _, connID := range connIDs {
		if client, ok := h.clients[connID]; ok {
			h.deliver(client, event, frame)
		}
	}
}

func (h *Hub) sendTo(client *Client, event string, data interface{}) {
	frame, err := Encode(event, data)
	if err != nil {
		h.logger.Error("Failed to encode event", logging.Event(event), zap.Error(err))
		return
	}
	h.deliver(client, event, frame)
}

func (h *Hub) sendError(client *Client, message string) {
	if h.metrics != nil {
		h.metrics.RecordWSError(errorCode(message))
	}
	h.sendTo(client, EventError, message)
}

func (h *Hub) sendRegistryError(client *Client, err error) {
	if errors.Is(err, room.ErrRoomNotFound) {
		h.sendError(client, MsgRoomNotFound)
		return
	}
	h.sendError(client, err.Error())
}

// deliver queues a frame without blocking; a client whose buffer is full
// is dropped.
func (h *Hub) deliver(client *Client, event string, frame []byte) {
	select {
	case client.send <- frame:
		if h.metrics != nil {
			h.metrics.RecordWSMessage(monitoring.DirectionOut, event)
		}
	default:
		h.logger.Warn("Client send buffer full, dropping connection", logging.ConnID(client.id))
		h.drop(client)
	}
}

// drop forgets the client and closes its send channel, which stops its
// write pump. Returns the rooms it was removed from.
func (h *Hub) drop(client *Client) []string {
	if _, ok := h.clients[client.id]; !ok {
		return nil
	}
	delete(h.clients, client.id)
	close(client.send)
	h.connections.Add(-1)
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	return h.registry.LeaveAll(client.id)
}

func (h *Hub) recordIn(event string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(monitoring.DirectionIn, event)
	}
}

func compileOutcomeLabel(result *sandbox.Result, err error) string {
	if err != nil {
		return monitoring.OutcomeError
	}
	if result.Failure == nil {
		return monitoring.OutcomeSuccess
	}
	switch result.Failure.Kind {
	case sandbox.KindTimeout:
		return monitoring.OutcomeTimeout
	case sandbox.KindCancelled:
		return monitoring.OutcomeCancelled
	default:
		return monitoring.OutcomeError
	}
}

// errorCode keeps the error metric's label set small
func errorCode(message string) string {
	switch {
	case message == MsgRoomNotFound:
		return "room_not_found"
	case strings.HasPrefix(message, "invalid "):
		return "validation"
	case message == MsgRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}
