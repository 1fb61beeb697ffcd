package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/core/ports"
	"github.com/samirrijal/aoiexplorer/internal/pkg/geospatial"
	"github.com/samirrijal/aoiexplorer/internal/pkg/metrics"
)

const intakeBuffer = 64

var _ ports.EventSink = (*InteractionMachine)(nil)

// MachineDeps holds the collaborators of an InteractionMachine.
type MachineDeps struct {
	Endpoints      *EndpointSelector
	Transport      ports.QueryTransport
	DrawTools      []ports.DrawTool
	Publishers     []ports.SnapshotPublisher
	QueryLog       ports.QueryLogRepository
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// InteractionMachine is the single writer of drawing mode, AOI, endpoint
// selection and query state. Events are applied one at a time by Run, in
// the order they reach the intake queue.
type InteractionMachine struct {
	logger     *slog.Logger
	endpoints  *EndpointSelector
	aoi        *AreaOfInterestModel
	requests   *RequestLifecycle
	drawTools  []ports.DrawTool
	publishers []ports.SnapshotPublisher
	queryLog   ports.QueryLogRepository

	// Owned by the Run goroutine.
	drawing    bool
	query      domain.QueryState
	captureErr string
	pong       bool
	version    uint64

	intake  chan envelope
	stopped chan struct{}
	once    sync.Once

	mu      sync.RWMutex
	current domain.Snapshot
}

type envelope struct {
	ev   domain.Event
	done chan outcome
}

type outcome struct {
	snap domain.Snapshot
	err  error
}

// NewInteractionMachine creates a machine in the Ready state.
func NewInteractionMachine(deps MachineDeps) (*InteractionMachine, error) {
	if deps.Endpoints == nil {
		return nil, fmt.Errorf("interaction machine: endpoint selector is required")
	}
	if deps.Transport == nil {
		return nil, fmt.Errorf("interaction machine: transport is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &InteractionMachine{
		logger:     logger.With("component", "interaction"),
		endpoints:  deps.Endpoints,
		aoi:        NewAreaOfInterestModel(),
		drawTools:  deps.DrawTools,
		publishers: deps.Publishers,
		queryLog:   deps.QueryLog,
		query:      domain.QueryState{Phase: domain.PhaseIdle},
		intake:     make(chan envelope, intakeBuffer),
		stopped:    make(chan struct{}),
	}
	m.requests = NewRequestLifecycle(deps.Transport, deps.RequestTimeout, m.Dispatch)
	m.current = m.project()
	return m, nil
}

// Run applies queued events until ctx is cancelled. It must be called once.
func (m *InteractionMachine) Run(ctx context.Context) error {
	defer m.once.Do(func() { close(m.stopped) })

	m.logger.Info("interaction machine started",
		"endpoints", m.endpoints.Endpoints(),
		"active_endpoint", m.endpoints.Active(),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("interaction machine stopped")
			return ctx.Err()
		case env := <-m.intake:
			changed, err := m.handle(ctx, env.ev)
			if changed {
				m.publish(ctx)
			}
			if env.done != nil {
				env.done <- outcome{snap: m.Snapshot(), err: err}
			}
		}
	}
}

// Dispatch queues ev without waiting for it to be applied.
func (m *InteractionMachine) Dispatch(ctx context.Context, ev domain.Event) error {
	select {
	case m.intake <- envelope{ev: ev}:
		return nil
	case <-m.stopped:
		return domain.ErrMachineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues ev and waits until it has been applied. The returned error is
// the validation error of ev, if any; the snapshot reflects state after ev.
func (m *InteractionMachine) Submit(ctx context.Context, ev domain.Event) (domain.Snapshot, error) {
	done := make(chan outcome, 1)
	select {
	case m.intake <- envelope{ev: ev, done: done}:
	case <-m.stopped:
		return m.Snapshot(), domain.ErrMachineStopped
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}

	select {
	case out := <-done:
		return out.snap, out.err
	case <-m.stopped:
		return m.Snapshot(), domain.ErrMachineStopped
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}

// Snapshot returns the last published state. Safe from any goroutine.
func (m *InteractionMachine) Snapshot() domain.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Endpoints returns the configured endpoint ids.
func (m *InteractionMachine) Endpoints() []string {
	return m.endpoints.Endpoints()
}

// WaitIdle blocks until all out-of-band calls have reported back.
func (m *InteractionMachine) WaitIdle() {
	m.requests.Wait()
}

func (m *InteractionMachine) handle(ctx context.Context, ev domain.Event) (bool, error) {
	if ev == nil {
		return false, fmt.Errorf("%w: nil", domain.ErrUnknownEvent)
	}
	kind := string(ev.Kind())
	metrics.EventsProcessed.WithLabelValues(kind).Inc()

	var (
		changed bool
		err     error
	)
	switch e := ev.(type) {
	case domain.StartDrawing:
		changed = m.startDrawing()
	case domain.StopDrawing:
		changed = m.stopDrawing()
	case domain.PolygonCaptured:
		changed, err = m.onPolygonCaptured(ctx, e)
	case domain.EndpointChanged:
		changed, err = m.onEndpointChanged(ctx, e)
	case domain.QueryResolved:
		changed = m.onQueryResolved(ctx, e)
	case domain.ClearError:
		changed = m.clearError()
	case domain.PingRequested:
		m.requests.Ping(ctx)
	case domain.PingResolved:
		changed = m.pong != e.OK
		m.pong = e.OK
	default:
		err = fmt.Errorf("%w: %T", domain.ErrUnknownEvent, ev)
	}

	if err != nil {
		metrics.EventsRejected.WithLabelValues(kind).Inc()
	}
	return changed, err
}

func (m *InteractionMachine) startDrawing() bool {
	m.aoi.Clear()
	m.query = domain.QueryState{Phase: domain.PhaseIdle}
	m.captureErr = ""
	m.setDrawing(true)
	return true
}

func (m *InteractionMachine) stopDrawing() bool {
	was := m.drawing
	m.setDrawing(false)
	return was
}

func (m *InteractionMachine) onPolygonCaptured(ctx context.Context, e domain.PolygonCaptured) (bool, error) {
	if !m.drawing {
		m.logger.Debug("polygon captured while drawing is inactive, rejecting")
		return false, domain.ErrNotDrawing
	}

	if err := m.aoi.Set(e.Ring); err != nil {
		m.logger.Warn("captured polygon rejected", "error", err)
		m.aoi.Clear()
		m.captureErr = err.Error()
		// The draw tool finished its polygon; hand it back so the user can retry.
		m.setDrawing(true)
		return true, err
	}

	m.captureErr = ""
	m.setDrawing(false)
	m.issueQuery(ctx)
	return true, nil
}

func (m *InteractionMachine) onEndpointChanged(ctx context.Context, e domain.EndpointChanged) (bool, error) {
	previous := m.endpoints.Active()
	if err := m.endpoints.Select(e.EndpointID); err != nil {
		m.logger.Warn("endpoint change rejected", "endpoint", e.EndpointID, "error", err)
		return false, err
	}

	changed := previous != e.EndpointID
	if m.aoi.IsSet() {
		m.issueQuery(ctx)
		changed = true
	}
	return changed, nil
}

func (m *InteractionMachine) onQueryResolved(ctx context.Context, e domain.QueryResolved) bool {
	if m.query.Phase != domain.PhaseFetching || e.Token != m.query.Token {
		metrics.StaleResponses.Inc()
		m.logger.Debug("discarding stale response",
			"token", e.Token,
			"current_token", m.query.Token,
			"endpoint", e.Endpoint,
		)
		return false
	}

	if e.Result.OK {
		m.query.Phase = domain.PhaseSuccess
		m.query.Payload = e.Result.Payload
	} else {
		m.query.Phase = domain.PhaseFailure
		m.query.ErrorMessage = domain.Failed(e.Result.Message).Message
		m.logger.Warn("query failed", "endpoint", m.query.Endpoint, "token", e.Token, "error", m.query.ErrorMessage)
	}

	metrics.QueriesResolved.WithLabelValues(m.query.Endpoint, string(m.query.Phase)).Inc()
	m.record(ctx, e)
	return true
}

func (m *InteractionMachine) clearError() bool {
	changed := false
	if m.query.Phase == domain.PhaseFailure {
		m.query = domain.QueryState{Phase: domain.PhaseIdle}
		changed = true
	}
	if m.captureErr != "" {
		m.captureErr = ""
		changed = true
	}
	return changed
}

// issueQuery supersedes any in-flight request for the current AOI.
func (m *InteractionMachine) issueQuery(ctx context.Context) {
	endpoint := m.endpoints.Active()
	token := m.requests.Start(ctx, endpoint, m.aoi.Geometry())
	m.query = domain.QueryState{
		Phase:     domain.PhaseFetching,
		Token:     token,
		Endpoint:  endpoint,
		StartedAt: time.Now(),
	}
	metrics.QueriesStarted.WithLabelValues(endpoint).Inc()
	m.logger.Debug("query started", "endpoint", endpoint, "token", token)
}

func (m *InteractionMachine) setDrawing(active bool) {
	m.drawing = active
	for _, tool := range m.drawTools {
		if active {
			tool.EnableDrawing()
		} else {
			tool.DisableDrawing()
		}
	}
}

// record writes the query log off the event loop.
func (m *InteractionMachine) record(ctx context.Context, e domain.QueryResolved) {
	if m.queryLog == nil {
		return
	}
	entry := &domain.QueryLogEntry{
		Token:      uint64(e.Token),
		Endpoint:   m.query.Endpoint,
		Outcome:    m.query.Phase,
		AreaSqm:    m.aoi.Area(),
		Message:    m.query.ErrorMessage,
		DurationMs: e.Duration.Milliseconds(),
		ResolvedAt: time.Now().UTC(),
	}
	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := m.queryLog.Insert(wctx, entry); err != nil {
			m.logger.Warn("query log insert failed", "token", entry.Token, "error", err)
		}
	}()
}

func (m *InteractionMachine) publish(ctx context.Context) {
	m.version++
	snap := m.project()

	m.mu.Lock()
	m.current = snap
	m.mu.Unlock()

	metrics.SnapshotVersion.Set(float64(snap.Version))
	for _, p := range m.publishers {
		if err := p.PublishSnapshot(ctx, snap); err != nil {
			m.logger.Warn("snapshot publish failed", "version", snap.Version, "error", err)
		}
	}
}

func (m *InteractionMachine) project() domain.Snapshot {
	snap := domain.Snapshot{
		Version:        m.version,
		DrawingActive:  m.drawing,
		ActiveEndpoint: m.endpoints.Active(),
		Endpoints:      m.endpoints.Endpoints(),
		QueryPhase:     m.query.Phase,
		RequestToken:   m.query.Token,
		Pong:           m.pong,
	}

	if ring := m.aoi.Geometry(); ring != nil {
		snap.AreaOfInterest = geospatial.ToGeoJSON(ring)
		snap.AreaMeasurement = m.aoi.Area()
		bounds := domain.RingBounds(ring)
		snap.AreaBounds = &bounds
	}

	switch m.query.Phase {
	case domain.PhaseSuccess:
		snap.Payload = m.query.Payload
	case domain.PhaseFailure:
		msg := m.query.ErrorMessage
		snap.ErrorMessage = &msg
	}

	if m.captureErr != "" {
		msg := m.captureErr
		snap.CaptureError = &msg
	}
	return snap
}
