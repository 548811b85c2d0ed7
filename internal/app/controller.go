package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/xoelrdgz/idswatch/internal/domain"
	"github.com/xoelrdgz/idswatch/internal/ports"
)

const (
	DefaultPollInterval  = 3 * time.Second
	DefaultSettleDelay   = 1500 * time.Millisecond
	DefaultDegradedAfter = 5
	DefaultRecentAlerts  = 20
)

type ControllerConfig struct {
	PollInterval  time.Duration
	SettleDelay   time.Duration
	DegradedAfter uint32
	RecentAlerts  int
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		PollInterval:  DefaultPollInterval,
		SettleDelay:   DefaultSettleDelay,
		DegradedAfter: DefaultDegradedAfter,
		RecentAlerts:  DefaultRecentAlerts,
	}
}

// Controller keeps the dashboard's view of the latest alert and the
// historical log list in step with the backend. It owns the polling timer
// and the manual scan lifecycle.
//
// All state lives in one domain.DashboardState value that only changes
// through its transition methods. Network calls run without holding any lock;
// results are applied last-write-wins.
type Controller struct {
	source  ports.AlertSource
	cfg     ControllerConfig
	breaker atomic.Pointer[gobreaker.CircuitBreaker]
	recent  *lru.Cache[domain.EventID, domain.AlertEvent]

	// notifyMu serialises apply+publish so subscribers see states in the
	// order they were produced. mu guards state alone.
	notifyMu sync.Mutex
	mu       sync.Mutex
	state    domain.DashboardState

	subsMu    sync.RWMutex
	stateSubs []ports.StateSubscriber
	alertSubs []ports.AlertSubscriber
	observer  ports.SyncObserver

	pollMu       sync.Mutex
	pollStop     chan struct{}
	pollInterval time.Duration
	followUp     *time.Timer

	// logFetches counts fetches in flight. Guarded by mu.
	logFetches int

	lastPoll   atomic.Int64
	lastPollOK atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

func NewController(source ports.AlertSource, cfg ControllerConfig) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.DegradedAfter == 0 {
		cfg.DegradedAfter = DefaultDegradedAfter
	}
	if cfg.RecentAlerts <= 0 {
		cfg.RecentAlerts = DefaultRecentAlerts
	}

	recent, err := lru.New[domain.EventID, domain.AlertEvent](cfg.RecentAlerts)
	if err != nil {
		// only fails for a non-positive size, which is ruled out above
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:   source,
		cfg:      cfg,
		recent:   recent,
		state:    domain.NewDashboardState(),
		observer: nopObserver{},
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
	c.breaker.Store(c.newBreaker(cfg.PollInterval))
	return c
}

func (c *Controller) AddStateSubscriber(sub ports.StateSubscriber) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.stateSubs = append(c.stateSubs, sub)
}

func (c *Controller) AddAlertSubscriber(sub ports.AlertSubscriber) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.alertSubs = append(c.alertSubs, sub)
}

func (c *Controller) SetObserver(obs ports.SyncObserver) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if obs == nil {
		obs = nopObserver{}
	}
	c.observer = obs
}

// Start loads logs and the latest alert once, then begins polling at the
// configured interval.
func (c *Controller) Start() {
	go func() {
		if err := c.FetchHistoricalLogs(c.ctx); err != nil {
			log.Debug().Err(err).Msg("Initial log fetch failed")
		}
	}()
	go c.PollLatestAlert(c.ctx)
	c.StartPolling(c.cfg.PollInterval)
}

// Close stops polling and abandons a pending post-scan refresh. Requests
// already in flight complete against a cancelled context.
func (c *Controller) Close() {
	c.StopPolling()
	c.pollMu.Lock()
	if c.followUp != nil {
		c.followUp.Stop()
		c.followUp = nil
	}
	c.pollMu.Unlock()
	c.cancel()
}

func (c *Controller) Snapshot() domain.DashboardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// LastPoll returns when the last poll attempt finished and when a poll last
// reached the backend successfully. Zero values mean never.
func (c *Controller) LastPoll() (attempt, success time.Time) {
	if v := c.lastPoll.Load(); v != 0 {
		attempt = time.Unix(0, v)
	}
	if v := c.lastPollOK.Load(); v != 0 {
		success = time.Unix(0, v)
	}
	return attempt, success
}

func (c *Controller) PollInterval() time.Duration {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	if c.pollInterval > 0 {
		return c.pollInterval
	}
	return c.cfg.PollInterval
}

// FetchHistoricalLogs replaces the log list with the backend's, newest
// first. On failure the list is cleared and a SyncError is recorded.
func (c *Controller) FetchHistoricalLogs(ctx context.Context) error {
	_, err := c.fetchLogs(ctx, false)
	return err
}

// RefreshLogs is the operator's refresh action. It does nothing while a
// fetch is already running and reports whether a fetch was issued.
func (c *Controller) RefreshLogs(ctx context.Context) bool {
	issued, _ := c.fetchLogs(ctx, true)
	return issued
}

func (c *Controller) fetchLogs(ctx context.Context, guarded bool) (bool, error) {
	issued := false
	c.apply(func(s domain.DashboardState) (domain.DashboardState, bool) {
		if guarded && s.LogsLoading {
			return s, false
		}
		issued = true
		c.logFetches++
		return s.BeginLogs()
	})
	if !issued {
		return false, nil
	}

	start := c.now()
	entries, err := c.source.FetchLogs(ctx)
	elapsed := c.now().Sub(start)
	c.obs().ObserveLogFetch(elapsed.Seconds(), err == nil)

	if err != nil {
		log.Warn().Err(err).Msg("Failed to load historical logs")
		now := c.now()
		c.apply(func(s domain.DashboardState) (domain.DashboardState, bool) {
			next, changed := s.LogsFailed(now)
			return c.finishLogFetch(next), changed
		})
		return true, err
	}

	c.apply(func(s domain.DashboardState) (domain.DashboardState, bool) {
		next, changed := s.WithLogs(entries)
		return c.finishLogFetch(next), changed
	})
	log.Debug().Int("count", len(entries)).Dur("elapsed", elapsed).Msg("Historical logs refreshed")
	return true, nil
}

// finishLogFetch keeps LogsLoading set while another fetch is still running.
// Called with mu held.
func (c *Controller) finishLogFetch(s domain.DashboardState) domain.DashboardState {
	c.logFetches--
	if c.logFetches > 0 {
		s, _ = s.BeginLogs()
	}
	return s
}

// PollLatestAlert reads the newest alert and holds it if its identifier is
// new. Empty answers and failures keep the held alert and are not surfaced.
func (c *Controller) PollLatestAlert(ctx context.Context) {
	cb := c.breaker.Load()
	res, err := cb.Execute(func() (interface{}, error) {
		return c.source.LatestAlert(ctx)
	})

	now := c.now()
	c.lastPoll.Store(now.UnixNano())

	var incoming *domain.AlertEvent
	result := ports.PollUnchanged
	switch {
	case err == nil:
		c.lastPollOK.Store(now.UnixNano())
		incoming, _ = res.(*domain.AlertEvent)
	case domain.IsEmptyResponse(err):
		c.lastPollOK.Store(now.UnixNano())
		result = ports.PollEmpty
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = ports.PollSkipped
	default:
		result = ports.PollError
		log.Debug().Err(err).Msg("Alert poll failed")
	}

	var replaced *domain.AlertEvent
	c.apply(func(s domain.DashboardState) (domain.DashboardState, bool) {
		next, alertChanged := s.WithAlert(incoming, now)
		if alertChanged {
			replaced = next.LatestAlert
			next = next.WithRecent(c.remember(*next.LatestAlert))
		}
		next, loadingChanged := next.PollFinished()
		return next, alertChanged || loadingChanged
	})

	if replaced != nil {
		result = ports.PollNew
		log.Info().
			Str("id", string(replaced.ID)).
			Str("severity", string(replaced.Severity)).
			Str("type", replaced.Type).
			Str("source", replaced.SourceString()).
			Msg("New alert received")
		c.publishAlert(replaced)
	}
	c.obs().ObservePoll(result)
}

// TriggerScan asks the backend for an immediate detection pass. It returns
// false without doing anything while a previous scan is still running. On
// success one poll and one log fetch follow after the settling delay.
func (c *Controller) TriggerScan(ctx context.Context) bool {
	started := c.apply(func(s domain.DashboardState) (domain.DashboardState, bool) {
		return s.BeginScan()
	})
	if !started {
		c.obs().ObserveScan(ports.ScanOutcomeRejected)
		return false
	}
	log.Info().Msg("Detection scan requested")

	msg, err := c.source.TriggerDetection(ctx)
	if err != nil {
		reason := domain.MessageFrom(err, domain.MsgScanFailed)
		log.Warn().Err(err).Str("reason", reason).Msg("Detection scan failed")
		now := c.now()
		c.apply(func(s domain.DashboardState) (domain.DashboardState, bool) {
			return s.ScanFailed(reason, now)
		})
		c.obs().ObserveScan(ports.ScanOutcomeFailed)
		return true
	}

	c.apply(func(s domain.DashboardState) (domain.DashboardState, bool) {
		return s.ScanCompleted(msg)
	})
	c.obs().ObserveScan(ports.ScanOutcomeCompleted)
	log.Info().Str("message", msg).Msg("Detection scan completed")

	c.scheduleFollowUp()
	return true
}

func (c *Controller) scheduleFollowUp() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	c.followUp = time.AfterFunc(c.cfg.SettleDelay, func() {
		if c.ctx.Err() != nil {
			return
		}
		c.PollLatestAlert(c.ctx)
		if err := c.FetchHistoricalLogs(c.ctx); err != nil {
			log.Debug().Err(err).Msg("Post-scan log refresh failed")
		}
	})
}

// StartPolling runs PollLatestAlert every interval until StopPolling. A
// running timer is replaced, so there is never more than one.
func (c *Controller) StartPolling(interval time.Duration) {
	if interval <= 0 {
		interval = c.cfg.PollInterval
	}

	c.pollMu.Lock()
	c.stopPollingLocked()
	replaced := interval != c.pollInterval && c.pollInterval != 0
	if replaced {
		c.breaker.Store(c.newBreaker(interval))
	}
	c.pollInterval = interval

	stop := make(chan struct{})
	c.pollStop = stop
	c.pollMu.Unlock()

	// the new breaker starts closed and never reports that transition
	if replaced {
		c.setDegraded(false)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				c.PollLatestAlert(c.ctx)
			}
		}
	}()

	log.Debug().Dur("interval", interval).Msg("Alert polling started")
}

// StopPolling cancels the timer. An in-flight poll is not aborted and may
// still apply its result.
func (c *Controller) StopPolling() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	c.stopPollingLocked()
}

func (c *Controller) stopPollingLocked() {
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
		log.Debug().Msg("Alert polling stopped")
	}
}

func (c *Controller) IsPolling() bool {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	return c.pollStop != nil
}

// newBreaker trips after DegradedAfter consecutive poll failures. Its
// timeout is half the poll interval so each tick still probes the backend.
func (c *Controller) newBreaker(interval time.Duration) *gobreaker.CircuitBreaker {
	var cb *gobreaker.CircuitBreaker
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "latest-alert",
		MaxRequests: 1,
		Timeout:     interval / 2,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.cfg.DegradedAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domain.IsEmptyResponse(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			// a replaced breaker may still finish an in-flight poll
			if c.breaker.Load() != cb {
				return
			}
			degraded := to != gobreaker.StateClosed
			if degraded {
				log.Warn().Str("breaker", name).Str("state", to.String()).Msg("Backend polls failing, live feed degraded")
			} else {
				log.Info().Str("breaker", name).Msg("Backend polls recovered")
			}
			c.setDegraded(degraded)
		},
	})
	return cb
}

func (c *Controller) setDegraded(degraded bool) {
	c.apply(func(s domain.DashboardState) (domain.DashboardState, bool) {
		return s.WithDegraded(degraded)
	})
	c.obs().SetDegraded(degraded)
}

// remember records a newly held alert and returns the recent list, newest
// first. Called with mu held.
func (c *Controller) remember(alert domain.AlertEvent) []domain.AlertEvent {
	if c.recent.Contains(alert.ID) {
		log.Debug().Str("id", string(alert.ID)).Msg("Previously seen alert is latest again")
	}
	c.recent.Add(alert.ID, alert)

	values := c.recent.Values()
	out := make([]domain.AlertEvent, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}

// apply runs one state transition and, if it changed anything, publishes
// the new snapshot. It reports whether the state changed.
func (c *Controller) apply(transition func(domain.DashboardState) (domain.DashboardState, bool)) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	next, changed := transition(c.state)
	if !changed {
		c.mu.Unlock()
		return false
	}
	c.state = next
	snap := next.Clone()
	c.mu.Unlock()

	c.subsMu.RLock()
	subs := c.stateSubs
	c.subsMu.RUnlock()
	for _, sub := range subs {
		sub.OnStateChange(snap)
	}
	return true
}

func (c *Controller) publishAlert(alert *domain.AlertEvent) {
	c.subsMu.RLock()
	subs := c.alertSubs
	c.subsMu.RUnlock()
	for _, sub := range subs {
		a := *alert
		sub.OnAlert(&a)
	}
}

func (c *Controller) obs() ports.SyncObserver {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return c.observer
}

type nopObserver struct{}

func (nopObserver) ObservePoll(string)            {}
func (nopObserver) ObserveLogFetch(float64, bool) {}
func (nopObserver) ObserveScan(string)            {}
func (nopObserver) SetDegraded(bool)              {}
