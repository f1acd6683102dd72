// Package dashboard implements the client side of the seat board: a
// ticker-driven poll of the aggregate endpoint with an atomically replaced
// snapshot, plus the seat-detail and approval calls a board view performs.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ymurata/seatboard/internal/logger"
	"github.com/ymurata/seatboard/internal/services"
	"github.com/ymurata/seatboard/pkg/redmine"
)

// State is the phase of the polling loop
type State int

const (
	StateIdle State = iota
	StateFetching
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the dashboard's entire view of the world at one instant. A
// successful poll replaces the whole snapshot; a failed poll only changes
// State and Err, leaving the previously fetched data displayed. A failed
// fetch means "temporarily unknown", not "zero pending tickets".
type Snapshot struct {
	State       State
	Err         string
	SeatTickets map[int][]redmine.Issue // seat number -> pending tickets, tracker order
	TicketCount int                     // total pending tickets tracker-wide
	LastUpdate  time.Time               // time of the last successful poll
}

// HighlightedSeats returns the seats that currently carry pending tickets,
// in ascending order.
func (s Snapshot) HighlightedSeats() []int {
	seats := make([]int, 0, len(s.SeatTickets))
	for n := range s.SeatTickets {
		seats = append(seats, n)
	}
	sort.Ints(seats)
	return seats
}

// aggregateEnvelope decodes both the success and failure shapes of the
// ticket listing endpoints.
type aggregateEnvelope struct {
	Issues     []redmine.Issue `json:"issues"`
	TotalCount int             `json:"total_count"`
	Error      string          `json:"error"`
}

// approveEnvelope decodes the approval endpoint response.
type approveEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// SeatTickets is the seat-detail listing returned by FetchSeatDetail.
type SeatTickets struct {
	Issues     []redmine.Issue
	TotalCount int
}

// Poller drives the aggregate view of one dashboard against a seat board
// server. At most one ticker-driven fetch is in flight at a time: ticks and
// RefreshNow requests are coalesced by the single poll loop.
type Poller struct {
	log        logger.Logger
	baseURL    string
	httpClient *http.Client
	interval   time.Duration
	refresh    chan struct{}
	onChange   func(Snapshot)

	mu   sync.RWMutex
	snap Snapshot
}

// Option configures the poller
type Option func(*Poller)

// WithHTTPClient overrides the HTTP client used for all calls
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) {
		p.httpClient = c
	}
}

// WithOnChange registers a callback invoked after every completed poll,
// successful or not, with the new snapshot.
func WithOnChange(fn func(Snapshot)) Option {
	return func(p *Poller) {
		p.onChange = fn
	}
}

// New creates a poller for the seat board server at baseURL.
func New(log logger.Logger, baseURL string, interval time.Duration, opts ...Option) *Poller {
	p := &Poller{
		log:        log,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		interval:   interval,
		refresh:    make(chan struct{}, 1),
		snap:       Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the current view.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// RefreshNow requests an out-of-band aggregate fetch. The request is
// coalesced with any refresh already pending.
func (p *Poller) RefreshNow() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled: once immediately, then on every interval
// tick or RefreshNow request.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		case <-p.refresh:
			p.Poll(ctx)
		}
	}
}

// Poll performs one aggregate fetch and updates the snapshot.
func (p *Poller) Poll(ctx context.Context) {
	p.setState(StateFetching)

	issues, err := p.fetchAggregate(ctx)

	p.mu.Lock()
	if err != nil {
		// Keep the stale data on display; only the status changes.
		p.snap.State = StateError
		p.snap.Err = err.Error()
	} else {
		p.snap = Snapshot{
			State:       StateSuccess,
			SeatTickets: services.GroupBySeat(issues),
			TicketCount: len(issues),
			LastUpdate:  time.Now(),
		}
	}
	snap := p.snap
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("Aggregate poll failed", "error", err)
	} else {
		p.log.Debug("Aggregate poll succeeded", "tickets", snap.TicketCount, "seats", len(snap.SeatTickets))
	}

	if p.onChange != nil {
		p.onChange(snap)
	}
}

func (p *Poller) setState(state State) {
	p.mu.Lock()
	p.snap.State = state
	p.mu.Unlock()
}

// fetchAggregate calls GET /api/tickets and returns the raw pending listing.
func (p *Poller) fetchAggregate(ctx context.Context) ([]redmine.Issue, error) {
	var envelope aggregateEnvelope
	if err := p.getJSON(ctx, "/api/tickets", &envelope); err != nil {
		return nil, err
	}
	return envelope.Issues, nil
}

// FetchSeatDetail calls GET /api/tickets/seat/:n. It is independent of the
// polling loop: opening a seat view does not touch the aggregate snapshot.
func (p *Poller) FetchSeatDetail(ctx context.Context, seatNumber int) (*SeatTickets, error) {
	var envelope aggregateEnvelope
	path := fmt.Sprintf("/api/tickets/seat/%d", seatNumber)
	if err := p.getJSON(ctx, path, &envelope); err != nil {
		return nil, err
	}
	return &SeatTickets{Issues: envelope.Issues, TotalCount: envelope.TotalCount}, nil
}

// Approve calls PUT /api/tickets/:id/approve. On success it requests an
// out-of-band aggregate refresh; the caller re-fetches the seat detail
// itself. The two follow-up calls are independent and may race with a poll
// already in flight; the next poll cycle reconciles.
func (p *Poller) Approve(ctx context.Context, ticketID int) error {
	url := fmt.Sprintf("%s/api/tickets/%d/approve", p.baseURL, ticketID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach seat board: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope approveEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !envelope.Success {
		if envelope.Error != "" {
			return fmt.Errorf("approval failed: %s", envelope.Error)
		}
		return fmt.Errorf("approval failed with status %d", resp.StatusCode)
	}

	p.RefreshNow()
	return nil
}

// getJSON fetches a ticket listing endpoint and decodes its envelope. A
// non-200 response carrying an error field is surfaced as that message.
func (p *Poller) getJSON(ctx context.Context, path string, envelope *aggregateEnvelope) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach seat board: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if envelope.Error != "" {
			return fmt.Errorf("seat board error: %s", envelope.Error)
		}
		return fmt.Errorf("seat board returned status %d", resp.StatusCode)
	}

	return nil
}
