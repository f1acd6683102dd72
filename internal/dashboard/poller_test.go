package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ymurata/seatboard/internal/logger"
	"github.com/ymurata/seatboard/pkg/redmine"
)

func courseIssue(id, seatNum int) redmine.Issue {
	return redmine.Issue{
		ID:      id,
		Subject: fmt.Sprintf("チケット %d", id),
		Project: redmine.Ref{ID: 100 + seatNum, Name: fmt.Sprintf("組み込みシステム基礎 (%d)", seatNum)},
		Status:  redmine.Ref{ID: 4, Name: "審査待ち"},
	}
}

// boardStub is a switchable fake seat board server.
type boardStub struct {
	fail   atomic.Bool
	issues atomic.Value // []redmine.Issue
}

func (b *boardStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tickets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if b.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":  "failed to fetch pending tickets",
				"issues": []redmine.Issue{},
			})
			return
		}
		issues, _ := b.issues.Load().([]redmine.Issue)
		json.NewEncoder(w).Encode(map[string]interface{}{"issues": issues})
	})
	return mux
}

func TestPoll_SuccessReplacesSnapshot(t *testing.T) {
	stub := &boardStub{}
	stub.issues.Store([]redmine.Issue{courseIssue(1, 3), courseIssue(2, 5), courseIssue(3, 3)})
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Minute)

	if got := p.Snapshot().State; got != StateIdle {
		t.Fatalf("expected initial state idle, got %v", got)
	}

	p.Poll(context.Background())

	snap := p.Snapshot()
	if snap.State != StateSuccess {
		t.Fatalf("expected state success, got %v (%s)", snap.State, snap.Err)
	}
	if snap.TicketCount != 3 {
		t.Errorf("expected 3 tickets, got %d", snap.TicketCount)
	}
	if seats := snap.HighlightedSeats(); len(seats) != 2 || seats[0] != 3 || seats[1] != 5 {
		t.Errorf("expected highlighted seats [3 5], got %v", seats)
	}
	if len(snap.SeatTickets[3]) != 2 {
		t.Errorf("expected 2 tickets on seat 3, got %d", len(snap.SeatTickets[3]))
	}
	if snap.LastUpdate.IsZero() {
		t.Error("expected LastUpdate to be set")
	}
}

func TestPoll_FailurePreservesPreviousHighlights(t *testing.T) {
	stub := &boardStub{}
	stub.issues.Store([]redmine.Issue{courseIssue(1, 7)})
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Minute)
	p.Poll(context.Background())

	before := p.Snapshot()
	if before.State != StateSuccess {
		t.Fatalf("setup poll failed: %s", before.Err)
	}

	stub.fail.Store(true)
	p.Poll(context.Background())

	snap := p.Snapshot()
	if snap.State != StateError {
		t.Fatalf("expected state error, got %v", snap.State)
	}
	if snap.Err == "" {
		t.Error("expected an error message")
	}
	// A failed poll means "temporarily unknown": the previous highlights
	// stay on display and the last-updated time is untouched.
	if seats := snap.HighlightedSeats(); len(seats) != 1 || seats[0] != 7 {
		t.Errorf("expected stale highlights [7] preserved, got %v", seats)
	}
	if snap.TicketCount != before.TicketCount {
		t.Errorf("expected ticket count preserved, got %d", snap.TicketCount)
	}
	if !snap.LastUpdate.Equal(before.LastUpdate) {
		t.Error("expected LastUpdate preserved across a failed poll")
	}
}

func TestPoll_RecoveryReplacesErrorState(t *testing.T) {
	stub := &boardStub{}
	stub.fail.Store(true)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Minute)
	p.Poll(context.Background())
	if p.Snapshot().State != StateError {
		t.Fatal("setup: expected error state")
	}

	stub.fail.Store(false)
	stub.issues.Store([]redmine.Issue{courseIssue(1, 12)})
	p.Poll(context.Background())

	snap := p.Snapshot()
	if snap.State != StateSuccess {
		t.Fatalf("expected recovery to success, got %v (%s)", snap.State, snap.Err)
	}
	if snap.Err != "" {
		t.Errorf("expected error cleared, got %q", snap.Err)
	}
	if seats := snap.HighlightedSeats(); len(seats) != 1 || seats[0] != 12 {
		t.Errorf("expected highlights [12], got %v", seats)
	}
}

func TestPoll_OnChangeCallback(t *testing.T) {
	stub := &boardStub{}
	stub.issues.Store([]redmine.Issue{courseIssue(1, 3)})
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	var calls int
	p := New(logger.Noop{}, server.URL, time.Minute, WithOnChange(func(snap Snapshot) {
		calls++
		if snap.State != StateSuccess {
			t.Errorf("expected success snapshot in callback, got %v", snap.State)
		}
	}))
	p.Poll(context.Background())

	if calls != 1 {
		t.Errorf("expected 1 callback, got %d", calls)
	}
}

func TestRun_PollsImmediatelyAndStopsOnCancel(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{"issues": []redmine.Issue{}})
	}))
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// The first poll happens before the first tick.
	deadline := time.After(2 * time.Second)
	for polls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no poll within 2s of Run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}

func TestRun_RefreshNowTriggersPoll(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{"issues": []redmine.Issue{}})
	}))
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	deadline := time.After(2 * time.Second)
	for polls.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("no initial poll")
		case <-time.After(10 * time.Millisecond):
		}
	}

	p.RefreshNow()
	deadline = time.After(2 * time.Second)
	for polls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("RefreshNow did not trigger a poll")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFetchSeatDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tickets/seat/5", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"issues":      []redmine.Issue{courseIssue(7, 5)},
			"total_count": 9,
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Minute)
	detail, err := p.FetchSeatDetail(context.Background(), 5)
	if err != nil {
		t.Fatalf("FetchSeatDetail failed: %v", err)
	}
	if len(detail.Issues) != 1 || detail.Issues[0].ID != 7 {
		t.Errorf("unexpected issues %v", detail.Issues)
	}
	if detail.TotalCount != 9 {
		t.Errorf("expected total_count 9, got %d", detail.TotalCount)
	}
}

func TestFetchSeatDetail_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "seat number 81 is out of range (1-80)",
			"issues": []redmine.Issue{},
		})
	}))
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Minute)
	_, err := p.FetchSeatDetail(context.Background(), 81)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestApprove_SuccessRequestsRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/tickets/42/approve", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "ticket 42 approved",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Minute)
	if err := p.Approve(context.Background(), 42); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	// A successful approval queues an out-of-band aggregate refresh.
	select {
	case <-p.refresh:
	default:
		t.Error("expected a refresh request after approval")
	}
}

func TestApprove_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "failed to approve ticket 42",
		})
	}))
	defer server.Close()

	p := New(logger.Noop{}, server.URL, time.Minute)
	err := p.Approve(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error")
	}

	select {
	case <-p.refresh:
		t.Error("failed approval must not queue a refresh")
	default:
	}
}
