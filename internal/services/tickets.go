package services

import (
	"context"
	"sort"
	"strconv"

	"github.com/ymurata/seatboard/internal/errors"
	"github.com/ymurata/seatboard/internal/logger"
	"github.com/ymurata/seatboard/internal/seat"
	"github.com/ymurata/seatboard/pkg/redmine"
)

// pageSize is the page size used for every upstream listing. Pending tickets
// beyond the first page are silently truncated, an accepted limitation.
const pageSize = 100

// SeatDetail is the full ticket listing for the single project mapped to one
// seat. TotalCount is the tracker-reported total, which may exceed
// len(Issues) when the listing was truncated.
type SeatDetail struct {
	Issues     []redmine.Issue
	TotalCount int
}

// StatusGroup is a presentation projection: tickets sharing one status.
type StatusGroup struct {
	StatusID   int
	StatusName string
	Issues     []redmine.Issue
}

// TicketServicer defines the ticket service interface
type TicketServicer interface {
	PendingTickets(ctx context.Context) ([]redmine.Issue, error)
	SeatDetail(ctx context.Context, seatNumber int) (*SeatDetail, error)
	Approve(ctx context.Context, ticketID int) error
	StatusGroups(issues []redmine.Issue) []StatusGroup
}

// TicketService bridges the tracker's project/issue model to the fixed seat
// numbering. It holds no state between calls.
type TicketService struct {
	log              logger.Logger
	client           redmine.Client
	trackerID        int
	pendingStatusID  int
	approvedStatusID int
}

// NewTicketService creates a new TicketService
func NewTicketService(log logger.Logger, client redmine.Client, trackerID, pendingStatusID, approvedStatusID int) *TicketService {
	return &TicketService{
		log:              log,
		client:           client,
		trackerID:        trackerID,
		pendingStatusID:  pendingStatusID,
		approvedStatusID: approvedStatusID,
	}
}

// PendingTickets returns all tickets awaiting review tracker-wide, first page
// only. The caller groups them by seat with GroupBySeat.
func (s *TicketService) PendingTickets(ctx context.Context) ([]redmine.Issue, error) {
	resp, err := s.client.FetchIssues(ctx, redmine.IssueFilter{
		TrackerID: s.trackerID,
		StatusID:  strconv.Itoa(s.pendingStatusID),
		Limit:     pageSize,
	})
	if err != nil {
		return nil, errors.Upstream(err, "failed to fetch pending tickets")
	}

	s.log.Debug("Fetched pending tickets", "count", len(resp.Issues))
	return resp.Issues, nil
}

// SeatDetail returns every ticket of the project mapped to seatNumber,
// regardless of status. The project list is re-fetched on every call: the
// seat mapping changes between course sessions and a stale cache would
// silently hide or misplace tickets.
func (s *TicketService) SeatDetail(ctx context.Context, seatNumber int) (*SeatDetail, error) {
	if !seat.Valid(seatNumber) {
		return nil, errors.Validationf("seat number %d is out of range (%d-%d)", seatNumber, seat.Min, seat.Max)
	}

	project, found, err := s.findProjectForSeat(ctx, seatNumber)
	if err != nil {
		return nil, errors.Upstream(err, "failed to fetch project list")
	}
	if !found {
		// A seat without a registered project is a normal, empty result.
		s.log.Debug("No project mapped to seat", "seat", seatNumber)
		return &SeatDetail{Issues: []redmine.Issue{}}, nil
	}

	resp, err := s.client.FetchIssues(ctx, redmine.IssueFilter{
		ProjectID: project.ID,
		TrackerID: s.trackerID,
		StatusID:  redmine.StatusAll,
		Limit:     pageSize,
	})
	if err != nil {
		return nil, errors.Upstreamf(err, "failed to fetch tickets for project %q", project.Name)
	}

	s.log.Debug("Fetched seat detail", "seat", seatNumber, "project", project.Name, "count", len(resp.Issues))
	return &SeatDetail{Issues: resp.Issues, TotalCount: resp.TotalCount}, nil
}

// findProjectForSeat pages through the project list until it finds a project
// whose name resolves to seatNumber. The scan stops at the first match, so
// when two projects claim the same seat the one listed first by the tracker
// wins. Pagination ends on a short or empty page.
func (s *TicketService) findProjectForSeat(ctx context.Context, seatNumber int) (redmine.Project, bool, error) {
	for offset := 0; ; offset += pageSize {
		projects, err := s.client.FetchProjects(ctx, pageSize, offset)
		if err != nil {
			return redmine.Project{}, false, err
		}
		for _, p := range projects {
			if n, ok := seat.Resolve(p.Name); ok && n == seatNumber {
				return p, true, nil
			}
		}
		if len(projects) < pageSize {
			return redmine.Project{}, false, nil
		}
	}
}

// Approve transitions a ticket to the approved status. The transition is
// unconditional: the current status is not checked first, and a redundant
// write is a no-op at the tracker.
func (s *TicketService) Approve(ctx context.Context, ticketID int) error {
	if ticketID <= 0 {
		return errors.Validationf("invalid ticket id %d", ticketID)
	}

	if err := s.client.UpdateIssueStatus(ctx, ticketID, s.approvedStatusID); err != nil {
		return errors.Upstreamf(err, "failed to approve ticket %d", ticketID)
	}

	s.log.Info("Ticket approved", "ticket", ticketID, "status", s.approvedStatusID)
	return nil
}

// StatusGroups partitions issues by status, the pending-review group first
// and the rest ascending by status id.
func (s *TicketService) StatusGroups(issues []redmine.Issue) []StatusGroup {
	return GroupByStatus(issues, s.pendingStatusID)
}

// GroupBySeat builds the seat index: seat number to the tickets whose project
// resolves to it, preserving the tracker's listing order within each seat.
// Tickets of unrelated projects are dropped. The index is rebuilt from
// scratch on every aggregate fetch.
func GroupBySeat(issues []redmine.Issue) map[int][]redmine.Issue {
	index := make(map[int][]redmine.Issue)
	for _, issue := range issues {
		if n, ok := seat.Resolve(issue.Project.Name); ok {
			index[n] = append(index[n], issue)
		}
	}
	return index
}

// GroupByStatus partitions issues by status name. Groups are ordered so the
// pending-review status sorts first, all others by ascending status id. The
// input slice is never mutated.
func GroupByStatus(issues []redmine.Issue, pendingStatusID int) []StatusGroup {
	byID := make(map[int]*StatusGroup)
	var order []int
	for _, issue := range issues {
		g, ok := byID[issue.Status.ID]
		if !ok {
			g = &StatusGroup{StatusID: issue.Status.ID, StatusName: issue.Status.Name}
			byID[issue.Status.ID] = g
			order = append(order, issue.Status.ID)
		}
		g.Issues = append(g.Issues, issue)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i] == pendingStatusID {
			return order[j] != pendingStatusID
		}
		if order[j] == pendingStatusID {
			return false
		}
		return order[i] < order[j]
	})

	groups := make([]StatusGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, *byID[id])
	}
	return groups
}
