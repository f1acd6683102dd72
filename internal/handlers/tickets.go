package handlers

import (
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ymurata/seatboard/internal/seat"
	"github.com/ymurata/seatboard/pkg/redmine"
)

// handleIndex serves the seat board page, rendered from the fixed classroom
// layout.
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":      "2025年度 プロジェクト実習（組み込みシステム基礎）座席表",
		"Classrooms": seat.Layout(),
	}
	h.templates.Index.Execute(w, data)
}

// handleGetTickets returns all tickets awaiting review tracker-wide. Grouping
// by seat happens client-side so the payload stays the raw tracker listing.
func (h *Handlers) handleGetTickets(w http.ResponseWriter, r *http.Request) {
	issues, err := h.Tickets.PendingTickets(r.Context())
	if err != nil {
		respondTicketsError(w, err)
		return
	}
	if issues == nil {
		issues = []redmine.Issue{}
	}
	respondJSON(w, http.StatusOK, TicketsResponse{Issues: issues})
}

// handleGetSeatTickets returns every ticket of the project mapped to one
// seat, in all statuses. A seat with no registered project is an empty
// result, not an error; a seat outside the classroom range is rejected
// before any tracker call is made.
func (h *Handlers) handleGetSeatTickets(w http.ResponseWriter, r *http.Request) {
	seatNumber, err := parseIntParam(r, "seatNumber")
	if err != nil {
		respondTicketsError(w, err)
		return
	}

	detail, err := h.Tickets.SeatDetail(r.Context(), seatNumber)
	if err != nil {
		respondTicketsError(w, err)
		return
	}

	issues := detail.Issues
	if issues == nil {
		issues = []redmine.Issue{}
	}
	respondJSON(w, http.StatusOK, SeatTicketsResponse{
		Issues:     issues,
		TotalCount: detail.TotalCount,
	})
}

// handleApproveTicket transitions one ticket to the approved status and
// notifies connected dashboards so they refresh ahead of the next poll.
func (h *Handlers) handleApproveTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := parseIntParam(r, "id")
	if err != nil {
		respondApproveError(w, err)
		return
	}

	if err := h.Tickets.Approve(r.Context(), ticketID); err != nil {
		respondApproveError(w, err)
		return
	}

	if h.Hub != nil {
		h.Hub.BroadcastTicketsUpdated(ticketID)
	}

	respondJSON(w, http.StatusOK, ApproveResponse{
		Success: true,
		Message: fmt.Sprintf("ticket %d approved", ticketID),
	})
}

// handleDashboardQR returns a PNG QR code of the dashboard URL so reviewers
// can open the board on their own device from the classroom screen.
func (h *Handlers) handleDashboardQR(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/", scheme, r.Host)

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate QR code"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
