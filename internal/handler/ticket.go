package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tickethub/tickethub/internal/booking"
	"github.com/tickethub/tickethub/internal/middleware"
	"github.com/tickethub/tickethub/internal/model"
	"github.com/tickethub/tickethub/internal/queue"
	"github.com/tickethub/tickethub/internal/repository"
	"github.com/tickethub/tickethub/internal/utils"
)

// TicketHandler serves booking, cancellation and ticket lookups.
type TicketHandler struct {
	Engine    *booking.Engine
	Query     *booking.Query
	Events    *repository.EventRepo
	Publisher *queue.Publisher
}

func NewTicketHandler(engine *booking.Engine, query *booking.Query, events *repository.EventRepo, pub *queue.Publisher) *TicketHandler {
	return &TicketHandler{Engine: engine, Query: query, Events: events, Publisher: pub}
}

type bookReq struct {
	SeatNumber string `json:"seat_number" validate:"required,max=16"`
}

type verifyReq struct {
	Token string `json:"token" validate:"required"`
}

// Book reserves a seat for the authenticated user. Exactly one of the
// concurrent requests for the same seat gets a ticket; the rest see
// 409.
func (h *TicketHandler) Book(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	uid := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticket, err := h.Engine.Book(ctx, eventID, req.SeatNumber, uid)
	if err != nil {
		return h.bookError(c, err)
	}

	// Lifecycle events ride the broker; a broker outage never fails
	// the booking.
	if h.Publisher.Enabled() {
		go h.publishBooked(ticket)
	}

	return c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) publishBooked(ticket *model.Ticket) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	title := ""
	if ev, err := h.Events.GetEvent(ctx, ticket.EventID); err == nil {
		title = ev.Title
	}
	_ = h.Publisher.PublishBooked(ctx, queue.TicketBookedEvent{
		TicketID:   ticket.ID,
		EventID:    ticket.EventID,
		EventTitle: title,
		SeatNumber: ticket.SeatNumber,
		HolderID:   ticket.HolderID,
		PriceCents: ticket.PriceCents,
		BookedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *TicketHandler) bookError(c echo.Context, err error) error {
	var se *booking.StorageError
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, booking.ErrEventInPast):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event already started"})
	case errors.Is(err, booking.ErrSeatUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat unavailable"})
	case errors.As(err, &se):
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":       "booking failed, seat may need manual release",
			"event_id":    se.EventID,
			"seat_number": se.SeatNumber,
			"attempt_id":  se.AttemptID,
		})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
}

// Cancel releases a ticket. Holders cancel their own; admins cancel
// any.
func (h *TicketHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	uid := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticket, err := h.Query.Ticket(ctx, id, uid, true)
	if err != nil && !errors.Is(err, repository.ErrTicketNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Engine.Cancel(ctx, id, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case errors.Is(err, booking.ErrNotOwner):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not ticket owner"})
		case errors.Is(err, booking.ErrAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already cancelled"})
		case errors.Is(err, booking.ErrCannotCancelCheckedIn):
			return c.JSON(http.StatusConflict, echo.Map{"error": "cannot cancel a checked-in ticket"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}

	if ticket != nil && h.Publisher.Enabled() {
		go h.publishCancelled(ticket)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "ticket cancelled"})
}

func (h *TicketHandler) publishCancelled(ticket *model.Ticket) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.Publisher.PublishCancelled(ctx, queue.TicketCancelledEvent{
		TicketID:    ticket.ID,
		EventID:     ticket.EventID,
		SeatNumber:  ticket.SeatNumber,
		HolderID:    ticket.HolderID,
		CancelledAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// Mine lists the authenticated user's tickets, newest first.
func (h *TicketHandler) Mine(c echo.Context) error {
	uid := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tickets, err := h.Query.TicketsOf(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// QR renders the ticket's entry token as a PNG QR code.
func (h *TicketHandler) QR(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	uid := middleware.UserID(c)
	admin := middleware.Role(c) == "ADMIN"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ticket, err := h.Query.Ticket(ctx, id, uid, admin)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case errors.Is(err, booking.ErrNotOwner):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not ticket owner"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	png, err := utils.TicketQR(ticket.Token, 256)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render qr failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Verify checks a presented entry token against the ledger and, when
// valid, checks the ticket in. Admin only; this is the gate scanner
// endpoint.
func (h *TicketHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticket, err := h.Engine.VerifyToken(ctx, req.Token)
	if err != nil {
		return h.checkinError(c, err)
	}
	checked, err := h.Engine.CheckIn(ctx, ticket.ID)
	if err != nil {
		return h.checkinError(c, err)
	}
	return c.JSON(http.StatusOK, checked)
}

// CheckIn marks a ticket as used by ID, for manual gate entry.
// Admin only.
func (h *TicketHandler) CheckIn(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticket, err := h.Engine.CheckIn(ctx, id)
	if err != nil {
		return h.checkinError(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) checkinError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, booking.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid ticket token"})
	case errors.Is(err, booking.ErrTicketCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is cancelled"})
	case errors.Is(err, booking.ErrAlreadyCheckedIn):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already checked in"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
}
