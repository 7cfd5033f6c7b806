package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tickethub/tickethub/internal/booking"
	"github.com/tickethub/tickethub/internal/middleware"
	"github.com/tickethub/tickethub/internal/model"
	"github.com/tickethub/tickethub/internal/repository"
)

// EventHandler serves event management and browsing.
type EventHandler struct {
	Events *repository.EventRepo
	Seats  *repository.SeatRepo
	Query  *booking.Query
}

func NewEventHandler(events *repository.EventRepo, seats *repository.SeatRepo, query *booking.Query) *EventHandler {
	return &EventHandler{Events: events, Seats: seats, Query: query}
}

type createEventReq struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Venue       string `json:"venue" validate:"required,max=200"`
	StartsAt    string `json:"starts_at" validate:"required"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
	SeatCount   uint32 `json:"seat_count" validate:"required,gte=1,lte=10000"`
}

type updatePriceReq struct {
	PriceCents int64 `json:"price_cents" validate:"gte=0"`
}

// Create makes a new event with its seat set S1..SN. Admin only.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ev := &model.Event{
		OrganizerID: middleware.UserID(c),
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    startsAt.UTC(),
		PriceCents:  req.PriceCents,
		SeatCount:   req.SeatCount,
	}
	if err := h.Events.Create(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrValidation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, ev)
}

// List returns event summaries. Query params: q filters by title
// substring, status is one of upcoming (default), past, all.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Query.ListEvents(ctx, c.QueryParam("q"), c.QueryParam("status"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Get returns one event in full, including the per-seat occupancy
// map.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	seats, err := h.Seats.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev, "seats": seats})
}

// AvailableSeats lists the free seats of an event.
func (h *EventHandler) AvailableSeats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seats, err := h.Query.AvailableSeats(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "available_seats": seats})
}

// UpdatePrice changes the price for future bookings only. Admin only.
func (h *EventHandler) UpdatePrice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req updatePriceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.UpdatePrice(ctx, id, req.PriceCents); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update price failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "price_cents": req.PriceCents})
}

// Stats returns the sales dashboard numbers for one event. Admin only.
func (h *EventHandler) Stats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Query.Stats(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, stats)
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
