package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seller-rotation/internal/service"
)

// RotationHandler exposes the rotation engine over HTTP.
type RotationHandler struct {
	Engine *service.Engine
}

// NewRotationHandler panics when engine is nil.
func NewRotationHandler(engine *service.Engine) *RotationHandler {
	if engine == nil {
		panic("nil engine passed to NewRotationHandler")
	}
	return &RotationHandler{Engine: engine}
}

type startDayRequest struct {
	Sellers []string `json:"sellers"`
}

type sellerRequest struct {
	Seller string `json:"seller"`
}

// mutationContext detaches a mutation from client disconnects so the
// transaction always runs to commit or rollback.
func mutationContext(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}

// bindSeller decodes {"seller": "..."}; a missing field falls through to
// the engine, which rejects the empty name.
func bindSeller(c echo.Context) (string, bool) {
	var body sellerRequest
	if err := c.Bind(&body); err != nil {
		return "", false
	}
	return body.Seller, true
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body", "reason": "invalid_body"})
}

// writeError maps engine errors onto status codes.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch service.ErrorKind(err) {
	case "validation":
		status = http.StatusBadRequest
	case "not_found":
		status = http.StatusNotFound
	case "conflict":
		status = http.StatusConflict
	case "storage":
		status = http.StatusServiceUnavailable
	}
	reason := string(service.ErrorReason(err))
	if reason == "" {
		reason = "internal"
	}
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		// driver messages stay in the logs
		msg = "storage unavailable"
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	return c.JSON(status, echo.Map{"error": msg, "reason": reason})
}

// State handles GET /api/state.
func (h *RotationHandler) State(c echo.Context) error {
	st, err := h.Engine.GetState(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Stats handles GET /api/stats.
func (h *RotationHandler) Stats(c echo.Context) error {
	st, err := h.Engine.GetStats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// StartDay handles POST /api/day/start.
func (h *RotationHandler) StartDay(c echo.Context) error {
	var body startDayRequest
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	if err := h.Engine.StartDay(mutationContext(c), body.Sellers); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "day started"})
}

// AddSeller handles POST /api/sellers.
func (h *RotationHandler) AddSeller(c echo.Context) error {
	name, ok := bindSeller(c)
	if !ok {
		return invalidBody(c)
	}
	added, err := h.Engine.AddSeller(mutationContext(c), name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "seller": added})
}

// TakeCustomer handles POST /api/customers/take.
func (h *RotationHandler) TakeCustomer(c echo.Context) error {
	name, ok := bindSeller(c)
	if !ok {
		return invalidBody(c)
	}
	a, err := h.Engine.TakeCustomer(mutationContext(c), name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "customer_id": a.ID})
}

// AbandonCustomer handles POST /api/customers/abandon.
func (h *RotationHandler) AbandonCustomer(c echo.Context) error {
	return h.sellerAction(c, h.Engine.AbandonCustomer)
}

// RecordSale handles POST /api/sales.
func (h *RotationHandler) RecordSale(c echo.Context) error {
	return h.sellerAction(c, h.Engine.RecordSale)
}

// RecordDirectSale handles POST /api/sales/direct.
func (h *RotationHandler) RecordDirectSale(c echo.Context) error {
	return h.sellerAction(c, h.Engine.RecordDirectSale)
}

func (h *RotationHandler) sellerAction(c echo.Context, action func(context.Context, string) error) error {
	name, ok := bindSeller(c)
	if !ok {
		return invalidBody(c)
	}
	if err := action(mutationContext(c), name); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// EndDay handles POST /api/day/end and returns the closed day's export.
func (h *RotationHandler) EndDay(c echo.Context) error {
	export, err := h.Engine.EndDay(mutationContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "day ended", "export": export})
}

// Reset handles POST /api/reset.
func (h *RotationHandler) Reset(c echo.Context) error {
	if err := h.Engine.ResetAll(mutationContext(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "all data reset"})
}
