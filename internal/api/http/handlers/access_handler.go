package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-access-service/internal/api/dto"
	"github.com/spec-kit/staff-access-service/internal/auth"
	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/realtime"
	"github.com/spec-kit/staff-access-service/internal/service"
)

// AccessHandler exposes the capability update and reconciliation endpoints.
type AccessHandler struct {
	accessService *service.AccessService
	router        *realtime.Router
}

// NewAccessHandler constructs handler.
func NewAccessHandler(accessService *service.AccessService, router *realtime.Router) *AccessHandler {
	return &AccessHandler{accessService: accessService, router: router}
}

// UpdateAccess handles PUT /staff/members/:id/access. The body carries the
// full requested capability set; the response reports the committed diff or
// that nothing changed.
func (h *AccessHandler) UpdateAccess(c *fiber.Ctx) error {
	owner, err := requireOwnerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AccessUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	requested, err := domain.ParseCapabilitySet(req.Capabilities)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.accessService.UpdateAccess(c.Context(), c.Params("id"), requested, owner.ID)
	if err != nil {
		return err
	}
	if result.NoOp {
		return c.JSON(fiber.Map{"data": fiber.Map{"status": "no_change"}})
	}

	event := result.Event
	return c.JSON(fiber.Map{"data": dto.AccessChangeResponse{
		EventID:    event.ID,
		StaffID:    event.StaffID,
		Added:      event.Added.Names(),
		Removed:    event.Removed.Names(),
		Current:    event.Current.Names(),
		OccurredAt: event.OccurredAt,
	}})
}

// Me handles GET /access/me: the authoritative pull path a staff session
// uses to reconcile its local capability set.
func (h *AccessHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return fiber.NewError(http.StatusUnauthorized, "staff account required")
	}
	capabilities, status, err := h.accessService.EffectiveAccess(c.Context(), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AccessSnapshotResponse{
		StaffID:      principal.Staff.ID,
		Capabilities: capabilities.Names(),
		Status:       string(status),
	}})
}

// Capabilities handles GET /access/capabilities: the fixed catalog.
func (h *AccessHandler) Capabilities(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": domain.CapabilityCatalog()})
}

// Stats handles GET /access/stats.
func (h *AccessHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.router.Stats()})
}
