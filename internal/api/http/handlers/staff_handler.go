package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-access-service/internal/api/dto"
	"github.com/spec-kit/staff-access-service/internal/auth"
	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/realtime"
	"github.com/spec-kit/staff-access-service/internal/service"
)

// StaffHandler exposes staff auth and owner-scoped staff management.
type StaffHandler struct {
	authService  *service.AuthService
	staffService *service.StaffService
	registry     *realtime.Registry
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, staffService *service.StaffService, registry *realtime.Registry) *StaffHandler {
	return &StaffHandler{authService: authService, staffService: staffService, registry: registry}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	staff, token, exp, err := h.authService.LoginStaff(c.Context(), req.Email, req.Password)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": h.staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// CreateStaff handles POST /staff/members.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	owner, err := requireOwnerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "name, email, password required")
	}
	capabilities, err := domain.ParseCapabilitySet(req.Capabilities)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	staff, err := h.staffService.CreateStaff(c.Context(), owner, req.Name, req.Email, req.Password, capabilities)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.staffResponse(staff)})
}

// ListStaff handles GET /staff/members.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	owner, err := requireOwnerPrincipal(c)
	if err != nil {
		return err
	}
	filters := parseStaffListFilters(c)
	list, err := h.staffService.ListStaff(c.Context(), owner, filters)
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, h.staffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetStaff handles GET /staff/members/:id.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	owner, err := requireOwnerPrincipal(c)
	if err != nil {
		return err
	}
	staff, err := h.staffService.GetStaff(c.Context(), owner, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.staffResponse(staff)})
}

// UpdateStaff handles PUT /staff/members/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	owner, err := requireOwnerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	staff, err := h.staffService.UpdateProfile(c.Context(), owner, c.Params("id"), req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.staffResponse(staff)})
}

// SetStaffStatus handles PUT /staff/members/:id/status.
func (h *StaffHandler) SetStaffStatus(c *fiber.Ctx) error {
	owner, err := requireOwnerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	staff, err := h.staffService.SetStatus(c.Context(), owner, c.Params("id"), domain.StaffStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.staffResponse(staff)})
}

func requireOwnerPrincipal(c *fiber.Ctx) (*domain.OwnerAccount, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Owner == nil {
		return nil, fiber.NewError(http.StatusUnauthorized, "owner account required")
	}
	return principal.Owner, nil
}

func parseStaffListFilters(c *fiber.Ctx) service.StaffListFilters {
	var filters service.StaffListFilters
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.StaffStatus(statusStr)
		filters.Status = &status
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)
	filters.Offset = (page - 1) * pageSize
	filters.Limit = pageSize
	return filters
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

func (h *StaffHandler) staffResponse(staff *domain.StaffAccount) dto.StaffResponse {
	online := staff.Online
	if h.registry != nil {
		online = h.registry.Count(staff.ID) > 0
	}
	return dto.StaffResponse{
		ID:           staff.ID,
		OwnerID:      staff.OwnerID,
		Name:         staff.Name,
		Email:        staff.Email,
		Capabilities: staff.Capabilities.Names(),
		Status:       string(staff.Status),
		Online:       online,
	}
}
