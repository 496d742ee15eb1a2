package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-access-service/internal/domain"
)

// RequireOwner ensures an OWNER account is authenticated.
func RequireOwner() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeOwner || principal.Owner == nil {
			return fiber.NewError(http.StatusForbidden, "owner account required")
		}
		return c.Next()
	}
}

// RequireStaff ensures a STAFF account is authenticated.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeStaff || principal.Staff == nil {
			return fiber.NewError(http.StatusForbidden, "staff account required")
		}
		return c.Next()
	}
}

// RequireCapability ensures the staff principal currently holds every listed
// capability. The check reads the persisted set loaded by the auth
// middleware, not the token snapshot.
func RequireCapability(required ...domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return fiber.NewError(http.StatusForbidden, "staff account required")
		}
		for _, capability := range required {
			if !principal.Staff.Capabilities.Has(capability) {
				return fiber.NewError(http.StatusForbidden, "capability "+capability.String()+" required")
			}
		}
		return c.Next()
	}
}

// RequireAnySubject ensures the caller is authenticated (owner or staff).
func RequireAnySubject() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
