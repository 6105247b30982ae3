// auth.go
//
// Sales operations data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of salesops.
// salesops is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// salesops is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with salesops.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/salesops/internal/services"
	"github.com/localnerve/salesops/internal/types"
)

// SessionCookie is the Authorizer session cookie name
const SessionCookie = "cookie_session"

// AuthApprover requires an approver session when an Authorizer is configured;
// without one the route is open.
func AuthApprover(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if auth == nil || !auth.Enabled() {
			return c.Next()
		}
		return authorize(c, auth, []string{services.RoleApprover}, "okr.authorization.approver")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, auth *services.AuthService, roles []string, errorType string) error {
	if err := auth.Init(c.UserContext(), c.Protocol(), c.Hostname()); err != nil {
		return &types.CustomError{
			Code:    fiber.StatusServiceUnavailable,
			Message: fmt.Sprintf("Authorizer unavailable: %v", err),
			Type:    errorType,
		}
	}

	session := c.Cookies(SessionCookie)
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Authorizer cookie %q not found", SessionCookie),
			Type:    errorType,
		}
	}

	user, err := auth.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	c.Locals("user", user)
	return c.Next()
}
