package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/pkg/response"
)

// ContextMembership is the key for the caller's authorized membership in gin context.
const ContextMembership = "membership"

// RequireWorkspaceRole authorizes the caller on the workspace named by the :id route param.
func RequireWorkspaceRole(guard *access.Guard, minRole permissions.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, ok := workspaceParam(c)
		if !ok {
			return
		}
		m, ok := guard.AuthorizeOrAbort(c, workspaceID, minRole)
		if !ok {
			return
		}
		c.Set(ContextMembership, m)
		c.Next()
	}
}

// RequireWorkspacePermission is RequireWorkspaceRole keyed by a permission.
func RequireWorkspacePermission(guard *access.Guard, key permissions.Key) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, ok := workspaceParam(c)
		if !ok {
			return
		}
		m, ok := guard.PermissionOrAbort(c, workspaceID, key)
		if !ok {
			return
		}
		c.Set(ContextMembership, m)
		c.Next()
	}
}

// Membership returns the membership set by RequireWorkspaceRole.
func Membership(c *gin.Context) *models.Membership {
	m, _ := c.MustGet(ContextMembership).(*models.Membership)
	return m
}

func workspaceParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		c.Abort()
		return uuid.Nil, false
	}
	return id, true
}
