package access

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// Identity is the authenticated caller. Email is lowercase.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// SetIdentity stores the caller in the gin context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ContextUserID, id.UserID)
	c.Set(ContextUserEmail, id.Email)
}

// IdentityFrom returns the caller set by the JWT middleware, or nil.
func IdentityFrom(c *gin.Context) *Identity {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return nil
	}
	userID, ok := v.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return nil
	}
	return &Identity{UserID: userID, Email: c.GetString(ContextUserEmail)}
}
