package activeworkspace

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CookieName holds the untrusted active-workspace hint.
	CookieName = "active_workspace"
	// CookieMaxAge is how long the browser keeps the hint.
	CookieMaxAge = 30 * 24 * time.Hour
)

// Cookies reads and writes the active-workspace cookie.
type Cookies struct {
	Secure bool
}

// Set points the caller's active workspace at workspaceID.
func (k Cookies) Set(c *gin.Context, workspaceID uuid.UUID) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    workspaceID.String(),
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the cookie.
func (k Cookies) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Hint returns the raw cookie value, empty when absent. It authorizes nothing by itself.
func (k Cookies) Hint(c *gin.Context) string {
	v, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return v
}
