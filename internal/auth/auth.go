// Package auth is the admin gate: a session-cookie login guarding every
// listing and mutating endpoint.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const sessionKey = "admin_authenticated"

// Handler holds the configured admin credentials.
type Handler struct {
	Username string
	Password string
}

// Login checks the posted credentials. A mismatch is a normal outcome, not
// an error status: the response is 200 with success=false.
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(h.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(input.Password), []byte(h.Password)) == 1
	if !userOK || !passOK {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKey, true)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout tears the session down and sends the admin back to the landing page.
func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{MaxAge: -1, Path: "/"})
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear session"})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// RequireAdmin rejects any request without an authenticated admin session.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if ok, _ := session.Get(sessionKey).(bool); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
