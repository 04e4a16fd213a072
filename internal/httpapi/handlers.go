package httpapi

import (
	"net/http"

	"referral-platform/internal/accounts"
	"referral-platform/internal/auth"
	"referral-platform/internal/users"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Service
	Accounts *accounts.Service
	Cookie   auth.RefreshCookie
}

// --- Auth ---

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Auth.Signup(c.Request.Context(), auth.SignupRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		auth.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user registered successfully", "user": u})
}

// Login returns the access token in the body and the refresh token only as a cookie.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		auth.Abort(c, err)
		return
	}
	h.Cookie.Set(c.Writer, sess.RefreshToken, sess.RefreshExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"message":     "login successful",
		"accessToken": sess.AccessToken,
		"user":        sess.User,
	})
}

func (h Handlers) Logout(c *gin.Context) {
	actor, _ := auth.IdentityFrom(c.Request.Context())
	h.Auth.Logout(c.Request.Context(), actor, h.Cookie.Read(c.Request))
	h.Cookie.Clear(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

func (h Handlers) RefreshToken(c *gin.Context) {
	out, err := h.Auth.Refresh(c.Request.Context(), h.Cookie.Read(c.Request))
	if err != nil {
		auth.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "access token refreshed",
		"accessToken": out.AccessToken,
		"user":        out.User,
	})
}

// --- Users ---

type profileRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

type adminUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (h Handlers) GetProfile(c *gin.Context) {
	me, ok := identity(c)
	if !ok {
		return
	}
	u, err := h.Accounts.Profile(c.Request.Context(), me.ID)
	if err != nil {
		auth.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h Handlers) UpdateProfile(c *gin.Context) {
	me, ok := identity(c)
	if !ok {
		return
	}
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Accounts.UpdateProfile(c.Request.Context(), me.ID, accounts.ProfileUpdate{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		auth.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": u})
}

// ListUsers and the handlers below are admin-only; the role gate runs before them.
func (h Handlers) ListUsers(c *gin.Context) {
	list, err := h.Accounts.List(c.Request.Context())
	if err != nil {
		auth.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

func (h Handlers) GetUser(c *gin.Context) {
	u, err := h.Accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		auth.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h Handlers) UpdateUser(c *gin.Context) {
	me, ok := identity(c)
	if !ok {
		return
	}
	var req adminUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Accounts.Update(c.Request.Context(), me, c.Param("id"), accounts.AdminUpdate{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		auth.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user updated", "user": u})
}

func (h Handlers) DeleteUser(c *gin.Context) {
	me, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Accounts.Delete(c.Request.Context(), me, c.Param("id")); err != nil {
		auth.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		auth.Abort(c, auth.Validation("invalid json"))
		return false
	}
	return true
}

func identity(c *gin.Context) (users.Public, bool) {
	id, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		auth.Abort(c, auth.Unauthorized("authentication required"))
		return users.Public{}, false
	}
	return id, true
}
