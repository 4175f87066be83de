package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tubegate/internal/middleware"
	"tubegate/internal/models"
	"tubegate/internal/service"
)

const tokenType = "Bearer"

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type authResponse struct {
	Message      string       `json:"message"`
	User         userResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if !bindObject(c, &req) {
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	sendAuthResponse(c, http.StatusCreated, "User created successfully", result)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !bindObject(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	sendAuthResponse(c, http.StatusOK, "Login successful", result)
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindObject(c, &req) {
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, refreshResponse{
		AccessToken: result.AccessToken,
		TokenType:   tokenType,
		ExpiresIn:   result.ExpiresIn,
	})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": newUserResponse(user),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	token, ok := middleware.AccessToken(c)
	claims, hasClaims := middleware.AccessClaims(c)
	if !ok || !hasClaims {
		middleware.AbortInternal(c)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), user, token, claims.ExpiresAt.Time); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logout successful",
	})
}

func sendAuthResponse(c *gin.Context, status int, message string, result service.AuthResult) {
	c.JSON(status, authResponse{
		Message:      message,
		User:         newUserResponse(result.User),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    tokenType,
		ExpiresIn:    result.ExpiresIn,
	})
}
