package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rhythmtaneja/SignFlow/internal/api/middleware"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"github.com/rhythmtaneja/SignFlow/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db     *gorm.DB
	auth   *middleware.AuthMiddleware
	logger *zap.Logger
}

func NewAuthHandler(db *gorm.DB, auth *middleware.AuthMiddleware, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		db:     db,
		auth:   auth,
		logger: logger.With(zap.String("handler", "auth")),
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	var existing models.User
	err := h.db.First(&existing, "email = ?", req.Email).Error
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "User already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Error("user lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	hash, err := utils.EncryptPassword(req.Password)
	if err != nil {
		h.logger.Error("password hash failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := h.db.Create(&user).Error; err != nil {
		h.logger.Error("user create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, "email = ?", req.Email).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid credentials"})
		return
	}
	if !utils.VerifyPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid credentials"})
		return
	}

	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
	})
}
