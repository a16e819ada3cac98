package handlers

import (
	"net/http"
	"strings"

	"giftshop-backend/models"
	"giftshop-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContactHandler struct {
	DB         *gorm.DB
	Mailer     utils.Mailer
	StaffEmail string
	Logger     *zap.Logger
}

// SubmitMessage stores a contact form message and forwards it to staff.
func (h *ContactHandler) SubmitMessage(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email" binding:"required,email"`
		Phone   string `json:"phone"`
		Company string `json:"company"`
		Subject string `json:"subject"`
		Message string `json:"message" binding:"required,min=10"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	msg := models.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   normalizeEmail(req.Email),
		Phone:   req.Phone,
		Company: req.Company,
		Subject: req.Subject,
		Message: strings.TrimSpace(req.Message),
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	if h.StaffEmail != "" {
		subject, body := utils.ContactNotificationEmail(msg.Name, msg.Email, msg.Phone, msg.Company, msg.Message)
		utils.SendAsync(h.Mailer, h.Logger, h.StaffEmail, subject, body)
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Thank you for contacting us. We will get back to you soon."})
}

func (h *ContactHandler) ListMessages(c *gin.Context) {
	page, limit := paginationParams(c, 20)
	query := h.DB.Model(&models.ContactMessage{})
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count messages"})
		return
	}

	var messages []models.ContactMessage
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages, "pagination": newPagination(page, limit, total, "total_messages")})
}

func (h *ContactHandler) MarkRead(c *gin.Context) {
	result := h.DB.Model(&models.ContactMessage{}).Where("id = ?", c.Param("id")).Update("is_read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update message"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message marked as read"})
}
