package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/accountd/internal/pkg/response"
	"github.com/xxxsen/accountd/internal/service"
)

type OTPHandler struct {
	otp *service.OTPService
}

func NewOTPHandler(otp *service.OTPService) *OTPHandler {
	return &OTPHandler{otp: otp}
}

type sendOTPRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
	Code  string `json:"code" binding:"required"`
}

func (h *OTPHandler) Send(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "email is required")
		return
	}
	if err := h.otp.SendCode(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

func (h *OTPHandler) Verify(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "email and code are required")
		return
	}
	ok, err := h.otp.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"verified": ok})
}
