package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/response"
	"github.com/xxxsen/accountd/internal/service"
)

type ProfileHandler struct {
	accounts *service.AccountService
}

func NewProfileHandler(accounts *service.AccountService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// Absent optional fields keep their stored value; an empty string clears one.
type updateProfileRequest struct {
	Name     string  `json:"name" binding:"required,max=128"`
	Phone    *string `json:"phone" binding:"omitempty,phone"`
	Birthday *string `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
	Gender   *string `json:"gender" binding:"omitempty,max=32"`
	Address  *string `json:"address" binding:"omitempty,max=512"`
}

func (h *ProfileHandler) Get(c *gin.Context) {
	user, err := h.accounts.Profile(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user})
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "name is required and phone/birthday must be well formed")
		return
	}
	patch := model.ProfilePatch{
		Name:     &req.Name,
		Phone:    req.Phone,
		Birthday: req.Birthday,
		Gender:   req.Gender,
		Address:  req.Address,
	}
	user, err := h.accounts.UpdateProfile(c.Request.Context(), getUserID(c), patch)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user})
}
