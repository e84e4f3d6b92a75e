package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/accountd/internal/filestore"
	"github.com/xxxsen/accountd/internal/pkg/errcode"
	"github.com/xxxsen/accountd/internal/pkg/response"
	"github.com/xxxsen/accountd/internal/service"
)

// multipart framing allowance on top of the file size limit.
const multipartOverhead = 64 * 1024

type FileHandler struct {
	accounts  *service.AccountService
	store     filestore.Store
	maxUpload int64
}

func NewFileHandler(accounts *service.AccountService, store filestore.Store, maxUpload int64) *FileHandler {
	return &FileHandler{accounts: accounts, store: store, maxUpload: maxUpload}
}

func (h *FileHandler) UploadProfilePicture(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusBadRequest, errcode.ErrFileTooLarge, "file too large, max "+formatUploadLimit(h.maxUpload))
			return
		}
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "file is required")
		return
	}
	if h.maxUpload > 0 && file.Size > h.maxUpload {
		response.Error(c, http.StatusBadRequest, errcode.ErrFileTooLarge, "file too large, max "+formatUploadLimit(h.maxUpload))
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	user, err := h.accounts.UploadProfilePicture(c.Request.Context(), getUserID(c), service.UploadInput{
		Filename: file.Filename,
		Size:     file.Size,
		File:     opened,
	}, requestBaseURL(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"url": user.ProfilePicture, "user": user})
}

// Get serves files kept by the local store. Other stores hand out their own
// public URLs.
func (h *FileHandler) Get(c *gin.Context) {
	if h.store == nil || h.store.Type() != "local" {
		c.Status(http.StatusNotFound)
		return
	}
	key := c.Param("key")
	if !filestore.ValidKey(key) {
		c.Status(http.StatusBadRequest)
		return
	}
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

func requestBaseURL(c *gin.Context) string {
	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		if c.Request.TLS != nil {
			proto = "https"
		} else {
			proto = "http"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + host
}

func formatUploadLimit(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case bytes <= 0:
		return "0MB"
	case bytes < mb:
		return strconv.FormatInt((bytes+kb-1)/kb, 10) + "KB"
	default:
		return strconv.FormatInt(bytes/mb, 10) + "MB"
	}
}
