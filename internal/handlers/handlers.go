// Package handlers wires the HTTP surface to the scan use case.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/wastewise/internal/auth"
	"github.com/example/wastewise/internal/imageproc"
	"github.com/example/wastewise/internal/usecase"
	"github.com/example/wastewise/internal/waste"
)

// MaxUploadSize bounds the multipart memory buffer. Byte-level upload
// validation lives in the image processor.
const MaxUploadSize = 10 << 20

// Request body caps sit above the file limit so an oversized file still
// reaches the processor and gets its limit-stating 400; only grossly
// abusive payloads are cut off at the transport with a 413. The base64
// cap accounts for the ~4/3 encoding overhead.
const (
	maxMultipartBytes = MaxUploadSize + 1<<20
	maxJSONBytes      = MaxUploadSize*4/3 + 1<<20
)

// base64ScanRequest is the JSON body of POST /scan/base64.
type base64ScanRequest struct {
	ImageBase64 string             `json:"image_base64" binding:"required"`
	UserID      string             `json:"user_id"`
	Location    map[string]float64 `json:"location"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router. verboseErrors
// switches dependency failures between full detail (development) and a
// generic message (production).
func RegisterRoutes(router *gin.Engine, uc *usecase.ScanUseCase, authMiddleware gin.HandlerFunc, verboseErrors bool) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"dependencies": uc.Health(c.Request.Context()),
		})
	})

	router.GET("/categories", func(c *gin.Context) {
		names := waste.CategoryNames()
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"categories": names,
			"total":      len(names),
		})
	})

	scans := router.Group("/", authMiddleware)

	scans.POST("/scan", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)
		file, err := c.FormFile("file")
		if err != nil {
			if isBodyTooLarge(err) {
				respondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds the maximum size")
				return
			}
			respondError(c, http.StatusBadRequest, "invalid_request", "image file is required")
			return
		}

		src, err := file.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", "unable to open uploaded file")
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "read_failed", "failed to read uploaded file")
			return
		}

		userID := auth.EffectiveUserID(c, c.PostForm("user_id"))
		runScan(c, uc, userID, data, file.Filename, c.PostForm("location"), verboseErrors)
	})

	scans.POST("/scan/base64", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBytes)
		var req base64ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if isBodyTooLarge(err) {
				respondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds the maximum size")
				return
			}
			respondValidationError(c, err)
			return
		}

		data, err := imageproc.FromBase64(req.ImageBase64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		location := ""
		if len(req.Location) > 0 {
			if encoded, err := json.Marshal(req.Location); err == nil {
				location = string(encoded)
			}
		}

		userID := auth.EffectiveUserID(c, req.UserID)
		runScan(c, uc, userID, data, "scan.jpg", location, verboseErrors)
	})

	scans.GET("/scan/:scan_id", func(c *gin.Context) {
		result, err := uc.GetScan(c.Request.Context(), c.Param("scan_id"))
		if err != nil {
			respondUseCaseError(c, err, verboseErrors)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "scan": result})
	})

	scans.DELETE("/scan/:scan_id", func(c *gin.Context) {
		scanID := c.Param("scan_id")
		userID := auth.EffectiveUserID(c, c.Query("user_id"))

		if err := uc.DeleteScan(c.Request.Context(), scanID, userID); err != nil {
			respondUseCaseError(c, err, verboseErrors)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "scan deleted",
			"scan_id": scanID,
		})
	})

	router.GET("/education/:category", func(c *gin.Context) {
		content, err := uc.EducationalContent(c.Request.Context(), c.Param("category"))
		if err != nil {
			respondUseCaseError(c, err, verboseErrors)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "content": content})
	})

	router.GET("/history/:user_id", func(c *gin.Context) {
		userID := c.Param("user_id")
		limit := intQuery(c, "limit", 20)
		offset := intQuery(c, "offset", 0)

		records, err := uc.GetHistory(c.Request.Context(), userID, limit, offset)
		if err != nil {
			respondUseCaseError(c, err, verboseErrors)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user_id": userID,
			"scans":   records,
			"count":   len(records),
			"limit":   limit,
			"offset":  offset,
		})
	})

	router.GET("/stats/:user_id", func(c *gin.Context) {
		userID := c.Param("user_id")
		stats, err := uc.GetUserStats(c.Request.Context(), userID)
		if err != nil {
			respondUseCaseError(c, err, verboseErrors)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user_id": userID,
			"stats":   stats,
		})
	})
}

// runScan drives the shared scan path for both upload flavors.
func runScan(c *gin.Context, uc *usecase.ScanUseCase, userID string, data []byte, filename, location string, verboseErrors bool) {
	result, err := uc.Scan(c.Request.Context(), userID, data, filename, location)
	if err != nil {
		respondUseCaseError(c, err, verboseErrors)
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondUseCaseError maps use case errors onto HTTP statuses: validation
// problems are the client's fault, absent or foreign records are 404/403,
// everything else is a dependency failure.
func respondUseCaseError(c *gin.Context, err error, verboseErrors bool) {
	var validationErr *imageproc.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, "invalid_request", validationErr.Reason)
	case errors.Is(err, usecase.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, usecase.ErrForbidden):
		respondError(c, http.StatusForbidden, "forbidden", "not authorized to access this record")
	default:
		message := "an internal error occurred"
		if verboseErrors {
			message = err.Error()
		}
		respondError(c, http.StatusInternalServerError, "internal_error", message)
	}
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "invalid_request",
		"message": "request validation failed",
		"details": []string{err.Error()},
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// isBodyTooLarge detects the MaxBytesReader limit being hit. The multipart
// reader does not always wrap the underlying error, so the message is
// checked as well.
func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
