package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/core"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/imageutil"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// MaxAvatarUploadBytes caps the multipart avatar payload before compression.
const MaxAvatarUploadBytes = 20 << 20

// MemberHandler handles API endpoints related to trip members.
type MemberHandler struct {
	memberService core.MemberService
	logger        *zap.Logger
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(ms core.MemberService, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{memberService: ms, logger: logger}
}

// ListMembers handles GET /trip/members
func (h *MemberHandler) ListMembers(c *gin.Context) {
	members, err := h.memberService.List(c.Request.Context())
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// AddMember handles POST /trip/members
func (h *MemberHandler) AddMember(c *gin.Context) {
	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	member, err := h.memberService.Add(c.Request.Context(), req.Name)
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// UpdateMember handles PATCH /trip/members/:memberId
func (h *MemberHandler) UpdateMember(c *gin.Context) {
	var req models.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	member, err := h.memberService.UpdateInfo(c.Request.Context(), c.Param("memberId"), req.Name, req.Title)
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// DeleteMember handles DELETE /trip/members/:memberId
func (h *MemberHandler) DeleteMember(c *gin.Context) {
	if err := h.memberService.Delete(c.Request.Context(), c.Param("memberId")); err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadAvatar handles POST /trip/members/:memberId/avatar (multipart, field "file").
func (h *MemberHandler) UploadAvatar(c *gin.Context) {
	memberID := c.Param("memberId")

	// Cap the request body; the decoder separately bounds the pixel dimensions.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAvatarUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Avatar file is required", Details: err.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Could not read avatar file", Details: err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Could not read avatar file", Details: err.Error()})
		return
	}

	// The part's own Content-Type decides whether the file is compressed as an image.
	file := imageutil.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}
	url, err := h.memberService.UploadAvatar(c.Request.Context(), memberID, file)
	if err != nil {
		// Unknown member, undecodable or oversized image, or a storage failure.
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, AvatarResponse{MemberID: memberID, URL: url})
}

// GetDriveURL handles GET /trip/drive-url
func (h *MemberHandler) GetDriveURL(c *gin.Context) {
	driveURL, err := h.memberService.DriveURL(c.Request.Context())
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, DriveURLRequest{DriveURL: driveURL})
}

// SetDriveURL handles PUT /trip/drive-url
func (h *MemberHandler) SetDriveURL(c *gin.Context) {
	var req DriveURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if err := h.memberService.SetDriveURL(c.Request.Context(), req.DriveURL); err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Drive URL updated"})
}
