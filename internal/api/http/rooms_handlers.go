package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/coderoom/backend/internal/domain/room"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/coderoom/backend/internal/shared/id"
	"github.com/GriffinCanCode/coderoom/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateRoomRequest is the optional body of POST /api/rooms
type CreateRoomRequest struct {
	ID string `json:"id"`
}

// ListRooms lists every room with its member count
func (h *Handlers) ListRooms(c *gin.Context) {
	rooms := h.registry.List()

	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// GetRoom returns one room's buffer and members. The ETag changes with
// every buffer write and membership change.
func (h *Handlers) GetRoom(c *gin.Context) {
	roomID := c.Param("id")

	if err := utils.ValidateRoomID(roomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, ok := h.registry.Get(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": room.ErrRoomNotFound.Error()})
		return
	}

	etag := utils.DefaultHasher().ETag(
		snapshot.ID,
		strconv.FormatUint(snapshot.Revision, 10),
		strings.Join(snapshot.Members, ","),
	)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// CreateRoom creates an empty room. The id is generated when the body
// omits it. Existing rooms are never reset from here.
func (h *Handlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room request format"})
			return
		}
	}

	roomID := strings.TrimSpace(req.ID)
	if roomID == "" {
		roomID = id.NewRoomID().String()
	}
	if err := utils.ValidateRoomID(roomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.registry.Exists(roomID) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "room already exists",
			"room_id": roomID,
		})
		return
	}

	snapshot, err := h.registry.Create(roomID, "")
	if err != nil {
		h.logger.Error("Failed to create room", logging.RoomID(roomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Room created over HTTP", logging.RoomID(roomID))
	c.JSON(http.StatusCreated, snapshot)
}
