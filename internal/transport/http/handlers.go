package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/samber/lo"

	"github.com/dkeye/Telemed/internal/app"
	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
)

// Handlers expose read-only room state and hub-initiated closes over REST.
type Handlers struct {
	Hub        *app.Hub
	ICEServers []webrtc.ICEServer
}

type RoomResponse struct {
	ID           domain.RoomID         `json:"appointmentId"`
	Participants []core.ParticipantDTO `json:"participants"`
}

func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "Signaling server is healthy.")
}

func (h *Handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Hub.Registry.List()})
}

func (h *Handlers) GetRoom(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	members := h.Hub.Registry.Members(id)
	if len(members) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, RoomResponse{
		ID:           id,
		Participants: lo.Map(members, func(p core.Participant, _ int) core.ParticipantDTO { return p.DTO() }),
	})
}

func (h *Handlers) EvictRoom(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	if !h.Hub.Registry.Has(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	h.Hub.Evict(id)
	c.Status(http.StatusNoContent)
}

func (h *Handlers) KickParticipant(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	sid := core.SessionID(c.Param("sid"))
	_, inRoom := lo.Find(h.Hub.Registry.Members(id), func(p core.Participant) bool { return p.SID == sid })
	if !inRoom || !h.Hub.Kick(sid) {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) GetICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.ICEServers})
}
