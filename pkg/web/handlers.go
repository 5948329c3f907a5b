package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/pion/webrtc/v3"
	"github.com/samber/lo"

	"github.com/teslashibe/go-facefilter/pkg/filter"
	"github.com/teslashibe/go-facefilter/pkg/hub"
	"github.com/teslashibe/go-facefilter/pkg/pipeline"
	"github.com/teslashibe/go-facefilter/pkg/session"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	State session.State  `json:"state"`
	Stats pipeline.Stats `json:"stats"`
	Peers int            `json:"peers"`
}

// FilterInfo describes a selectable filter.
type FilterInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	PreviewImage string `json:"previewImage,omitempty"`
	Overlays     int    `json:"overlays"`
	Active       bool   `json:"active"`
}

// statusMessage is what /ws/status clients receive.
type statusMessage struct {
	Type  string          `json:"type"` // state, stats
	State *session.State  `json:"state,omitempty"`
	Stats *pipeline.Stats `json:"stats,omitempty"`
}

// handleStatus returns the session state and pipeline counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		State: s.session.State(),
		Stats: s.session.Engine().Stats(),
	}
	if s.webrtc != nil {
		resp.Peers = s.webrtc.PeerCount()
	}
	return c.JSON(resp)
}

// handleListFilters returns the catalog
func (s *Server) handleListFilters(c *fiber.Ctx) error {
	active := s.session.State().ActiveFilter
	infos := lo.Map(s.session.Catalog().List(), func(f *filter.Filter, _ int) FilterInfo {
		return FilterInfo{
			ID:           f.ID,
			Name:         f.Name,
			Icon:         f.Icon,
			PreviewImage: f.PreviewImage,
			Overlays:     len(f.Overlays),
			Active:       f.ID == active,
		}
	})
	return c.JSON(infos)
}

// handleSetFilter activates a filter by id
func (s *Server) handleSetFilter(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.session.SetFilter(c.UserContext(), id); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, filter.ErrNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.session.State())
}

// handleClearFilter removes the active filter
func (s *Server) handleClearFilter(c *fiber.Ctx) error {
	if err := s.session.SetFilter(c.UserContext(), ""); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.session.State())
}

// handleSnapshot returns the last composed frame as JPEG
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	img, ok := s.session.Engine().Snapshot()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame available",
		})
	}
	data, err := encodeJPEG(img, s.cfg.JPEGQuality)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

// handleGetCamera returns the camera configuration
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "camera control not configured",
		})
	}
	return c.JSON(s.cameras.GetConfigJSON())
}

// handleUpdateCamera applies partial camera settings
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "camera control not configured",
		})
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid body: " + err.Error(),
		})
	}
	if err := s.cameras.UpdateConfig(c.UserContext(), params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.cameras.GetConfigJSON())
}

// handleOffer answers a WebRTC offer
func (s *Server) handleOffer(c *fiber.Ctx) error {
	if s.webrtc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "webrtc not configured",
		})
	}

	var offer webrtc.SessionDescription
	if err := c.BodyParser(&offer); err != nil || offer.SDP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid session description",
		})
	}

	answer, id, err := s.webrtc.Answer(c.UserContext(), offer)
	if err != nil {
		s.logger.Warn("webrtc offer failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"peer":   id,
		"answer": answer,
	})
}

// handleStatusWS streams state changes, starting with the current state
func (s *Server) handleStatusWS(c *websocket.Conn) {
	st := s.session.State()
	initial, err := hub.EncodeJSON(statusMessage{Type: "state", State: &st})
	if err != nil {
		s.logger.Warn("status encode failed", "error", err)
		return
	}
	if client := hub.NewClient(s.statusHub, c, initial); client != nil {
		client.Run()
	}
}

// handlePreviewWS streams JPEG frames of the filtered stream
func (s *Server) handlePreviewWS(c *websocket.Conn) {
	if client := hub.NewClient(s.previewHub, c); client != nil {
		client.Run()
	}
}
