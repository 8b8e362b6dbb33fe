package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/Attendance/internal/app"
	"github.com/dkeye/Attendance/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const resetTokenKey = "reset_token"

type CheckInRequest struct {
	RFIDTag string `json:"rfidTag" binding:"required,max=64"`
}

type CheckInResponse struct {
	Success    bool                     `json:"success"`
	Message    string                   `json:"message"`
	Attendance *domain.AttendanceRecord `json:"attendance"`
}

type ResetRequest struct {
	Token string `json:"token" binding:"required"`
}

type StatusResponse struct {
	Status  domain.ConnStatus `json:"status"`
	Clients int               `json:"clients"`
}

type handlers struct {
	deps Deps
}

func (h *handlers) attendees(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Session.Records())
}

func (h *handlers) recent(c *gin.Context) {
	n := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		n = v
	}
	c.JSON(http.StatusOK, h.deps.Session.Recent(n))
}

func (h *handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Session.Stats())
}

func (h *handlers) snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Session.Snapshot())
}

func (h *handlers) roster(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Session.Roster().Members())
}

func (h *handlers) status(c *gin.Context) {
	resp := StatusResponse{Status: domain.StatusDisconnected}
	if h.deps.Status != nil {
		resp.Status = h.deps.Status.Status()
	}
	if h.deps.Hub != nil {
		resp.Clients = h.deps.Hub.ClientCount()
	}
	c.JSON(http.StatusOK, resp)
}

// checkIn is the manual desk check-in. Rejections are reported in the
// body with success=false, not as HTTP errors.
func (h *handlers) checkIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid rfidTag"})
		return
	}
	token := c.GetString("client_token")
	if !h.deps.Limiter.Allow(token) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many check-ins, slow down"})
		return
	}

	id := domain.NormalizeCardID(req.RFIDTag)
	rec, _, err := h.deps.Session.CheckIn(id)
	resp := CheckInResponse{Success: err == nil, Message: app.OutcomeMessage(rec, err)}
	switch {
	case err == nil:
		resp.Attendance = &rec
	case errors.Is(err, domain.ErrUnknownCard), errors.Is(err, domain.ErrAlreadyCheckedIn):
		log.Warn().Str("module", "adapters.http").Str("card", string(id)).Err(err).Msg("manual check-in rejected")
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) resetToken(c *gin.Context) {
	tok := uuid.NewString()
	s := sessions.Default(c)
	s.Set(resetTokenKey, tok)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

// reset requires the single-use token from resetToken, which stands in
// for the dashboard's "are you sure" prompt.
func (h *handlers) reset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing confirmation token"})
		return
	}
	s := sessions.Default(c)
	want, _ := s.Get(resetTokenKey).(string)
	if want == "" || want != req.Token {
		c.JSON(http.StatusConflict, gin.H{"error": "confirmation token mismatch, request a new one"})
		return
	}
	s.Delete(resetTokenKey)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
	}
	stats := h.deps.Session.Reset()
	log.Warn().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("session reset by dashboard")
	c.JSON(http.StatusOK, stats)
}
