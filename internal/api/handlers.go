package api

import (
	"crypto/subtle"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medicine"
	"github.com/gmsas95/medreminder/internal/prefs"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/security"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"version":       Version,
		"notifications": s.registry.IsSupported(),
		"timestamp":     time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request", "code": apperrors.ErrBadRequest.Code})
	}

	// Without a configured password any login is accepted (single user, self hosted)
	if want := s.config.Security.AdminPassword; want != "" {
		if subtle.ConstantTimeCompare([]byte(req.Password), []byte(want)) != 1 {
			return c.Status(401).JSON(fiber.Map{"error": "invalid password", "code": apperrors.ErrUnauthorized.Code})
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "default",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}

// ==================== Medicines ====================

type medicineRequest struct {
	medicine.Input
	// Notify defaults to the reminders.enabled setting
	Notify *bool `json:"notify"`
}

// wantsReminders resolves the notify flag and, like the add screen, asks
// for delivery permission before any scheduling.
func (s *Server) wantsReminders(c *fiber.Ctx, req medicineRequest) bool {
	notify := s.config.Reminders.Enabled
	if req.Notify != nil {
		notify = *req.Notify
	}
	if !notify {
		return false
	}
	return s.scheduler.RequestPermissions(c.UserContext())
}

func (s *Server) handleListMedicines(c *fiber.Ctx) error {
	meds, err := s.tracker.List()
	if err != nil {
		return s.writeError(c, err)
	}
	if meds == nil {
		meds = []medicine.Medicine{}
	}
	return c.JSON(meds)
}

func (s *Server) handleAddMedicine(c *fiber.Ctx) error {
	var req medicineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request", "code": apperrors.ErrBadRequest.Code})
	}

	res, err := s.tracker.Add(c.UserContext(), req.Input, s.wantsReminders(c, req))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (s *Server) handleGetMedicine(c *fiber.Ctx) error {
	med, err := s.tracker.Get(c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(med)
}

func (s *Server) handleEditMedicine(c *fiber.Ctx) error {
	var req medicineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request", "code": apperrors.ErrBadRequest.Code})
	}

	res, err := s.tracker.Edit(c.UserContext(), c.Params("id"), req.Input, s.wantsReminders(c, req))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleDeleteMedicine(c *fiber.Ctx) error {
	if err := s.tracker.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleScheduleReminders(c *fiber.Ctx) error {
	res, err := s.tracker.Reschedule(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleCancelReminders(c *fiber.Ctx) error {
	n, err := s.tracker.CancelReminders(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"cancelled": n})
}

// ==================== Notifications ====================

type notificationView struct {
	reminder.Scheduled
	NextRun *time.Time `json:"nextRun,omitempty"`
}

type nextRunner interface {
	NextRun(id string) (time.Time, bool)
}

func (s *Server) handleListNotifications(c *fiber.Ctx) error {
	entries, err := s.registry.List(c.UserContext())
	if err != nil {
		return s.writeError(c, apperrors.Wrap(err, apperrors.ErrRegistryFailure.Code, "failed to list notifications"))
	}

	medicineID := c.Query("medicine_id")
	next, _ := s.registry.(nextRunner)

	out := make([]notificationView, 0, len(entries))
	for _, e := range entries {
		if medicineID != "" && e.Content.Data.MedicineID != medicineID {
			continue
		}
		view := notificationView{Scheduled: e}
		if next != nil {
			if t, ok := next.NextRun(e.ID); ok && !t.IsZero() {
				view.NextRun = &t
			}
		}
		out = append(out, view)
	}
	return c.JSON(out)
}

func (s *Server) handleRequestPermissions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"supported": s.registry.IsSupported(),
		"granted":   s.scheduler.RequestPermissions(c.UserContext()),
	})
}

// ==================== Profile ====================

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	p := s.profiles.Get()
	if p == nil {
		return s.writeError(c, apperrors.New(apperrors.ErrNotFound.Code, "no profile saved"))
	}
	return c.JSON(p)
}

func (s *Server) handleSetProfile(c *fiber.Ctx) error {
	var req struct {
		Age    json.Number `json:"age"`
		Height json.Number `json:"height"`
		Weight json.Number `json:"weight"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.writeError(c, apperrors.Validation(apperrors.ErrInvalidProfile, "please enter valid numbers"))
	}

	p, err := prefs.ParseProfile(req.Age.String(), req.Height.String(), req.Weight.String())
	if err != nil {
		return s.writeError(c, err)
	}
	if err := s.profiles.Set(p); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(p)
}

func (s *Server) handleClearProfile(c *fiber.Ctx) error {
	if err := s.profiles.Clear(); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Language ====================

func (s *Server) handleGetLanguage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"language": s.language.Get()})
}

func (s *Server) handleSetLanguage(c *fiber.Ctx) error {
	var req struct {
		Language string `json:"language"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request", "code": apperrors.ErrBadRequest.Code})
	}

	lang, err := prefs.ParseLanguage(strings.ToLower(strings.TrimSpace(req.Language)))
	if err != nil {
		return s.writeError(c, apperrors.New(apperrors.ErrBadRequest.Code, err.Error()))
	}
	if err := s.language.Set(lang); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"language": lang})
}

func (s *Server) handleToggleLanguage(c *fiber.Ctx) error {
	lang, err := s.language.Toggle()
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"language": lang})
}

// ==================== Leaflet ====================

func (s *Server) handleLeaflet(c *fiber.Ctx) error {
	var req struct {
		Name   string `json:"name"`
		Dosage string `json:"dosage"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request", "code": apperrors.ErrBadRequest.Code})
	}

	name := strings.TrimSpace(req.Name)
	dosage := strings.TrimSpace(req.Dosage)
	if name == "" {
		return s.writeError(c, apperrors.New(apperrors.ErrBadRequest.Code, "medicine name is required"))
	}
	if err := security.CheckLeafletQuery(name, dosage); err != nil {
		s.logger.Warn("Rejected leaflet query", zap.Error(err))
		return s.writeError(c, apperrors.New(apperrors.ErrBadRequest.Code, err.Error()))
	}

	data := s.leaflets.GetSummarizedLeaflet(c.UserContext(), name, dosage, s.profiles.Get().Leaflet())
	return c.JSON(data)
}

// ==================== WebSocket ====================

// wsClient serialises writes; reminders can fire concurrently.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsClient) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (s *Server) handleWebSocket(c *websocket.Conn) {
	defer c.Close()

	client := &wsClient{conn: c}
	if s.hub != nil {
		unregister := s.hub.Register(client)
		defer unregister()
	}

	_ = client.WriteJSON(fiber.Map{"type": "hello", "language": s.language.Get()})

	for {
		mt, msg, err := c.ReadMessage()
		if err != nil {
			s.logger.Debug("WebSocket closed", zap.Error(err))
			return
		}

		if mt == websocket.TextMessage && strings.TrimSpace(string(msg)) == "ping" {
			_ = client.WriteJSON(fiber.Map{"type": "pong"})
		}
	}
}
