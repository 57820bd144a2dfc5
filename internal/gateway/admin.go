package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/hollowroot/verse/internal/world"
	"github.com/hollowroot/verse/internal/worldserver"
)

// adminTokenHeader carries the shared admin secret.
const adminTokenHeader = "X-Admin-Token"

func (s *Server) registerAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/stats", s.withAdmin(s.handleAdminStats))
	mux.HandleFunc("POST /admin/rooms/{room}/objects", s.withAdmin(s.handleAdminAddObject))
	mux.HandleFunc("PATCH /admin/rooms/{room}/objects/{object}", s.withAdmin(s.handleAdminUpdateObject))
	mux.HandleFunc("DELETE /admin/rooms/{room}/objects/{object}", s.withAdmin(s.handleAdminRemoveObject))
	mux.HandleFunc("DELETE /admin/rooms/{room}/messages/{message}", s.withAdmin(s.handleAdminDeleteMessage))
	mux.HandleFunc("POST /admin/rooms/{room}/chat/clear", s.withAdmin(s.handleAdminClearChat))
	mux.HandleFunc("POST /admin/moderators", s.withAdmin(s.handleAdminSetModerator))
	mux.HandleFunc("POST /admin/kick", s.withAdmin(s.handleAdminKick))
}

// withAdmin gates a handler behind the configured admin token. With no
// token configured the whole admin surface is disabled.
func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "admin surface disabled"})
			return
		}
		token := r.Header.Get(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin token"})
			return
		}
		next(w, r)
	}
}

// do runs fn on the dispatch goroutine and maps its error to an HTTP
// response. ok is written as the response body on success.
func (s *Server) do(w http.ResponseWriter, fn func() error, ok any) {
	var opErr error
	if err := s.dispatcher.Do(func() { opErr = fn() }); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	if opErr != nil {
		writeError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, _ *http.Request) {
	var stats worldserver.Stats
	if err := s.dispatcher.Do(func() { stats = s.controller.AdminStats() }); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// objectRequest is the admin wire form of a world object.
type objectRequest struct {
	ID           string           `json:"id"`
	Type         world.ObjectType `json:"type"`
	Name         string           `json:"name"`
	Position     world.Vec3       `json:"position"`
	Interactable *bool            `json:"interactable,omitempty"`
	Dialogue     []string         `json:"dialogue,omitempty"`
	Script       string           `json:"script,omitempty"`
	RewardXP     int              `json:"rewardXp,omitempty"`
	RewardItems  []string         `json:"rewardItems,omitempty"`
}

func (s *Server) handleAdminAddObject(w http.ResponseWriter, r *http.Request) {
	var req objectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body: " + err.Error()})
		return
	}

	interactable := true
	if req.Interactable != nil {
		interactable = *req.Interactable
	}
	obj := &world.Object{
		ID:           req.ID,
		Type:         req.Type,
		Name:         req.Name,
		Position:     req.Position,
		Interactable: interactable,
		Dialogue:     req.Dialogue,
		Script:       req.Script,
		Reward:       world.Reward{XP: req.RewardXP, Items: req.RewardItems},
	}

	roomID := r.PathValue("room")
	s.do(w, func() error {
		return s.controller.AdminAddObject(roomID, obj)
	}, map[string]string{"id": obj.ID})
}

// objectPatch mirrors world.ObjectUpdate: absent fields are untouched.
type objectPatch struct {
	Name         *string  `json:"name,omitempty"`
	Interactable *bool    `json:"interactable,omitempty"`
	Dialogue     []string `json:"dialogue,omitempty"`
	Script       *string  `json:"script,omitempty"`
	RewardXP     *int     `json:"rewardXp,omitempty"`
}

func (s *Server) handleAdminUpdateObject(w http.ResponseWriter, r *http.Request) {
	var patch objectPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body: " + err.Error()})
		return
	}

	roomID, objID := r.PathValue("room"), r.PathValue("object")
	s.do(w, func() error {
		return s.controller.AdminUpdateObject(roomID, objID, world.ObjectUpdate{
			Name:         patch.Name,
			Interactable: patch.Interactable,
			Dialogue:     patch.Dialogue,
			Script:       patch.Script,
			RewardXP:     patch.RewardXP,
		})
	}, map[string]string{"id": objID})
}

func (s *Server) handleAdminRemoveObject(w http.ResponseWriter, r *http.Request) {
	roomID, objID := r.PathValue("room"), r.PathValue("object")
	s.do(w, func() error {
		return s.controller.AdminRemoveObject(roomID, objID)
	}, map[string]string{"id": objID})
}

func (s *Server) handleAdminDeleteMessage(w http.ResponseWriter, r *http.Request) {
	roomID, msgID := r.PathValue("room"), r.PathValue("message")
	s.do(w, func() error {
		return s.controller.AdminDeleteMessage(roomID, msgID)
	}, map[string]string{"id": msgID})
}

func (s *Server) handleAdminClearChat(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room")
	s.do(w, func() error {
		return s.controller.AdminClearChat(roomID)
	}, map[string]string{"room": roomID})
}

func (s *Server) handleAdminSetModerator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target    string `json:"target"`
		Moderator bool   `json:"moderator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body: " + err.Error()})
		return
	}
	s.do(w, func() error {
		return s.controller.AdminSetModerator(req.Target, req.Moderator)
	}, map[string]string{"target": req.Target})
}

func (s *Server) handleAdminKick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
		Reason string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body: " + err.Error()})
		return
	}
	s.do(w, func() error {
		return s.controller.AdminKick(req.Target, req.Reason)
	}, map[string]string{"target": req.Target})
}
