package handlers

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/middleware"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// LoginRequest carries phone + password credentials.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a JWT.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Phone == "" || req.Password == "" {
		http.Error(w, "phone and password are required", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := config.DB.Where("phone = ? AND is_active = true", req.Phone).First(&user).Error; err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := middleware.GenerateToken(user.ID.String(), user.Role, user.Name, user.Phone)
	if err != nil {
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]string{
			"id":    user.ID.String(),
			"name":  user.Name,
			"role":  user.Role,
			"phone": user.Phone,
		},
	})
}

// actorFromRequest builds the audit actor from the JWT claims.
func actorFromRequest(r *http.Request) Actor {
	claims := middleware.GetClaims(r)
	if claims == nil {
		return Actor{}
	}
	return Actor{ID: claims.UserID, Name: claims.Name, Role: claims.Role}
}
