package waitlist

import (
	"strings"

	"github.com/akeren/sheet-waitlist/internal/models"
)

const (
	JoinedMessage        = "Thanks for joining the waitlist!"
	AlreadyJoinedMessage = "This email is already on the waitlist."
)

// JoinWaitlistRequest is bound from a form post or a JSON body. Call
// Normalize before validating it.
type JoinWaitlistRequest struct {
	Name  string `form:"name" json:"name" binding:"required,min=2,max=50,personname"`
	Email string `form:"email" json:"email" binding:"required,email,min=5,max=255"`
}

func (r *JoinWaitlistRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

var validationMessages = map[string]map[string]string{
	"name": {
		"required":   "Please enter your name",
		"min":        "Name should be at least 2 characters",
		"max":        "Name is too long (maximum 50 characters)",
		"personname": "Please use only letters, spaces, hyphens, and apostrophes",
	},
	"email": {
		"required": "Please enter your email address",
		"email":    "Please enter a valid email address",
		"min":      "Email address is too short",
		"max":      "Email address is too long (maximum 255 characters)",
	},
}

func (r *JoinWaitlistRequest) ValidationMessage(field, tag string) (string, bool) {
	msg, ok := validationMessages[field][tag]
	return msg, ok
}

type JoinWaitlistResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// JoinResult is what a backend reports for one signup attempt.
type JoinResult struct {
	Exists bool
}

func ToWaitlistEntryModel(req *JoinWaitlistRequest) *models.WaitlistEntry {
	if req == nil {
		return nil
	}
	return &models.WaitlistEntry{
		Email: req.Email,
		Name:  req.Name,
	}
}

func ToJoinWaitlistResponse(entry *models.WaitlistEntry) *JoinWaitlistResponse {
	if entry == nil {
		return nil
	}
	return &JoinWaitlistResponse{
		Email: entry.Email,
		Name:  entry.Name,
	}
}
