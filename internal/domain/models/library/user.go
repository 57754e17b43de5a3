package library

import (
	"strings"
	"time"
)

// UserProfile is the directory entry stored at users/{id}.
type UserProfile struct {
	ID          string    `json:"id" doc:"-"`
	Email       string    `json:"email" doc:"email"`
	DisplayName string    `json:"displayName,omitempty" doc:"displayName"`
	UpdatedAt   time.Time `json:"updatedAt" doc:"updatedAt"`
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *UserProfile) Data() map[string]any {
	return map[string]any{
		"email":       NormalizeEmail(p.Email),
		"displayName": p.DisplayName,
		"updatedAt":   p.UpdatedAt.UnixMilli(),
	}
}

func DecodeUserProfile(id string, data map[string]any) (*UserProfile, error) {
	var p UserProfile
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}
