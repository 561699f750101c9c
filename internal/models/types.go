package models

import (
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the roles the service hands out.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"is_active"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// DisplayName falls back to the username when the service has no name on file.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Username
}

func (u User) validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return errMissing("username")
	}
	return nil
}

const TextMessage = "text"

type Message struct {
	Sender  string `json:"sender"`
	Text    string `json:"text,omitempty"`
	MsgType string `json:"msg_type,omitempty"`
}

func (m Message) validate() error {
	if m.Sender == "" {
		return errMissing("sender")
	}
	return nil
}

// Thread is the full history with one peer. It is always replaced as a whole.
type Thread struct {
	Messages    []Message `json:"messages"`
	Other       *User     `json:"other"`
	YouBlocked  bool      `json:"you_blocked"`
	TheyBlocked bool      `json:"they_blocked"`
}

// Blocked reports whether either side has blocked the other.
func (t Thread) Blocked() bool {
	return t.YouBlocked || t.TheyBlocked
}

func (t Thread) validate() error {
	if t.Other == nil {
		return errMissing("other")
	}
	if err := t.Other.validate(); err != nil {
		return err
	}
	for _, m := range t.Messages {
		if err := m.validate(); err != nil {
			return err
		}
	}
	return nil
}

type AuthResult struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
}

func (a AuthResult) validate() error {
	if a.AccessToken == "" {
		return errMissing("access_token")
	}
	if !a.Role.Valid() {
		return errInvalid("role", string(a.Role))
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type SendRequest struct {
	Recipient string `json:"recipient"`
	MsgType   string `json:"msg_type"`
	Text      string `json:"text"`
}

type UsernameRequest struct {
	Username string `json:"username"`
}
