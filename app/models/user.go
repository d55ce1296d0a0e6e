package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

// UsersCollection holds one row per Telegram account that ever talked to
// the bot.
const UsersCollection = "Users"

// UserFields is the persisted column order.
var UserFields = []string{"id", "telegram_id", "username", "first_name", "last_name", "is_admin", "created_at"}

// User is a customer or staff member, keyed by Telegram identity.
type User struct {
	ID         int       `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserFromRecord maps a stored row onto a User.
func UserFromRecord(r recordstore.Record) User {
	return User{
		ID:         toInt(r["id"]),
		TelegramID: toInt64(r["telegram_id"]),
		Username:   r["username"],
		FirstName:  r["first_name"],
		LastName:   r["last_name"],
		IsAdmin:    toBool(r["is_admin"]),
		CreatedAt:  toTimeOrZero(r["created_at"]),
	}
}

// Record maps u back onto a row. A zero ID is left out so the store assigns
// one.
func (u User) Record() recordstore.Record {
	r := recordstore.Record{
		"telegram_id": fmtInt64(u.TelegramID),
		"username":    u.Username,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"is_admin":    fmtBool(u.IsAdmin),
		"created_at":  fmtTime(u.CreatedAt),
	}
	if u.ID != 0 {
		r["id"] = fmtInt(u.ID)
	}
	return r
}

// FullName is the friendliest name available: first and last name, then
// first name, then username, then the Telegram id.
func (u User) FullName() string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case u.Username != "":
		return u.Username
	default:
		return strconv.FormatInt(u.TelegramID, 10)
	}
}
