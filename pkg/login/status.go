package login

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"xhstoolbox/pkg/xhs"
)

// Status is the state of a QR login attempt
type Status string

const (
	StatusLoading   Status = "loading"
	StatusWaiting   Status = "waiting"
	StatusScanned   Status = "scanned"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

// Backend status codes
const (
	CodeWaiting   = 0
	CodeScanned   = 1
	CodeConfirmed = 2
	CodeExpired   = -1
)

// IsTerminal reports whether polling must stop in this state
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusExpired
}

func (s Status) String() string {
	return string(s)
}

// Describe returns the line shown to the user for s
func (s Status) Describe() string {
	switch s {
	case StatusLoading:
		return "Generating QR code..."
	case StatusWaiting:
		return "Scan the QR code with the Xiaohongshu app"
	case StatusScanned:
		return "Scanned, confirm the login on your phone"
	case StatusConfirmed:
		return "Login successful"
	case StatusExpired:
		return "QR code expired, refresh to get a new one"
	default:
		return ""
	}
}

// MapCode maps a backend status code. Unknown codes keep the flow polling.
func MapCode(code int) Status {
	s, _ := mapCode(code)
	return s
}

func mapCode(code int) (Status, bool) {
	switch code {
	case CodeWaiting:
		return StatusWaiting, true
	case CodeScanned:
		return StatusScanned, true
	case CodeConfirmed:
		return StatusConfirmed, true
	case CodeExpired:
		return StatusExpired, true
	default:
		return StatusWaiting, false
	}
}

func mapWord(word string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(word))) {
	case StatusWaiting:
		return StatusWaiting, true
	case StatusScanned:
		return StatusScanned, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusExpired:
		return StatusExpired, true
	default:
		return StatusWaiting, false
	}
}

// ParseCodeStatus decodes code_status sent as a number, a numeric string or
// a status word. ok is false when the value was not recognised, in which
// case the status is StatusWaiting.
func ParseCodeStatus(raw json.RawMessage) (Status, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return StatusWaiting, false
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return StatusWaiting, false
		}
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return mapCode(n)
		}
		return mapWord(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return StatusWaiting, false
	}
	code, err := n.Int64()
	if err != nil {
		return StatusWaiting, false
	}
	return mapCode(int(code))
}

// StatusOf resolves the status of a poll answer. code_status wins, the
// top-level status word is the fallback.
func StatusOf(res *xhs.QRStatus) (Status, bool) {
	if res == nil {
		return StatusWaiting, false
	}
	if len(bytes.TrimSpace(res.CodeStatus)) > 0 && !bytes.Equal(bytes.TrimSpace(res.CodeStatus), []byte("null")) {
		return ParseCodeStatus(res.CodeStatus)
	}
	if res.Status != "" {
		return mapWord(res.Status)
	}
	return StatusWaiting, false
}

// DefaultNickname is used when a confirmed login carries no nickname
const DefaultNickname = "用户"

// UserFrom builds the authenticated user of a confirmed poll answer
func UserFrom(res *xhs.QRStatus) *xhs.UserInfo {
	user := &xhs.UserInfo{}
	if res.LoginInfo != nil {
		user.UserID = res.LoginInfo.UserID
		user.Nickname = res.LoginInfo.Nickname
	}
	if user.UserID == "" {
		user.UserID = res.UserID
	}
	if user.Nickname == "" {
		user.Nickname = res.Nickname
	}
	if user.Nickname == "" {
		user.Nickname = DefaultNickname
	}
	return user
}
