package login

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"xhstoolbox/pkg/xhs"
)

func TestMapCode(t *testing.T) {
	tests := []struct {
		code int
		want Status
	}{
		{0, StatusWaiting},
		{1, StatusScanned},
		{2, StatusConfirmed},
		{-1, StatusExpired},
		{3, StatusWaiting},
		{-2, StatusWaiting},
		{100, StatusWaiting},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapCode(tt.code), "code %d", tt.code)
	}
}

func TestParseCodeStatus(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Status
		wantOK bool
	}{
		{name: "zero", raw: `0`, want: StatusWaiting, wantOK: true},
		{name: "scanned", raw: `1`, want: StatusScanned, wantOK: true},
		{name: "confirmed", raw: `2`, want: StatusConfirmed, wantOK: true},
		{name: "expired", raw: `-1`, want: StatusExpired, wantOK: true},
		{name: "numeric string", raw: `"2"`, want: StatusConfirmed, wantOK: true},
		{name: "word", raw: `"expired"`, want: StatusExpired, wantOK: true},
		{name: "upper case word", raw: `"SCANNED"`, want: StatusScanned, wantOK: true},
		{name: "unknown number", raw: `7`, want: StatusWaiting},
		{name: "unknown word", raw: `"pending"`, want: StatusWaiting},
		{name: "fraction", raw: `1.5`, want: StatusWaiting},
		{name: "bool", raw: `true`, want: StatusWaiting},
		{name: "null", raw: `null`, want: StatusWaiting},
		{name: "empty", raw: ``, want: StatusWaiting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCodeStatus(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestStatusOf(t *testing.T) {
	s, ok := StatusOf(&xhs.QRStatus{CodeStatus: json.RawMessage(`1`), Status: "expired"})
	assert.True(t, ok)
	assert.Equal(t, StatusScanned, s)

	s, ok = StatusOf(&xhs.QRStatus{Status: "confirmed"})
	assert.True(t, ok)
	assert.Equal(t, StatusConfirmed, s)

	s, ok = StatusOf(&xhs.QRStatus{CodeStatus: json.RawMessage(`null`), Status: "expired"})
	assert.True(t, ok)
	assert.Equal(t, StatusExpired, s)

	s, ok = StatusOf(&xhs.QRStatus{Success: true})
	assert.False(t, ok)
	assert.Equal(t, StatusWaiting, s)

	s, ok = StatusOf(nil)
	assert.False(t, ok)
	assert.Equal(t, StatusWaiting, s)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusLoading.IsTerminal())
	assert.False(t, StatusWaiting.IsTerminal())
	assert.False(t, StatusScanned.IsTerminal())
	assert.True(t, StatusConfirmed.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.NotEmpty(t, StatusScanned.Describe())
}

func TestUserFrom(t *testing.T) {
	tests := []struct {
		name string
		res  *xhs.QRStatus
		want xhs.UserInfo
	}{
		{
			name: "login info",
			res: &xhs.QRStatus{
				LoginInfo: &xhs.LoginInfo{UserID: "u1", Nickname: "Ann", Avatar: "https://img/a.jpg"},
				UserID:    "ignored",
			},
			want: xhs.UserInfo{UserID: "u1", Nickname: "Ann"},
		},
		{
			name: "top level fields",
			res:  &xhs.QRStatus{UserID: "u2", Nickname: "Bo"},
			want: xhs.UserInfo{UserID: "u2", Nickname: "Bo"},
		},
		{
			name: "default nickname",
			res:  &xhs.QRStatus{LoginInfo: &xhs.LoginInfo{UserID: "u3"}},
			want: xhs.UserInfo{UserID: "u3", Nickname: DefaultNickname},
		},
		{
			name: "nothing",
			res:  &xhs.QRStatus{},
			want: xhs.UserInfo{Nickname: DefaultNickname},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserFrom(tt.res)
			assert.Equal(t, tt.want, *got)
			assert.Empty(t, got.Avatar)
		})
	}
}
