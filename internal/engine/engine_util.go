package engine

import (
	"crypto/rand"
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxNicknameLen = 10
	RoomCodeLen    = 6
)

// NormalizeNickname trims and NFC-normalizes raw, then enforces 1..10 runes
// drawn from ASCII letters and digits, Hangul syllables, '_', '-' and space.
func NormalizeNickname(raw string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNicknameLen {
		return "", ErrInvalidNickname
	}
	for _, r := range name {
		if !nicknameRune(r) {
			return "", ErrInvalidNickname
		}
	}
	return name, nil
}

func nicknameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= '가' && r <= '힣':
		return true
	case r == '_', r == '-', r == ' ':
		return true
	}
	return false
}

// NormalizeRoomCode upper-cases raw and checks for 6 ASCII alphanumerics.
func NormalizeRoomCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != RoomCodeLen {
		return "", ErrInvalidRoomCode
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", ErrInvalidRoomCode
		}
	}
	return code, nil
}

// NewSeed draws a fresh 32-bit seed from the system CSPRNG.
func NewSeed() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("engine: crypto/rand unavailable: " + err.Error())
	}
	return binary.LittleEndian.Uint32(b[:])
}
