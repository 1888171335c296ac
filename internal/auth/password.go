package auth

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// 密码强度要求
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt输入上限
)

// 常见弱密码黑名单
var commonPasswords = map[string]struct{}{
	"123456": {}, "password": {}, "123456789": {}, "12345678": {},
	"qwerty": {}, "abc123": {}, "111111": {}, "letmein": {},
	"welcome1": {}, "password1": {},
}

// HashPassword 使用bcrypt哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码与哈希是否匹配
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword 检查密码是否符合强度要求
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password must be at most 72 characters")
	}
	if _, weak := commonPasswords[password]; weak {
		return errors.New("password is too common")
	}

	hasLetter := false
	hasNumber := false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return errors.New("password must contain both letters and numbers")
	}

	return nil
}
