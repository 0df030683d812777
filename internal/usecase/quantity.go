package usecase

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrQuantityRequired    = errors.New("quantity required")
	ErrQuantityInvalid     = errors.New("quantity must be an integer")
	ErrQuantityNotPositive = errors.New("quantity must be >= 1")
)

// ParseQuantity はフォームの数量文字列を正の整数にする。
func ParseQuantity(text string) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrQuantityRequired
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrQuantityInvalid
	}
	if n < 1 {
		return 0, ErrQuantityNotPositive
	}
	return n, nil
}
