// Package rut validates and normalises Chilean RUT numbers.
package rut

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid RUT")

// Normalize strips dots and spaces, upper-cases the check digit and inserts
// the hyphen, then validates the modulo-11 check digit. "12.345.678-5"
// becomes "12345678-5".
func Normalize(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(".", "", " ", "", "-", "").Replace(s)
	if len(s) < 2 || len(s) > 9 {
		return "", ErrInvalid
	}

	body, dv := s[:len(s)-1], s[len(s)-1]
	n, err := strconv.Atoi(body)
	if err != nil || n <= 0 {
		return "", ErrInvalid
	}
	if CheckDigit(n) != dv {
		return "", ErrInvalid
	}
	return strconv.Itoa(n) + "-" + string(dv), nil
}

func Valid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

// CheckDigit computes the modulo-11 verifier for body. It returns '0'-'9'
// or 'K'.
func CheckDigit(body int) byte {
	sum, mul := 0, 2
	for ; body > 0; body /= 10 {
		sum += (body % 10) * mul
		mul++
		if mul > 7 {
			mul = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + r)
	}
}
