package service

import "strings"

const (
	paymentCodeMin = 6
	paymentCodeMax = 32
)

// ValidPaymentCode 前缀必须是发行方之一，剩余部分为 6-32 位大写字母或数字
func ValidPaymentCode(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" || !strings.HasPrefix(code, p) {
			continue
		}
		rest := code[len(p):]
		if len(rest) < paymentCodeMin || len(rest) > paymentCodeMax {
			continue
		}
		if upperAlnum(rest) {
			return true
		}
	}
	return false
}

func upperAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
