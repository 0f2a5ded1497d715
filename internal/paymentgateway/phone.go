package paymentgateway

import (
	"regexp"
	"strings"
)

// MSISDNPattern matches the payer identifiers Daraja accepts for Kenyan
// subscribers, before or after normalization: 07xx/01xx local form, or
// 2547xx/2541xx international form with an optional plus.
var MSISDNPattern = regexp.MustCompile(`^(?:\+?254|0)(7|1)\d{8}$`)

// NormalizeMSISDN converts 07xxxxxxxx / +2547xxxxxxxx to 2547xxxxxxxx.
// Inputs already in international form pass through unchanged.
func NormalizeMSISDN(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "0") {
		return "254" + phone[1:]
	}
	if strings.HasPrefix(phone, "+") {
		return phone[1:]
	}
	return phone
}
