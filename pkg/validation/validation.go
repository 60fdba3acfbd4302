// Package validation holds the input checks shared by the HTTP handlers.
package validation

import (
	"regexp"
	"strings"
)

var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

const maxNotesLen = 500

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 200
}

func ValidatePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	return phone != "" && phoneRegex.MatchString(phone) && len(phone) <= 50
}

func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ValidateStop requires a non-empty address and in-range coordinates.
func ValidateStop(address string, lat, lng float64) bool {
	return strings.TrimSpace(address) != "" && ValidateCoordinates(lat, lng)
}

func ValidateNotes(notes string) bool {
	return len(notes) <= maxNotesLen
}
