package adapter

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// MaxDigits is the maximum length of a phone number.
const MaxDigits = 32

var (
	ErrPhoneNumberTooLong = errors.New("phone number has more than 32 digits")
	ErrPhoneNumberEmpty   = errors.New("phone number is empty")
	ErrNotIPv4            = errors.New("not an IPv4 address")
)

// InvalidDigitError is a character which can't be dialed.
type InvalidDigitError rune

func (e InvalidDigitError) Error() string {
	return fmt.Sprintf("invalid digit %q", rune(e))
}

// PhoneNumber is a sequence of up to 32 dialable digits: 0-9, '#' and '*'.
// The zero value is the empty number.
type PhoneNumber struct {
	digits [MaxDigits]byte
	n      uint8
}

// separators are dropped when parsing, so numbers can be written the way
// they are printed.
var separators = runes.Predicate(func(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune("-().", r)
})

// ParsePhoneNumber parses a phone number.  Full-width digits are folded to
// their ASCII form and separators are removed.
func ParsePhoneNumber(s string) (PhoneNumber, error) {
	t := transform.Chain(width.Narrow, runes.Remove(separators))
	s, _, err := transform.String(t, s)
	if err != nil {
		return PhoneNumber{}, err
	}

	var p PhoneNumber
	for _, r := range s {
		if !isDigit(r) {
			return PhoneNumber{}, InvalidDigitError(r)
		}
		if int(p.n) == MaxDigits {
			return PhoneNumber{}, ErrPhoneNumberTooLong
		}
		p.digits[p.n] = byte(r)
		p.n++
	}
	if p.n == 0 {
		return PhoneNumber{}, ErrPhoneNumberEmpty
	}
	return p, nil
}

// PhoneNumberFromIPv4 returns the number used to call an address directly,
// which is each octet as three decimal digits.
func PhoneNumberFromIPv4(addr netip.Addr) (PhoneNumber, error) {
	if !addr.Is4() {
		return PhoneNumber{}, ErrNotIPv4
	}
	var p PhoneNumber
	for _, octet := range addr.As4() {
		p.digits[p.n] = '0' + octet/100
		p.digits[p.n+1] = '0' + octet%100/10
		p.digits[p.n+2] = '0' + octet%10
		p.n += 3
	}
	return p, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9' || r == '#' || r == '*'
}

// Len returns the number of digits.
func (p PhoneNumber) Len() int {
	return int(p.n)
}

// Digit returns the ASCII encoding of the i-th digit.
func (p PhoneNumber) Digit(i int) byte {
	return p.digits[i]
}

func (p PhoneNumber) String() string {
	return string(p.digits[:p.n])
}
