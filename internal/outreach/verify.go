package outreach

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// Address verification failures.
var (
	ErrNoAddress   = errors.New("no address")
	ErrPlaceholder = errors.New("placeholder address")
	ErrMalformed   = errors.New("malformed address")
)

var placeholderSignals = []string{
	"example.com",
	"example.org",
	"example.net",
	"test@",
	"@test.",
	"yourname",
	"your-name",
	"youremail",
	"your-email",
	"your_email",
	"placeholder",
	"changeme",
	"xxx",
	"@domain.",
	"@localhost",
	"noreply@",
	"no-reply@",
}

// placeholderLocals are local parts that are only ever filler.
var placeholderLocals = map[string]bool{
	"user":     true,
	"email":    true,
	"name":     true,
	"foo":      true,
	"bar":      true,
	"someone":  true,
	"john.doe": true,
	"jane.doe": true,
}

var addressPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// VerifyAddress rejects empty, placeholder and malformed addresses.
func VerifyAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ErrNoAddress
	}
	lower := strings.ToLower(addr)
	for _, sig := range placeholderSignals {
		if strings.Contains(lower, sig) {
			return errors.Wrapf(ErrPlaceholder, "%q contains %q", addr, sig)
		}
	}
	if local, _, ok := strings.Cut(lower, "@"); ok && placeholderLocals[local] {
		return errors.Wrapf(ErrPlaceholder, "%q", addr)
	}
	if !addressPattern.MatchString(addr) || strings.Contains(addr, "..") {
		return errors.Wrapf(ErrMalformed, "%q", addr)
	}
	return nil
}
