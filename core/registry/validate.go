package registry

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrRecordNotFound is returned when no record carries the given id.
var ErrRecordNotFound = errors.New("registry: record not found")

// ValidationError carries a field-specific message, surfaced as a 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func requireNonBlank(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: "must not be blank"}
	}
	return nil
}

func requireDate(field, value string) error {
	if !dateRe.MatchString(strings.TrimSpace(value)) {
		return ValidationError{Field: field, Message: "must be formatted YYYY-MM-DD"}
	}
	return nil
}

// requireURL validates that value is a well-formed http(s) URL.
func requireURL(field, value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: field, Message: "must be a valid http(s) URL"}
	}
	return nil
}

// requireHost validates that value is an http(s) URL on one of the given
// hosts. A www. prefix on the URL host is tolerated.
func requireHost(field, value string, hosts ...string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: field, Message: "must be a valid http(s) URL"}
	}
	got := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	for _, host := range hosts {
		if got == host {
			return nil
		}
	}
	return ValidationError{Field: field, Message: fmt.Sprintf("host must be one of %s", strings.Join(hosts, ", "))}
}
