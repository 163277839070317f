package auth

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenResponse represents an access token response
// swagger:model TokenResponse
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"<JWT>"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int    `json:"expires_in" example:"86400"`
	Username    string `json:"username" example:"leo"`
	Next        string `json:"next,omitempty" example:"/create/"`
}

// LoginRequest represents the login form or JSON body
// swagger:model LoginRequest
type LoginRequest struct {
	Username string `json:"username" form:"username" example:"leo"`
	Password string `json:"password" form:"password" example:"Secretp@ssw0rd"`
	Next     string `json:"next" form:"next" example:"/create/"`
}

// SignupRequest represents the signup form or JSON body
// swagger:model SignupRequest
type SignupRequest struct {
	Username string `json:"username" form:"username" example:"leo"`
	Password string `json:"password" form:"password" example:"Secretp@ssw0rd"`
}

const (
	minPasswordLen = 8
	maxUsernameLen = 150
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// validate returns per-field messages, empty when the request is acceptable.
func (r *SignupRequest) validate() map[string][]string {
	errs := map[string][]string{}
	r.Username = strings.TrimSpace(r.Username)
	switch {
	case r.Username == "":
		errs["username"] = append(errs["username"], "This field is required.")
	case utf8.RuneCountInString(r.Username) > maxUsernameLen:
		errs["username"] = append(errs["username"], "Ensure this value has at most 150 characters.")
	case !usernameRe.MatchString(r.Username):
		errs["username"] = append(errs["username"], "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	switch {
	case r.Password == "":
		errs["password"] = append(errs["password"], "This field is required.")
	case utf8.RuneCountInString(r.Password) < minPasswordLen:
		errs["password"] = append(errs["password"], "This password is too short. It must contain at least 8 characters.")
	case strings.EqualFold(r.Password, r.Username):
		errs["password"] = append(errs["password"], "The password is too similar to the username.")
	}
	return errs
}

// SafeNext returns next when it is a local path and fallback otherwise.
// A next carrying control characters is never treated as local: browsers
// drop tabs and newlines from URLs, and CR/LF would split the header.
func SafeNext(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || strings.ContainsFunc(next, unicode.IsControl) {
		return fallback
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
