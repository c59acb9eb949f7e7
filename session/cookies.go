package session

import "strings"

// AddCookies captures the Set-Cookie values from one response, stripping
// attributes after the first ';' from each, joining the survivors with
// "; ", and appending the result as one entry in Cookies. Given
// "a=1; Path=/" and "b=2; Secure" this produces "a=1; b=2" (spec §8
// "Cookie capture" property).
func (s *Session) AddCookies(setCookieValues []string) *Session {
	if len(setCookieValues) == 0 {
		return s
	}
	parts := make([]string, 0, len(setCookieValues))
	for _, v := range setCookieValues {
		parts = append(parts, stripCookieAttributes(v))
	}
	out := s.clone()
	out.Cookies = append(append([]string{}, s.Cookies...), strings.Join(parts, "; "))
	return out
}

func stripCookieAttributes(setCookie string) string {
	if i := strings.Index(setCookie, ";"); i >= 0 {
		return strings.TrimSpace(setCookie[:i])
	}
	return strings.TrimSpace(setCookie)
}

// CookieHeader joins every captured cookie entry into the single header
// value sent with subsequent requests (spec §4.5: "session cookie list
// (as cookie)").
func (s *Session) CookieHeader() string {
	return strings.Join(s.Cookies, "; ")
}
