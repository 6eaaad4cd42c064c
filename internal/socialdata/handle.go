package socialdata

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var validHandle = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N}_-]{1,99}$`)

// ExtractHandle normalizes a profile URL or bare handle to the handle.
//
//	https://www.linkedin.com/in/jane-doe/   -> jane-doe
//	linkedin.com/in/jane-doe?trk=x          -> jane-doe
//	jane-doe                                -> jane-doe
func ExtractHandle(id string) (string, error) {
	s := strings.TrimSpace(id)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidHandle)
	}
	if strings.Contains(s, "/") {
		if !strings.Contains(s, "://") {
			s = "https://" + s
		}
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidHandle, id, err)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		s = parts[len(parts)-1]
		for i, p := range parts {
			if (p == "in" || p == "company") && i+1 < len(parts) {
				s = parts[i+1]
				break
			}
		}
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
	}
	s = strings.TrimPrefix(s, "@")
	if !validHandle.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, id)
	}
	return strings.ToLower(s), nil
}
