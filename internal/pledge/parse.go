package pledge

import "strings"

// Apply parses and applies one pledge() argument / CLI -P flag in the
// "[~]name[:sub][=value]" syntax: a leading "~" rejects the permission
// instead of granting it. Returns whether the request succeeded.
func (s *Store) Apply(spec string) (bool, error) {
	if strings.HasPrefix(spec, "~") {
		return s.Reject(spec[1:]), nil
	}

	name := spec
	value := ""
	if i := strings.IndexByte(spec, '='); i >= 0 {
		name = spec[:i]
		value = spec[i+1:]
	}
	return s.Pledge(name, value)
}
