package container

import "regexp"

// CondenseHostName truncates the middle of the given name
// if it is 64 characters or longer.
//
// Container hostnames longer than that make the runtime's sethostname call
// fail with an invalid argument error.
func CondenseHostName(name string) string {
	if len(name) < 64 {
		return name
	}

	// A _._ separator keeps the result resolvable inside the docker
	// network, which a bare ... would not.
	return name[:30] + "_._" + name[len(name)-30:]
}

var validResourceCharsRE = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeResourceName returns name with any characters invalid in a Docker
// resource name replaced with underscores.
func SanitizeResourceName(name string) string {
	return validResourceCharsRE.ReplaceAllLiteralString(name, "_")
}
