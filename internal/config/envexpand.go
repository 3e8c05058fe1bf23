package config

import "os"

// ExpandEnv expands ${VAR} and $VAR references using the standard library.
// PHONE_IP is the one templated value this system has, for deployments
// that supply it as a template (e.g. "${PHONE_HOST}") rather than a
// literal address.
func ExpandEnv(s string) string {
	return os.ExpandEnv(s)
}
