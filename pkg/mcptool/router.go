package mcptool

import (
	"fmt"
	"regexp"
	"strings"
)

// toolNameRegex validates the "server.tool" format. Both parts must start
// with a word character and contain only word characters and hyphens.
var toolNameRegex = regexp.MustCompile(`^([\w][\w-]*)\.([\w][\w-]*)$`)

// NormalizeToolName converts an LLM-SDK-restricted "server__tool" form
// (some vendors disallow dots in function names) to the canonical
// "server.tool" form used for routing.
func NormalizeToolName(name string) string {
	if strings.Contains(name, "__") && !strings.Contains(name, ".") {
		return strings.Replace(name, "__", ".", 1)
	}
	return name
}

// SplitToolName splits "server.tool" into (serverID, toolName, error).
func SplitToolName(name string) (serverID, toolName string, err error) {
	matches := toolNameRegex.FindStringSubmatch(name)
	if matches == nil {
		return "", "", fmt.Errorf(
			"invalid tool name %q: must be in 'server.tool' format (e.g. 'netbox.list_devices')", name)
	}
	return matches[1], matches[2], nil
}

// Allowed reports whether name passes the configured allow-list of
// "server.tool" prefixes. An empty allowlist means no restriction — every
// well-formed name is allowed. A prefix may name an exact tool
// ("netbox.list_devices") or a whole server ("netbox.") to allow every tool
// on that server.
func Allowed(name string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	for _, prefix := range allowlist {
		if name == prefix || strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
