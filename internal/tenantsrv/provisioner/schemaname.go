package provisioner

import "strings"

const (
	schemaNamePrefix = "tenant_"
	// postgres identifier limit
	maxSchemaNameLen = 63
)

// DeriveSchemaName maps a subdomain to the physical schema name that holds
// the tenant's data. The mapping is deterministic: lowercase, restrict to
// [a-z0-9-], collapse anything else to a hyphen, trim edge hyphens, and
// prefix with "tenant_". Returns the empty string when nothing usable
// remains.
func DeriveSchemaName(subdomain string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(subdomain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return ""
	}
	name = schemaNamePrefix + name
	if len(name) > maxSchemaNameLen {
		name = strings.TrimRight(name[:maxSchemaNameLen], "-")
	}
	return name
}
