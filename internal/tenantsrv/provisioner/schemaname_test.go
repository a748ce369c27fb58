package provisioner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSchemaName(t *testing.T) {
	tests := []struct {
		subdomain string
		expected  string
	}{
		{"acme", "tenant_acme"},
		{"acme-corp", "tenant_acme-corp"},
		{"ACME", "tenant_acme"},
		{"acme.corp", "tenant_acme-corp"},
		{"-acme-", "tenant_acme"},
		{"a", "tenant_a"},
		{"42", "tenant_42"},
		{"---", ""},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DeriveSchemaName(tt.subdomain), "subdomain %q", tt.subdomain)
	}
}

func TestDeriveSchemaNameLength(t *testing.T) {
	long := strings.Repeat("a", 80)
	name := DeriveSchemaName(long)
	assert.LessOrEqual(t, len(name), 63)
	assert.True(t, strings.HasPrefix(name, "tenant_"))
	assert.NotEqual(t, "-", name[len(name)-1:])
}

func TestDeriveSchemaNameDeterministic(t *testing.T) {
	assert.Equal(t, DeriveSchemaName("globex"), DeriveSchemaName("globex"))
}
