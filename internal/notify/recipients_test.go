package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseList_Encodings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"json array", `["a@x.com","b@y.com"]`, []string{"a@x.com", "b@y.com"}},
		{"json string comma list", `"a@x.com, b@y.com"`, []string{"a@x.com", " b@y.com"}},
		{"bare comma string", `a@x.com,b@y.com`, []string{"a@x.com", "b@y.com"}},
		{"single address", `a@x.com`, []string{"a@x.com"}},
		{"empty", ``, nil},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseList(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" A@X.com ", "b@y.com", "a@x.com", "", "B@Y.COM"})
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, got)
}

func TestResolve_UnionsCreator(t *testing.T) {
	got := Resolve(
		[]string{"to@x.com"},
		[]string{"cc@x.com"},
		"creator@x.com",
		"agent@x.com",
		false,
	)
	assert.Equal(t, []string{"to@x.com", "cc@x.com", "creator@x.com"}, got)
}

func TestResolve_ExcludesAuthor(t *testing.T) {
	got := Resolve(
		[]string{"to@x.com", "Agent@X.com"},
		nil,
		"creator@x.com",
		"agent@x.com",
		false,
	)
	assert.Equal(t, []string{"to@x.com", "creator@x.com"}, got)
}

func TestResolve_CreatorIsAuthor(t *testing.T) {
	got := Resolve([]string{"to@x.com"}, nil, "creator@x.com", "CREATOR@x.com", false)
	assert.Equal(t, []string{"to@x.com"}, got)
}

func TestResolve_InternalProducesNone(t *testing.T) {
	got := Resolve([]string{"to@x.com"}, []string{"cc@x.com"}, "creator@x.com", "agent@x.com", true)
	assert.Empty(t, got)
}

func TestResolve_Dedupes(t *testing.T) {
	got := Resolve(
		[]string{"a@x.com", "a@x.com"},
		[]string{"A@X.COM", "creator@x.com"},
		"creator@x.com",
		"agent@x.com",
		false,
	)
	assert.Equal(t, []string{"a@x.com", "creator@x.com"}, got)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"john.doe@example.com", "John Doe"},
		{"mary_jane-watson@example.com", "Mary Jane Watson"},
		{"support+billing@example.com", "Support Billing"},
		{"alice@example.com", "Alice"},
		{"@example.com", "@example.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.email), tt.email)
	}
}
