package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSubName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sub  string
		ok   bool
	}{
		{name: "simple", sub: "golang", ok: true},
		{name: "mixed case", sub: "AskReadit", ok: true},
		{name: "underscore inside", sub: "pc_gaming", ok: true},
		{name: "minimum length", sub: "abc", ok: true},
		{name: "maximum length", sub: strings.Repeat("a", 21), ok: true},
		{name: "empty", sub: "", ok: false},
		{name: "too short", sub: "ab", ok: false},
		{name: "too long", sub: strings.Repeat("a", 22), ok: false},
		{name: "hyphen", sub: "pc-gaming", ok: false},
		{name: "space", sub: "pc gaming", ok: false},
		{name: "leading underscore", sub: "_golang", ok: false},
		{name: "trailing underscore", sub: "golang_", ok: false},
		{name: "reserved", sub: "admin", ok: false},
		{name: "reserved any case", sub: "Popular", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSubName(tc.sub)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateSubTitle(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateSubTitle("The Go Programming Language"))
	assert.Error(t, ValidateSubTitle("   "))
	assert.Error(t, ValidateSubTitle(strings.Repeat("t", 101)))
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Exactly Max Length", strings.Repeat("u", 32), false},
		{"Too Short", "tu", true},
		{"Too Long", strings.Repeat("u", 33), true},
		{"Illegal Chars", "user@123", true},
		{"Hyphen", "user-name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePassword("secret"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(strings.Repeat("p", 129)))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Subdomain", "someone@mail.example.co", false},
		{"Empty", "", true},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Multiple At Symbols", "user@@example.com", true},
		{"Space In Local Part", "user @example.com", true},
		{"Trailing Dot In Domain", "user@example.com.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type voteBody struct {
	Identifier string `json:"identifier" validate:"required"`
	Value      *int   `json:"value" validate:"required,oneof=-1 0 1"`
}

func TestStruct(t *testing.T) {
	t.Parallel()

	one, two := 1, 2
	assert.Nil(t, Struct(voteBody{Identifier: "abc", Value: &one}))

	fields := Struct(voteBody{Value: &two})
	assert.Equal(t, "identifier must not be empty", fields["identifier"])
	assert.Equal(t, "value must be one of: -1, 0, 1", fields["value"])

	fields = Struct(voteBody{Identifier: "abc"})
	assert.Equal(t, "value must not be empty", fields["value"])
}
