package auth

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Ada Lovelace", want: "Ada Lovelace"},
		{name: "outer space trimmed", input: "  Ada  ", want: "Ada"},
		{name: "tabs and newlines collapse", input: "Ada\t\n  Lovelace", want: "Ada Lovelace"},
		{name: "control runes dropped", input: "Ada\x00 Love\x07lace", want: "Ada Lovelace"},
		{name: "zero width space dropped", input: "Ada\u200b Lovelace", want: "Ada Lovelace"},
		{name: "bidi override dropped", input: "\u202eAda", want: "Ada"},
		{name: "non-breaking space is a space", input: "Ada\u00a0Lovelace", want: "Ada Lovelace"},
		{name: "markup kept for the validator", input: "Ada <b>", want: "Ada <b>"},
		{name: "accents kept", input: "José García", want: "José García"},
		{name: "only whitespace", input: " \t ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.input); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeName_ThenValidate(t *testing.T) {
	v := NewValidator(ValidatorOptions{})

	err := v.ValidateProfileUpdate(UpdateProfileInput{Name: strPtr(SanitizeName("Ada <b>"))})
	if err == nil {
		t.Fatal("markup in a name passed validation")
	}
	if err := v.ValidateProfileUpdate(UpdateProfileInput{Name: strPtr(SanitizeName(" Ada\u200b  Lovelace "))}); err != nil {
		t.Errorf("sanitized name rejected: %v", err)
	}
}

func strPtr(s string) *string { return &s }
