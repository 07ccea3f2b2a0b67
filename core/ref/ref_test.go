package ref

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Ref
	}{
		{"Gen.1.1", Ref{Book: "Gen", Chapter: 1, Verse: 1}},
		{"hbo:Gen.1.1", Ref{Language: "hbo", Book: "Gen", Chapter: 1, Verse: 1}},
		{"grc:Matt.5.3", Ref{Language: "grc", Book: "Matt", Chapter: 5, Verse: 3}},
		{"1John.3.16", Ref{Book: "1John", Chapter: 3, Verse: 16}},
		{"hbo:1Sam.17.4", Ref{Language: "hbo", Book: "1Sam", Chapter: 17, Verse: 4}},
		{"  Gen.1.1  ", Ref{Book: "Gen", Chapter: 1, Verse: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"Gen",
		"Gen.1",
		"not a ref at all!",
		"Gen.x.1",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) should have failed", input)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		ref  Ref
		want string
	}{
		{Ref{Language: "hbo", Book: "Gen", Chapter: 1, Verse: 1}, "hbo:Gen.1.1"},
		{Ref{Book: "Matt", Chapter: 5, Verse: 3}, "Matt.5.3"},
		{Ref{Language: "grc", Book: "1John", Chapter: 3, Verse: 16}, "grc:1John.3.16"},
	}

	for _, tt := range tests {
		if got := tt.ref.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	inputs := []string{"hbo:Gen.1.1", "Gen.1.1", "grc:Matt.5.3", "1John.3.16"}
	for _, input := range inputs {
		r, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", input, err)
		}
		if r.String() != input {
			t.Errorf("round trip %q -> %q", input, r.String())
		}
	}
}

func TestTokenID(t *testing.T) {
	r := Ref{Language: "hbo", Book: "Gen", Chapter: 1, Verse: 1}
	if got := r.TokenID(3); got != "hbo:Gen.1.1#3" {
		t.Errorf("TokenID(3) = %q, want %q", got, "hbo:Gen.1.1#3")
	}

	// IDs for distinct verses and ordinals must be distinct.
	seen := map[string]bool{}
	for v := 1; v <= 3; v++ {
		for ord := 1; ord <= 5; ord++ {
			id := Ref{Language: "hbo", Book: "Gen", Chapter: 1, Verse: v}.TokenID(ord)
			if seen[id] {
				t.Fatalf("duplicate token ID %q", id)
			}
			seen[id] = true
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		ref     Ref
		wantErr bool
	}{
		{"valid", Ref{Language: "hbo", Book: "Gen", Chapter: 1, Verse: 1}, false},
		{"missing book", Ref{Chapter: 1, Verse: 1}, true},
		{"zero chapter", Ref{Book: "Gen", Verse: 1}, true},
		{"zero verse", Ref{Book: "Gen", Chapter: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
