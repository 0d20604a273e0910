package handlers

import "testing"

func TestPasswordViolations(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     int // number of violated rules
	}{
		{name: "acceptable", password: "Password123", want: 0},
		{name: "short_no_case_no_digit", password: "weak", want: 3},
		{name: "no_digit", password: "NoDigitsHere", want: 1},
		{name: "no_upper", password: "alllower123", want: 1},
		{name: "no_lower", password: "ALLUPPER123", want: 1},
		{name: "short_but_mixed", password: "Ab1", want: 1},
		{name: "digits_only", password: "12345678", want: 1},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			got := passwordViolations(tt.password)

			if len(got) != tt.want {
				t.Fatalf("password %q: got %d violations %v, want %d", tt.password, len(got), got, tt.want)
			}
		})
	}
}
