package types

import (
	"errors"
	"testing"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    Cents
		wantErr error
	}{
		{"203.38", 20338, nil},
		{"200.00", 20000, nil},
		{"200", 20000, nil},
		{"200.5", 20050, nil},
		{"10.00", 1000, nil},
		{"0.07", 7, nil},
		{".5", 50, nil},
		{"203.389", 20338, nil},
		{" 203.38 ", 20338, nil},
		{"", 0, ErrSyntax},
		{".", 0, ErrSyntax},
		{"-1.00", 0, ErrSyntax},
		{"1e3", 0, ErrSyntax},
		{"1,000.00", 0, ErrSyntax},
		{"abc", 0, ErrSyntax},
		{"184467440737095516.16", 0, ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCentsString(t *testing.T) {
	if got := Cents(20338).String(); got != "203.38" {
		t.Errorf("got %s", got)
	}
	if got := Cents(7).String(); got != "0.07" {
		t.Errorf("got %s", got)
	}
}
