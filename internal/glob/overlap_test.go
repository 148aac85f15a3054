package glob

import (
	"errors"
	"testing"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
)

func TestPatternsOverlap(t *testing.T) {
	tests := []struct {
		a, b    string
		overlap bool
	}{
		{"*.go", "*.go", true},
		{"*.go", "*.rs", false},
		{"foo.go", "foo.go", true},
		{"foo.go", "bar.go", false},
		{"*.go", "main.go", true},
		{"internal/*.go", "internal/http.go", true},
		{"internal/*.go", "pkg/*.go", false},
		{"src/[a-z]*.go", "src/main.go", true},
		{"src/[A-Z]*.go", "src/main.go", false},

		// A single star never crosses a path separator.
		{"*.ts", "src/*.ts", false},
		{"src/*", "src/auth/login.ts", false},

		// Doublestar consumes zero or more whole segments.
		{"src/**", "src/auth/login.ts", true},
		{"src/**", "docs/**", false},
		{"src/**", "src/main.go", true},
		{"**", "anything/at/all.txt", true},
		{"src/**/login.ts", "src/auth/login.ts", true},
		{"src/**/login.ts", "src/login.ts", true},
		{"src/**/login.ts", "src/auth/logout.ts", false},
		{"a/**", "**/b", true},
		{"a/**/c", "a/b/**", true},
		{"src/auth/**", "src/auth/login.ts", true},
		{"src/auth/**", "src/billing/*.ts", false},
	}
	for _, tt := range tests {
		got, err := PatternsOverlap(tt.a, tt.b)
		if err != nil {
			t.Errorf("PatternsOverlap(%q, %q) error: %v", tt.a, tt.b, err)
			continue
		}
		if got != tt.overlap {
			t.Errorf("PatternsOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.overlap)
		}
		// Overlap is symmetric.
		rev, err := PatternsOverlap(tt.b, tt.a)
		if err != nil {
			t.Errorf("PatternsOverlap(%q, %q) error: %v", tt.b, tt.a, err)
			continue
		}
		if rev != tt.overlap {
			t.Errorf("PatternsOverlap(%q, %q) = %v, want %v (asymmetric)", tt.b, tt.a, rev, tt.overlap)
		}
	}
}

func TestValidateRejectsEscapes(t *testing.T) {
	for _, pattern := range []string{"/etc/passwd", "../sibling/*.go", "src/../../x", "."} {
		err := Validate(pattern)
		var esc *core.PathEscapeError
		if !errors.As(err, &esc) {
			t.Errorf("Validate(%q) = %v, want PathEscapeError", pattern, err)
		}
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	for _, pattern := range []string{"", "  ", "src//x.go", "src/{a,b}.go", "src/[z-a].go", "src/[unclosed"} {
		err := Validate(pattern)
		var ve *core.ValidationError
		if err == nil || !errors.As(err, &ve) {
			t.Errorf("Validate(%q) = %v, want ValidationError", pattern, err)
		}
	}
}

func TestValidateComplexityLimits(t *testing.T) {
	if err := Validate("internal/http/*.go"); err != nil {
		t.Fatalf("normal pattern rejected: %v", err)
	}
	complex := "?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?"
	if err := Validate(complex); err == nil {
		t.Fatal("expected complexity error for pattern with many wildcards")
	}
}

func TestValidateAcceptsDoublestar(t *testing.T) {
	for _, pattern := range []string{"src/**", "**", "src/**/login.ts", "docs/**/*.md"} {
		if err := Validate(pattern); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", pattern, err)
		}
	}
}
