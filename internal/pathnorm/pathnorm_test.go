package pathnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already normalized", "src/index.ts", "src/index.ts"},
		{"windows separators", `src\components\Button.tsx`, "src/components/Button.tsx"},
		{"mixed separators", `src\lib/util.go`, "src/lib/util.go"},
		{"case preserved", `Docs\README.md`, "Docs/README.md"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.input))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "src/components/button.tsx", Fold(`Src\Components\Button.tsx`))
	assert.Equal(t, "readme", Fold("README"))
}

func TestBasename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"nested file", "src/index.test.ts", "index.test.ts"},
		{"top-level file", "go.mod", "go.mod"},
		{"directory", "src/lib", "lib"},
		{"trailing separator", "src/lib/", "lib"},
		{"root-only separators", "///", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Basename(tt.input))
		})
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"two segments", "src/index", []string{"src", "index"}},
		{"leading and trailing separators", "/src/lib/", []string{"src", "lib"}},
		{"doubled separators", "src//lib", []string{"src", "lib"}},
		{"no separator", "index", []string{"index"}},
		{"only separators", "//", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segments(tt.input))
		})
	}
}

func TestHasSeparatorAndLength(t *testing.T) {
	assert.True(t, HasSeparator("src/"))
	assert.False(t, HasSeparator("src"))

	assert.Equal(t, 6, Length("résumé"))
	assert.Equal(t, 12, Length("src/index.ts"))
}
