package archive

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathPolicy(t *testing.T) {
	_, err := NewPathPolicy("")
	require.Error(t, err)

	_, err = NewPathPolicy("relative/root")
	require.Error(t, err)

	p, err := NewPathPolicy("/archives")
	require.NoError(t, err)
	assert.Equal(t, "/archives", p.Root())
}

func TestPathPolicy_Resolve(t *testing.T) {
	p, err := NewPathPolicy("/archives")
	require.NoError(t, err)

	tests := []struct {
		name     string
		category string
		fullName string
		want     string
		wantErr  bool
	}{
		{
			name:     "simple",
			category: "tools",
			fullName: "octo/hello",
			want:     filepath.Join("/archives", "tools", "octo-hello"),
		},
		{
			name:     "empty category defaults",
			category: "",
			fullName: "octo/hello",
			want:     filepath.Join("/archives", DefaultCategory, "octo-hello"),
		},
		{
			name:     "missing name separator",
			category: "tools",
			fullName: "hello",
			wantErr:  true,
		},
		{
			name:     "extra separator",
			category: "tools",
			fullName: "octo/hello/world",
			wantErr:  true,
		},
		{
			name:     "traversal in name",
			category: "tools",
			fullName: "../etc/passwd",
			wantErr:  true,
		},
		{
			name:     "traversal segments",
			category: "tools",
			fullName: "../../x",
			wantErr:  true,
		},
		{
			name:     "traversal in category",
			category: "..",
			fullName: "octo/hello",
			wantErr:  true,
		},
		{
			name:     "separator in category",
			category: "a/b",
			fullName: "octo/hello",
			wantErr:  true,
		},
		{
			name:     "backslash in category",
			category: `a\b`,
			fullName: "octo/hello",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Resolve(tt.category, tt.fullName)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathPolicy_Resolve_NeverEscapesRoot(t *testing.T) {
	p, err := NewPathPolicy("/archives")
	require.NoError(t, err)

	got, err := p.Resolve("tools", "octo/hello")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "/archives"+string(filepath.Separator)))
	assert.NotContains(t, got, "..")

	// Exactly root/category/name: two segments below the root.
	rel, err := filepath.Rel("/archives", got)
	require.NoError(t, err)
	assert.Len(t, strings.Split(rel, string(filepath.Separator)), 2)
}

func TestParseFullName(t *testing.T) {
	owner, name, err := ParseFullName("octo/hello")
	require.NoError(t, err)
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "hello", name)

	for _, bad := range []string{"", "octo", "/hello", "octo/", "a/b/c"} {
		_, _, err := ParseFullName(bad)
		require.Error(t, err, "expected error for %q", bad)
	}
}
