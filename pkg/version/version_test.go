package version

import (
	"testing"
)

func TestVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantSet bool
	}{
		{
			name:    "VersionConstant",
			version: Version,
			wantSet: true,
		},
		{
			name:    "CommitConstant",
			version: Commit,
			wantSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.version != "") != tt.wantSet {
				t.Errorf("Version = %q, wantSet %v", tt.version, tt.wantSet)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got, want := String(), Version+" ("+Commit+")"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
