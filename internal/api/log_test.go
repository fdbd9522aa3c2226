package api

import (
	"testing"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "WatchStarted",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Watch started" id=watch_3 interval_ms=10000 distance_filter=0 owner=a-very-long-client-identifier`,
			want:  "06:50:46 Watch started (distance_filter=0, id=watch_3, interval_ms=10000)",
		},
		{
			name:  "NoParams",
			input: `time=2026-01-18T07:00:00.000+01:00 level=INFO msg="Location manager initialized"`,
			want:  "07:00:00 Location manager initialized",
		},
		{
			name:  "Unparsable",
			input: "plain text",
			want:  "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLogLine(tt.input); got != tt.want {
				t.Errorf("formatLogLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
