package timeparsing

import (
	"testing"
	"time"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "+6h", want: time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)},
		{input: "+1d", want: time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)},
		{input: "+2w", want: time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC)},
		{input: "3m", want: time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)},
		{input: "1y", want: time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{input: "-1d", want: time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)},
		{input: "-6h", want: time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)},
		{input: "+0d", want: now},
		{input: "", wantErr: true},
		{input: "+d", wantErr: true},
		{input: "+6x", wantErr: true},
		{input: "6 h", wantErr: true},
		{input: "++6h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCompactDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCompactDuration_MonthBoundary(t *testing.T) {
	// Jan 31 + 1 month normalizes the same way time.AddDate does.
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	got, err := ParseCompactDuration("+1m", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := now.AddDate(0, 1, 0); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseCompactDuration_PreservesTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, loc)
	got, err := ParseCompactDuration("+1d", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
}

func TestParseAbsolute(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "2026-03-16", want: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{input: "2026-03-16 14:30", want: time.Date(2026, 3, 16, 14, 30, 0, 0, time.UTC)},
		{input: "2026-03-16T14:30", want: time.Date(2026, 3, 16, 14, 30, 0, 0, time.UTC)},
		{input: "2026-03-16T14:30:00Z", want: time.Date(2026, 3, 16, 14, 30, 0, 0, time.UTC)},
		{input: "16/03/2026", wantErr: true},
		{input: "2026-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAbsolute(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAbsolute(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseAbsolute(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNaturalLanguage(t *testing.T) {
	// Wednesday, January 15, 2025, 10:00
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		wantDay int
		wantErr bool
	}{
		{input: "tomorrow", wantDay: 16},
		{input: "yesterday", wantDay: 14},
		{input: "next monday", wantDay: 20},
		{input: "not a date", wantErr: true},
		{input: "ship it tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNaturalLanguage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Year() != 2025 || got.Month() != time.January || got.Day() != tt.wantDay {
				t.Errorf("ParseNaturalLanguage(%q) = %v, want 2025-01-%02d", tt.input, got, tt.wantDay)
			}
		})
	}
}

func TestParseRelativeTime(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "+2w", want: time.Date(2025, 1, 29, 10, 0, 0, 0, time.UTC)},
		{input: "  -1d ", want: time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)},
		{input: "2025-02-01", want: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{input: "", wantErr: true},
		{input: "whenever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRelativeTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseRelativeTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	// Natural language falls through the first two layers.
	got, err := ParseRelativeTime("Tomorrow", now)
	if err != nil {
		t.Fatalf("ParseRelativeTime(Tomorrow) error = %v", err)
	}
	if got.Day() != 16 {
		t.Errorf("ParseRelativeTime(Tomorrow) day = %d, want 16", got.Day())
	}
}
