package monitor

import (
	"errors"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		data Data
		want Fingerprints
	}{
		{
			name: "windows device name",
			data: Data{Name: `\\.\DISPLAY2 (1920×1080)`, Width: 1920, Height: 1080},
			want: Fingerprints{Primary: "DISPLAY2_1920x1080", Secondary: "1920x1080"},
		},
		{
			name: "x11 device name",
			data: Data{Name: "DISPLAY1 (1080×1920)", Width: 1080, Height: 1920},
			want: Fingerprints{Primary: "DISPLAY1_1080x1920", Secondary: "1080x1920"},
		},
		{
			name: "no connector falls back to resolution",
			data: Data{Name: "Monitor Primary (2560×1440)", Width: 2560, Height: 1440},
			want: Fingerprints{Primary: "2560x1440", Secondary: "2560x1440"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.data)
			if err != nil {
				t.Fatalf("Generate() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate() = %+v, want %+v", got, tt.want)
			}
			again, _ := Generate(tt.data)
			if again != got {
				t.Errorf("Generate() not deterministic: %+v vs %+v", again, got)
			}
		})
	}
}

func TestGenerateRejectsZeroDimensions(t *testing.T) {
	for _, d := range []Data{{Width: 0, Height: 1080}, {Width: 1920, Height: 0}} {
		if _, err := Generate(d); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("Generate(%dx%d) error = %v, want ErrInvalidDimensions", d.Width, d.Height, err)
		}
	}
}

func TestMatch(t *testing.T) {
	d1 := Fingerprints{Primary: "DISPLAY1_1920x1080", Secondary: "1920x1080"}
	d2 := Fingerprints{Primary: "DISPLAY2_1920x1080", Secondary: "1920x1080"}
	bare := Fingerprints{Primary: "1920x1080", Secondary: "1920x1080"}
	other := Fingerprints{Primary: "DISPLAY1_2560x1440", Secondary: "2560x1440"}

	tests := []struct {
		name       string
		a, b       Fingerprints
		strict     bool
		wantOK     bool
		wantReason MatchReason
	}{
		{"identical", d1, d1, false, true, ReasonConnectorAndResolution},
		{"identical strict", d1, d1, true, true, ReasonConnectorAndResolution},
		{"different connector", d1, d2, false, true, ReasonResolution},
		{"different connector strict", d1, d2, true, false, ReasonPrimaryMismatchStrict},
		{"absent connector", d1, bare, false, true, ReasonResolution},
		{"absent connector strict", d1, bare, true, false, ReasonPrimaryMismatchStrict},
		{"different resolution", d1, other, false, false, ReasonNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Match(tt.a, tt.b, tt.strict)
			if ok != tt.wantOK || reason != tt.wantReason {
				t.Errorf("Match() = (%v, %q), want (%v, %q)", ok, reason, tt.wantOK, tt.wantReason)
			}
		})
	}
}
