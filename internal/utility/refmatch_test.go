package utility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindMatchingURL(t *testing.T) {
	uploaded := map[string]string{"figure1.png": "X"}

	tests := []struct {
		name     string
		ref      string
		uploaded map[string]string
		want     string
		found    bool
	}{
		{"exact", "figure1.png", uploaded, "X", true},
		{"case insensitive", "Figure1.PNG", uploaded, "X", true},
		{"extension insensitive", "figure1", uploaded, "X", true},
		{"no match", "figure2", uploaded, "", false},
		{"prefix needs dot boundary", "figure", uploaded, "", false},
		{"ref with extension does not prefix match", "figure1.jpg", uploaded, "", false},
		{"mixed case upload without extension in ref", "diag-2", map[string]string{"Diag-2.png": "https://cdn/x"}, "https://cdn/x", true},
		{"empty ref", "", uploaded, "", false},
		{"empty map", "figure1", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindMatchingURL(tt.ref, tt.uploaded)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindMatchingURLPriority(t *testing.T) {
	uploaded := map[string]string{
		"Chart.png":  "case",
		"chart":      "exact",
		"chart.jpeg": "prefix",
	}
	got, ok := FindMatchingURL("chart", uploaded)
	assert.True(t, ok)
	assert.Equal(t, "exact", got)

	got, ok = FindMatchingURL("CHART.PNG", uploaded)
	assert.True(t, ok)
	assert.Equal(t, "case", got)
}

func TestFindMatchingURLDeterministicTies(t *testing.T) {
	uploaded := map[string]string{
		"map.webp": "webp",
		"Map.png":  "png",
		"map.jpg":  "jpg",
	}
	for i := 0; i < 20; i++ {
		got, ok := FindMatchingURL("map", uploaded)
		assert.True(t, ok)
		assert.Equal(t, "png", got)
	}
}
