package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Getting Started", "getting-started"},
		{"API & Webhooks", "api-webhooks"},
		{"  Spaced   Out  ", "spaced-out"},
		{"v2.0 Migration", "v2-0-migration"},
		{"UPPER", "upper"},
		{"---", ""},
		{"", ""},
		{"Ünïcödé Päge", "n-c-d-p-ge"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.title), "title %q", tt.title)
	}
}
