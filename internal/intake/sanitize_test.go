package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"train.csv", "train.csv"},
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\data\trips 2016.csv`, "C_data_trips_2016.csv"},
		{"i contain cool \u00fcml\u00e4uts.txt", "i_contain_cool_umlauts.txt"},
		{"  tabs\tand\nnewlines  ", "tabs_and_newlines"},
		{"weird$#@!chars.csv", "weirdchars.csv"},
		{"._hidden_.", "hidden"},
		{"con.txt", "con.txt"},
		{"NUL", "NUL"},
		{"console.txt", "console.txt"},
		{"\u6771\u4eac.csv", "csv"},
		{"\u6771\u4eac", ""},
		{"...", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}
