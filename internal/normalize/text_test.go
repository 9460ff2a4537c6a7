package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "aaaaaa", StripAccents("àáâãäå"))
	assert.Equal(t, "Beyonce", StripAccents("Beyoncé"))
	assert.Equal(t, "Sigur Ros", StripAccents("Sigur Rós"))
	assert.Equal(t, "Motorhead", StripAccents("Motörhead"))
	// Unmapped characters pass through
	assert.Equal(t, "Ωmega 東京", StripAccents("Ωmega 東京"))
}

func TestSearchKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Beyoncé", "beyonce"},
		{"ÀLBUM", "album"},
		{"Ÿ", "y"},
		{"Ñandú", "nandu"},
		{"already plain", "already plain"},
		{"", ""},
		{"\u212B", "a"}, // angstrom sign folds to å
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchKey(tt.in))
		})
	}
}

func TestSearchKey_Idempotent(t *testing.T) {
	inputs := []string{
		"Beyoncé", "MOTÖRHEAD", "Sigur Rós", "Ðe Ð", "ÿŸýŽž", "Straße",
		"Ωmega 東京", "\u212Bngström", "Mixed CASE àccents",
	}

	for _, in := range inputs {
		once := SearchKey(in)
		assert.Equal(t, once, SearchKey(once), "input %q", in)
	}
}
