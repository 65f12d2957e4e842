package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_Words_Splits_And_Drops_Blanks(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "Empty list", raw: "", expected: []string{}},
		{name: "Single word", raw: "badger", expected: []string{"badger"}},
		{name: "Spacing and trailing comma", raw: " badger, snake ,", expected: []string{"badger", "snake"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{CensoredWords: tt.raw}
			req.Equal(tt.expected, cfg.Words())
		})
	}
}

func TestConfig_ListenAddress(t *testing.T) {
	req := require.New(t)
	cfg := Config{Host: "0.0.0.0", Port: 13337}

	req.Equal("0.0.0.0:13337", cfg.ListenAddress())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("*")
	req.NoError(err)
	req.Equal('*', r)

	_, err = CharacterRune("")
	req.Error(err)

	_, err = CharacterRune("**")
	req.Error(err)
}
