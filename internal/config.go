package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=13337"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MaxLineLength   int           `env:"MAX_LINE_LENGTH,default=4096"`
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Words splits the CENSORED_WORDS list, dropping blanks so a trailing
// comma does not register an empty pattern.
func (c Config) Words() []string {
	parts := strings.Split(c.CensoredWords, ",")
	trimmed := lo.Map(parts, func(w string, _ int) string { return strings.TrimSpace(w) })
	return lo.Filter(trimmed, func(w string, _ int) bool { return w != "" })
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
