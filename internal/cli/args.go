package cli

import (
	"regexp"
	"slices"
	"strings"
)

// listFlags take every value that follows them on the command line, up to
// the next flag or "--". pflag binds one token per occurrence, so they are
// rewritten into one occurrence per value before parsing.
var listFlags = []string{"--args", "--flags"}

// negativeNumber matches values such as "-1" or "-2.5", which are program
// arguments rather than flags.
var negativeNumber = regexp.MustCompile(`^-\d+$|^-\d*\.\d+$`)

// expandListFlags rewrites "--args 5 6" into "--args=5 --args=6". Tokens
// after a bare "--" are never touched. A list flag with no value is left
// alone so the parser reports it.
func expandListFlags(argv []string) []string {
	out := make([]string, 0, len(argv))
	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if tok == "--" {
			return append(out, argv[i:]...)
		}
		if !slices.Contains(listFlags, tok) {
			out = append(out, tok)
			continue
		}

		j := i + 1
		for j < len(argv) && isListValue(argv[j]) {
			out = append(out, tok+"="+argv[j])
			j++
		}
		if j == i+1 {
			out = append(out, tok)
		}
		i = j - 1
	}
	return out
}

func isListValue(tok string) bool {
	if tok == "--" {
		return false
	}
	if strings.HasPrefix(tok, "-") && tok != "-" {
		return negativeNumber.MatchString(tok)
	}
	return true
}
