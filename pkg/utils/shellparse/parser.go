// Package shellparse splits user-supplied option strings into arguments and
// quotes arguments back into command lines for sh and cmd.exe scripts.
package shellparse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnclosedQuote is returned when a quoted string is not properly closed
	ErrUnclosedQuote = errors.New("unclosed quote in command string")

	// ErrTrailingEscape is returned when a backslash appears at the end of input
	ErrTrailingEscape = errors.New("trailing escape character at end of command")
)

// Split breaks input into words using POSIX shell rules: whitespace
// separates words, single quotes are literal, double quotes allow \" \\ \$
// and \` escapes, and a bare backslash escapes the next character.
//
//	Split(`-DFOO=1 -DNAME="my app"`) => ["-DFOO=1", "-DNAME=my app"]
func Split(input string) ([]string, error) {
	words := []string{}
	var word strings.Builder
	inWord := false
	var quote rune

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch {
		case quote == '\'':
			if ch == '\'' {
				quote = 0
			} else {
				word.WriteRune(ch)
			}

		case ch == '\\':
			if i+1 >= len(runes) {
				return nil, ErrTrailingEscape
			}
			i++
			next := runes[i]
			if quote == '"' && !strings.ContainsRune("\"\\$`", next) {
				word.WriteRune('\\')
			}
			word.WriteRune(next)
			inWord = true

		case quote == '"':
			if ch == '"' {
				quote = 0
			} else {
				word.WriteRune(ch)
			}

		case ch == '\'' || ch == '"':
			quote = ch
			inWord = true

		case unicode.IsSpace(ch):
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}

		default:
			word.WriteRune(ch)
			inWord = true
		}
	}

	if quote != 0 {
		kind := "single"
		if quote == '"' {
			kind = "double"
		}
		return nil, fmt.Errorf("%w: unclosed %s quote", ErrUnclosedQuote, kind)
	}
	if inWord {
		words = append(words, word.String())
	}
	return words, nil
}

// MustSplit is like Split but panics on error.
func MustSplit(input string) []string {
	result, err := Split(input)
	if err != nil {
		panic(fmt.Sprintf("shellparse.MustSplit: %v", err))
	}
	return result
}

// Dialect selects the quoting rules of a script interpreter.
type Dialect int

const (
	// POSIX quotes for /bin/sh.
	POSIX Dialect = iota
	// Cmd quotes for cmd.exe batch files.
	Cmd
)

// Join quotes each argument for d and joins them with spaces.
func Join(d Dialect, args ...string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = Quote(d, arg)
	}
	return strings.Join(parts, " ")
}

// Quote returns arg unchanged when it needs no quoting in dialect d.
func Quote(d Dialect, arg string) string {
	if d == Cmd {
		return quoteCmd(arg)
	}
	return quotePOSIX(arg)
}

func quotePOSIX(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsFunc(arg, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`'"\$`+"`"+`;&|<>()*?[]#~!{}`, r)
	}) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func quoteCmd(arg string) string {
	if arg == "" {
		return `""`
	}
	// %% is a literal percent sign inside a batch file.
	arg = strings.ReplaceAll(arg, "%", "%%")
	if !strings.ContainsFunc(arg, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`"&|<>^`, r)
	}) {
		return arg
	}
	return `"` + strings.ReplaceAll(arg, `"`, `""`) + `"`
}
