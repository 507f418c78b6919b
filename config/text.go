package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/signalsfoundry/psim/types"
)

// Parse reads the line-oriented text format:
//
//	# comment
//	truth.dt.ns 5
//	truth.gain = 0.25
//	truth.bias 0.1 0.2 0.3
//	truth.name "leader"
//	truth.dcm 1 0 0; 0 1 0; 0 0 1
//
// A lone token is an Integer when it parses as one, a Boolean for true or
// false, a String when double quoted and a Real otherwise. Two to four tokens
// form a Vector2, Vector3 or Vector4. Rows separated by ';' form a Matrix.
// source names the input in error messages.
func Parse(source string, r io.Reader) (*Configuration, error) {
	b := newBuilder()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, rest := text, ""
		if i := strings.IndexAny(text, " \t="); i >= 0 {
			key, rest = text[:i], strings.TrimSpace(text[i:])
		}
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "="))
		where := fmt.Sprintf("%s:%d", source, line)
		if !validKey(key) {
			return nil, fmt.Errorf("%w: %s: invalid key %q", ErrConfig, where, key)
		}
		v, err := parseTextValue(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %q: %v", ErrConfig, where, key, err)
		}
		if err := b.set(where, key, v); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, source, err)
	}
	return b.build(), nil
}

func parseTextValue(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("missing value")
	}
	if strings.HasPrefix(s, `"`) {
		return strconv.Unquote(s)
	}
	if strings.Contains(s, ";") {
		var rows [][]types.Real
		for _, row := range strings.Split(s, ";") {
			r, err := parseReals(strings.Fields(row))
			if err != nil {
				return nil, err
			}
			rows = append(rows, r)
		}
		return rows, nil
	}
	tokens := strings.Fields(s)
	switch {
	case len(tokens) == 1:
		return parseScalar(tokens[0])
	case len(tokens) > 4:
		return nil, fmt.Errorf("too many values: %d (max 4)", len(tokens))
	}
	return parseReals(tokens)
}

func parseScalar(tok string) (any, error) {
	switch tok {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return types.Integer(i), nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", tok)
	}
	return types.Real(f), nil
}

func parseReals(tokens []string) ([]types.Real, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty row")
	}
	out := make([]types.Real, len(tokens))
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", tok)
		}
		out[i] = f
	}
	return out, nil
}
