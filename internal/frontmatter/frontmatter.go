// Package frontmatter splits `---` delimited YAML metadata from article
// bodies and decodes it into typed values.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a front
// matter delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter opening delimiter found but closing delimiter is missing")

var delimiter = []byte("---")

// Split separates YAML front matter from the body. If the document does not
// start with a `---` line, had is false and body is the full input. Both LF
// and CRLF newlines are accepted.
func Split(content []byte) (meta []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)

	open := append(append([]byte{}, delimiter...), nl...)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	rest := content[len(open):]

	// Empty front matter: the closing delimiter immediately follows.
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}

	closeSeq := append(append(append([]byte{}, nl...), delimiter...), nl...)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		// Closing delimiter at EOF without trailing newline.
		tail := append(append([]byte{}, nl...), delimiter...)
		if bytes.HasSuffix(rest, tail) {
			return rest[:len(rest)-len(tail)+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, nil
}

// Decode unmarshals raw front matter (without delimiters) into out.
func Decode(meta []byte, out any) error {
	if len(meta) == 0 {
		return nil
	}
	return yaml.Unmarshal(meta, out)
}

// Fields parses raw front matter into a generic map. A nil result is
// normalized to an empty map.
func Fields(meta []byte) (map[string]any, error) {
	if len(meta) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(meta, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectNewline(content []byte) []byte {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return []byte("\r\n")
	}
	return []byte("\n")
}
