package testcase

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// DigestDomain is hashed ahead of the content so a test-case digest
// never equals a hash of the same bytes taken for another purpose.
const DigestDomain = "nnvts/testcase/v1"

// Digest returns the content identity of f as a hex SHA-256.
//
// The hashed form is canonical JSON: object keys sorted, strings NFC
// normalized, and absent, null and empty-list fields dropped. A YAML file
// and a CUE file describing the same test case have the same digest.
func Digest(f *File) (string, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DigestDomain))
	h.Write([]byte{0x00})
	h.Write(buf.Bytes())
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		buf.WriteByte('{')
		first := true
		for _, k := range slices.Sorted(maps.Keys(val)) {
			if isEmptyValue(val[k]) {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case string:
		return writeCanonicalString(buf, val)
	case json.Number:
		buf.WriteString(val.String())
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case []any:
		return len(val) == 0
	}
	return false
}

// writeCanonicalString writes s NFC normalized, without HTML escaping.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
