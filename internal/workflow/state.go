package workflow

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrStateCorrupt is returned when an encoded workflow state cannot be
// decoded or its checksum does not match.
var ErrStateCorrupt = errors.New("workflow state corrupt")

// Data is the cross-step form data of a workflow. Values submitted through a
// form are strings; values survive a round trip through EncodeState with
// JSON semantics (numbers come back as float64).
type Data map[string]any

// Clone returns a shallow copy of d.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// String returns the value for key formatted as a string, or "" when absent.
func (d Data) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Bool reports whether key holds true or a truthy string.
func (d Data) Bool(key string) bool {
	switch t := d[key].(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	default:
		return false
	}
}

// Submission is a flat string-keyed form submission.
type Submission map[string]string

// EncodeState serialises d for the FieldState hidden field. The format is
// base64url(JSON) "." hex(xxhash64(JSON)); the checksum detects truncated or
// hand-edited round trips.
func EncodeState(d Data) (string, error) {
	if d == nil {
		d = Data{}
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encoding workflow state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw) + "." + checksum(raw), nil
}

// DecodeState reverses EncodeState. An empty string decodes to empty Data.
func DecodeState(s string) (Data, error) {
	if s == "" {
		return Data{}, nil
	}
	payload, sum, ok := strings.Cut(s, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing checksum", ErrStateCorrupt)
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}
	if checksum(raw) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrStateCorrupt)
	}

	d := Data{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}
	if d == nil {
		d = Data{}
	}
	return d, nil
}

func checksum(raw []byte) string {
	return strconv.FormatUint(xxhash.Sum64(raw), 16)
}
