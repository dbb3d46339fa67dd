// Package loader reads curriculum documents from JSON or YAML and validates
// them against the model's rules.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stemsi/curriculum-backend/internal/model"
	"github.com/stemsi/curriculum-backend/internal/validator"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a curriculum document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown document format")

// ParseFormat maps a user supplied format name to a Format. The empty
// string means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// DecodeError is returned when a document cannot be mapped onto the model:
// bad syntax, or a field holding the wrong scalar/sequence shape.
type DecodeError struct {
	Format Format
	Field  string
	Msg    string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode %s: %s: %s", e.Format, e.Field, e.Msg)
	}
	return fmt.Sprintf("decode %s: %s", e.Format, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Fields returns the error in the same field -> message form as validation
// errors.
func (e *DecodeError) Fields() map[string]string {
	key := e.Field
	if key == "" {
		key = "document"
	}
	return map[string]string{key: e.Msg}
}

// Decode reads one curriculum document and validates it.
func Decode(r io.Reader, f Format) (*model.Curriculum, error) {
	cur, err := decode(r, f)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte, f Format) (*model.Curriculum, error) {
	return Decode(bytes.NewReader(data), f)
}

// LoadFile reads and validates the curriculum document at path.
func LoadFile(path string) (*model.Curriculum, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open curriculum: %w", err)
	}
	defer file.Close()

	return Decode(file, f)
}

func decode(r io.Reader, f Format) (*model.Curriculum, error) {
	var cur model.Curriculum

	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		if err := dec.Decode(&cur); err != nil {
			return nil, jsonDecodeError(err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, &DecodeError{Format: f, Msg: "unexpected data after the document"}
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&cur); err != nil {
			return nil, yamlDecodeError(err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	return &cur, nil
}

func jsonDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &DecodeError{
			Format: FormatJSON,
			Field:  typeErr.Field,
			Msg:    fmt.Sprintf("cannot use %s as %s", typeErr.Value, describeType(typeErr.Type.String())),
			Err:    err,
		}
	}
	if errors.Is(err, io.EOF) {
		return &DecodeError{Format: FormatJSON, Msg: "empty document", Err: err}
	}
	return &DecodeError{Format: FormatJSON, Msg: err.Error(), Err: err}
}

func yamlDecodeError(err error) error {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return &DecodeError{
			Format: FormatYAML,
			Msg:    strings.Join(typeErr.Errors, "; "),
			Err:    err,
		}
	}
	if errors.Is(err, io.EOF) {
		return &DecodeError{Format: FormatYAML, Msg: "empty document", Err: err}
	}
	return &DecodeError{Format: FormatYAML, Msg: err.Error(), Err: err}
}

// describeType turns Go type names from decoder errors into the names used
// by the document format.
func describeType(t string) string {
	t = strings.TrimPrefix(t, "model.")
	switch {
	case strings.HasPrefix(t, "[]"):
		return "list of " + describeType(t[2:])
	case t == "float64":
		return "number"
	case t == "Availability", t == "Frequency":
		return "string"
	case strings.HasPrefix(t, "model.OneOrMany"), strings.HasPrefix(t, "OneOrMany"):
		return "value or list"
	case strings.Contains(t, "Module"), strings.Contains(t, "Course"), strings.Contains(t, "Curriculum"):
		return "object"
	default:
		return t
	}
}
