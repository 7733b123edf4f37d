package tkvseg

import (
	"errors"
	"fmt"
)

// DecodeError is returned when a DICOM or label file cannot be read as an
// image. Index building excludes such files and logs them.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or inconsistent setting: a split key
// that is absent, a required config field, an unusable strategy name. These
// abort a run at startup.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Msg
	}
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Msg)
}

// MissingMetadataError is returned for a study whose reference slice (index
// 0) has no attributes, so that its scale factor cannot be computed.
type MissingMetadataError struct {
	Study string
	Field string
}

func (e *MissingMetadataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("study %s: missing reference slice attributes", e.Study)
	}
	return fmt.Sprintf("study %s: missing reference slice attribute %q", e.Study, e.Field)
}

// ShapeMismatchError indicates that a transform or a stacking step produced
// arrays whose dimensions disagree. It signals a misconfigured pipeline.
type ShapeMismatchError struct {
	Op   string
	Want string
	Got  string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: want %s, got %s", e.Op, e.Want, e.Got)
}

// NewConfigurationError is a small convenience for the common case.
func NewConfigurationError(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsDecodeError reports whether err wraps a DecodeError.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsMissingMetadataError reports whether err wraps a MissingMetadataError.
func IsMissingMetadataError(err error) bool {
	var target *MissingMetadataError
	return errors.As(err, &target)
}

// IsShapeMismatchError reports whether err wraps a ShapeMismatchError.
func IsShapeMismatchError(err error) bool {
	var target *ShapeMismatchError
	return errors.As(err, &target)
}
