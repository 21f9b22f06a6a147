/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ByteSize is a size in bytes (e.g. a body size limit).
// It's parsed from both integers and human-readable strings ("10M", "512K", "1Mi").
type ByteSize uint64

// ParseByteSize parses a human-readable or a plain integer size.
func ParseByteSize(s string) (ByteSize, error) {
	v := strings.TrimSpace(s)
	if num, err := strconv.ParseInt(v, 10, 64); err == nil {
		return byteSizeFromInt(num)
	}
	// bytefmt treats "M" and "MB" as powers of two, so "Mi" is the same unit.
	if u := strings.ToUpper(v); len(u) > 1 && u[len(u)-1] == 'I' {
		v = v[:len(v)-1]
	}
	num, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(num), nil
}

func byteSizeFromInt(num int64) (ByteSize, error) {
	if num < 0 {
		return 0, fmt.Errorf("negative byte size is not allowed: %d", num)
	}
	return ByteSize(num), nil
}

// byteSizeFromValue converts a raw configuration value (string, any number or ByteSize).
func byteSizeFromValue(val interface{}) (ByteSize, error) {
	switch v := val.(type) {
	case ByteSize:
		return v, nil
	case string:
		return ParseByteSize(v)
	case uint, uint8, uint16, uint32, uint64:
		return ByteSize(cast.ToUint64(v)), nil
	case int, int8, int16, int32, int64, float32, float64:
		return byteSizeFromInt(cast.ToInt64(v))
	}
	return 0, fmt.Errorf("unsupported type for byte size: %T", val)
}

// ByteSizeDecodeHook converts strings and numbers into ByteSize fields in UnmarshalKey.
func ByteSizeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}
		return byteSizeFromValue(data)
	}
}

// String returns a human-readable representation (e.g. "10M").
func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	bs, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = bs
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Both numbers and strings are accepted.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	return b.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("byte size should be a scalar, got %v", node.Tag)
	}
	return b.UnmarshalText([]byte(node.Value))
}

// MarshalJSON implements json.Marshaler.
func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}
