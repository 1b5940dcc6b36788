package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamType is a small enum for parameter types used in metadata.
type ParamType string

const (
	ParamTypeInt    ParamType = "int"
	ParamTypeFloat  ParamType = "float"
	ParamTypeBool   ParamType = "bool"
	ParamTypeString ParamType = "string"
)

// ValidationRule is a machine-friendly representation of the constraints
// on one --flag of the matcher's option record, used both to validate
// input before constructing a pmtype.Option and to render --help.
type ValidationRule struct {
	Type     ParamType
	Required bool
	Min      *float64
	Max      *float64
	Default  string
	Hint     string
}

// OptionFieldSpec documents one flag of the pmstereo option record: its
// flag name, type, bounds, and default, mirroring the teacher's
// CommandSpec/ValidationRule metadata pattern but describing
// pmtype.Option fields instead of image-editing commands.
type OptionFieldSpec struct {
	Flag        string
	Rule        ValidationRule
	Description string
}

func floatPtr(f float64) *float64 { return &f }

// OptionFields enumerates every flag that configures a pmtype.Option,
// in the order the CLI help text presents them.
var OptionFields = []OptionFieldSpec{
	{Flag: "patch", Rule: ValidationRule{Type: ParamTypeInt, Default: "35", Min: floatPtr(1)}, Description: "support window side length (odd)"},
	{Flag: "min-disp", Rule: ValidationRule{Type: ParamTypeInt, Default: "0"}, Description: "minimum disparity"},
	{Flag: "max-disp", Rule: ValidationRule{Type: ParamTypeInt, Default: "64"}, Description: "maximum disparity"},
	{Flag: "gamma", Rule: ValidationRule{Type: ParamTypeFloat, Default: "10", Min: floatPtr(0)}, Description: "bilateral weight color bandwidth"},
	{Flag: "alpha", Rule: ValidationRule{Type: ParamTypeFloat, Default: "0.9", Min: floatPtr(0), Max: floatPtr(1)}, Description: "color/gradient cost blend"},
	{Flag: "tau-col", Rule: ValidationRule{Type: ParamTypeFloat, Default: "10", Min: floatPtr(0)}, Description: "color truncation threshold"},
	{Flag: "tau-grad", Rule: ValidationRule{Type: ParamTypeFloat, Default: "2", Min: floatPtr(0)}, Description: "gradient truncation threshold"},
	{Flag: "iters", Rule: ValidationRule{Type: ParamTypeInt, Default: "3", Min: floatPtr(0)}, Description: "propagation iterations"},
	{Flag: "lr-check", Rule: ValidationRule{Type: ParamTypeBool, Default: "false"}, Description: "enable left/right consistency check"},
	{Flag: "lr-thresh", Rule: ValidationRule{Type: ParamTypeFloat, Default: "0", Min: floatPtr(0)}, Description: "LR-check mismatch threshold"},
	{Flag: "fill-holes", Rule: ValidationRule{Type: ParamTypeBool, Default: "false"}, Description: "fill occluded pixels after LR-check"},
	{Flag: "force-fpw", Rule: ValidationRule{Type: ParamTypeBool, Default: "false"}, Description: "restrict planes to frontal-parallel windows"},
	{Flag: "integer-disp", Rule: ValidationRule{Type: ParamTypeBool, Default: "false"}, Description: "round disparities to integers"},
	{Flag: "seed", Rule: ValidationRule{Type: ParamTypeInt, Default: "time"}, Description: "PRNG seed (unset: PMSTEREO_SEED, else the current time)"},
}

func fieldByFlag(flag string) (OptionFieldSpec, bool) {
	for _, f := range OptionFields {
		if f.Flag == flag {
			return f, true
		}
	}
	return OptionFieldSpec{}, false
}

// parseBoolLikeToString accepts common truthy/falsy forms and returns "true"/"false" string.
func parseBoolLikeToString(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return "true", nil
	case "0", "f", "false", "n", "no", "off":
		return "false", nil
	default:
		return "", fmt.Errorf("invalid boolean: %q", s)
	}
}

// ValidateFlagValue checks a raw flag value against its OptionFieldSpec's
// bounds and returns the canonical string form to parse downstream.
func ValidateFlagValue(flag, raw string) (string, error) {
	f, ok := fieldByFlag(flag)
	if !ok {
		return "", fmt.Errorf("unknown flag: --%s", flag)
	}
	switch f.Rule.Type {
	case ParamTypeInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", fmt.Errorf("--%s: expected integer, got %q", flag, raw)
		}
		if f.Rule.Min != nil && float64(v) < *f.Rule.Min {
			return "", fmt.Errorf("--%s: %d below minimum %v", flag, v, *f.Rule.Min)
		}
		if f.Rule.Max != nil && float64(v) > *f.Rule.Max {
			return "", fmt.Errorf("--%s: %d above maximum %v", flag, v, *f.Rule.Max)
		}
		return strconv.FormatInt(v, 10), nil
	case ParamTypeFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", fmt.Errorf("--%s: expected float, got %q", flag, raw)
		}
		if f.Rule.Min != nil && v < *f.Rule.Min {
			return "", fmt.Errorf("--%s: %v below minimum %v", flag, v, *f.Rule.Min)
		}
		if f.Rule.Max != nil && v > *f.Rule.Max {
			return "", fmt.Errorf("--%s: %v above maximum %v", flag, v, *f.Rule.Max)
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case ParamTypeBool:
		return parseBoolLikeToString(raw)
	default:
		return raw, nil
	}
}

// HelpText renders the --flag reference for the option record, in the
// teacher's terse tooltip style (one line per parameter).
func HelpText() string {
	var sb strings.Builder
	for _, f := range OptionFields {
		sb.WriteString(fmt.Sprintf("  --%-14s %-6s default %-6s  %s\n", f.Flag, f.Rule.Type, f.Rule.Default, f.Description))
	}
	return sb.String()
}
