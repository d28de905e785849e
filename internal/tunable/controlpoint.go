package tunable

import "strings"

// Kind tells how a control point is written.
type Kind int

const (
	// FilesystemNode is a sysfs attribute written directly.
	FilesystemNode Kind = iota
	// ExternalCommand is a generic system utility.
	ExternalCommand
	// VendorScript is a helper script from the vendor directory.
	VendorScript
)

func (k Kind) String() string {
	switch k {
	case FilesystemNode:
		return "filesystem"
	case ExternalCommand:
		return "command"
	case VendorScript:
		return "script"
	default:
		return "unknown"
	}
}

// ValuePlaceholder is substituted with the backend-native value in Args.
const ValuePlaceholder = "{value}"

// ControlPoint is one concrete way to write a tunable.
type ControlPoint struct {
	Kind Kind

	// Path is the sysfs attribute for FilesystemNode and the script path for
	// VendorScript. Scripts still run through Executable and Args.
	Path string
	// Scale is the raw full-scale value of a FilesystemNode: 255 for PWM,
	// max_brightness for backlights, microwatts per watt for powercap, 1 when
	// the node takes the value as is.
	Scale int
	// Choices lists the accepted strings of an enumerated FilesystemNode.
	Choices []string

	// Executable is the program run for ExternalCommand.
	Executable string
	// Args is the argument template, containing ValuePlaceholder.
	Args []string
	// Env holds extra environment entries, e.g. DISPLAY for X11 tools.
	Env []string

	// Privileged is set when writing requires elevation.
	Privileged bool
}

// Describe returns a short human readable form.
func (c ControlPoint) Describe() string {
	switch c.Kind {
	case FilesystemNode:
		return c.Path
	default:
		return c.Executable + " " + strings.Join(c.Args, " ")
	}
}

// Expand returns Args with every placeholder replaced by value.
func (c ControlPoint) Expand(value string) []string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = strings.ReplaceAll(a, ValuePlaceholder, value)
	}

	return args
}

// Equal compares two control points field by field.
func (c ControlPoint) Equal(o ControlPoint) bool {
	return c.Kind == o.Kind &&
		c.Path == o.Path &&
		c.Scale == o.Scale &&
		c.Executable == o.Executable &&
		c.Privileged == o.Privileged &&
		equalStrings(c.Choices, o.Choices) &&
		equalStrings(c.Args, o.Args) &&
		equalStrings(c.Env, o.Env)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
