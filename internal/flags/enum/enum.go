// Package enum provides a pflag value restricted to a fixed set of options.
package enum

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

type value struct {
	options []string
	current string
}

func (v *value) String() string {
	return v.current
}

func (v *value) Set(s string) error {
	if !slices.Contains(v.options, s) {
		return fmt.Errorf("must be one of %s", strings.Join(v.options, ", "))
	}
	v.current = s
	return nil
}

func (v *value) Type() string {
	return "enum"
}

// Var defines an enum flag. The first option is the default.
func Var(flags *pflag.FlagSet, name string, options []string, usage string) {
	VarP(flags, name, "", options, usage)
}

// VarP is like Var, but accepts a shorthand letter.
func VarP(flags *pflag.FlagSet, name, shorthand string, options []string, usage string) {
	v := &value{options: options, current: options[0]}
	flags.VarP(v, name, shorthand, fmt.Sprintf("%s (must be one of [%s])", usage, strings.Join(options, " ")))
}

// Get returns the value of the enum flag name.
func Get(flags *pflag.FlagSet, name string) (string, error) {
	flag := flags.Lookup(name)
	if flag == nil {
		return "", fmt.Errorf("flag %q not defined", name)
	}
	v, ok := flag.Value.(*value)
	if !ok {
		return "", fmt.Errorf("flag %q is not an enum flag", name)
	}
	return v.current, nil
}
