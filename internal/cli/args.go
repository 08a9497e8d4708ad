// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits raw arguments into flags and positionals.
// It handles:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: --flag (only names declared as boolean)
//   - "--": everything after it is positional
//
// Declaring boolean flags up front keeps "--raw hello" from eating "hello"
// as the value of --raw.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	order      []string
	raw        []string
}

// NewArgParser parses raw. boolNames lists the flags that never take a
// value, without leading dashes.
//
// Example:
//
//	p := NewArgParser([]string{"hello", "--mode", "repair", "--raw"}, "raw")
//	p.Flag("mode")      // "repair"
//	p.BoolFlag("raw")   // true
//	p.Positional(0)     // "hello"
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	isBool := make(map[string]bool, len(boolNames))
	for _, n := range boolNames {
		isBool[n] = true
	}

	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
		raw:       raw,
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		// A lone "-" and negative numbers are positional.
		if !strings.HasPrefix(arg, "-") || arg == "-" || looksNumeric(arg) {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if n, v, ok := strings.Cut(name, "="); ok {
			p.order = append(p.order, n)
			if isBool[n] {
				p.boolFlags[n] = v == "true" || v == "1" || v == "yes"
			} else {
				p.flags[n] = v
			}
			continue
		}

		p.order = append(p.order, name)
		if isBool[name] {
			p.boolFlags[name] = true
			continue
		}
		if i+1 < len(raw) && (!strings.HasPrefix(raw[i+1], "-") || looksNumeric(raw[i+1])) {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		// A value flag at the end of the line; keep it so callers can report it.
		p.boolFlags[name] = true
	}
	return p
}

func looksNumeric(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	c := s[1]
	return (c >= '0' && c <= '9') || c == '.'
}

// Flag returns the value of the first of names that was given.
//
// Example:
//
//	p.Flag("mode", "m")   // --mode repair or -m repair
func (p *ArgParser) Flag(names ...string) string {
	for _, n := range names {
		if v, ok := p.flags[n]; ok {
			return v
		}
	}
	return ""
}

// BoolFlag reports whether any of names was set.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, n := range names {
		if p.boolFlags[n] {
			return true
		}
	}
	return false
}

// HasFlag reports whether any of names appeared, with or without a value.
func (p *ArgParser) HasFlag(names ...string) bool {
	for _, n := range names {
		_, s := p.flags[n]
		_, b := p.boolFlags[n]
		if s || b {
			return true
		}
	}
	return false
}

// MissingValue reports whether a value flag appeared without its value.
func (p *ArgParser) MissingValue(name string) bool {
	_, hasValue := p.flags[name]
	return !hasValue && p.boolFlags[name]
}

// Unknown returns the flags that are not in known, in command-line order.
func (p *ArgParser) Unknown(known ...string) []string {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}
	var out []string
	for _, n := range p.order {
		if !allowed[n] {
			out = append(out, n)
		}
	}
	return out
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positional arguments from index on.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return []string{}
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// Raw returns the original arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}
