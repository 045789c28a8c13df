package generator

import "log/slog"

// Options selects the generators Default composes.
type Options struct {
	Shoot         bool `yaml:"shoot"`
	StrictPass    bool `yaml:"strict_pass"`
	Cross         bool `yaml:"cross"`
	ShortDribble  bool `yaml:"short_dribble"`
	SelfPass      bool `yaml:"self_pass"`
	Clear         bool `yaml:"clear"`
	DirectPass    bool `yaml:"direct_pass"`
	SimpleDribble bool `yaml:"simple_dribble"`
}

// DefaultOptions enables the shoot, strict pass, cross, short dribble and
// self pass generators.
func DefaultOptions() Options {
	return Options{
		Shoot:        true,
		StrictPass:   true,
		Cross:        true,
		ShortDribble: true,
		SelfPass:     true,
	}
}

// Default builds the standard composition. Shots are only considered
// after at least one other action; the course generators only start a
// chain; the simple generators only extend one.
func Default(opts Options, logger *slog.Logger) Composite {
	var c Composite
	if opts.Shoot {
		c = append(c, MinLength(Shoot{}, 2))
	}
	if opts.StrictPass {
		c = append(c, MaxLength(&StrictPass{Logger: logger}, 1))
	}
	if opts.Cross {
		c = append(c, MaxLength(&Cross{Logger: logger}, 1))
	}
	if opts.ShortDribble {
		c = append(c, MaxLength(&ShortDribble{Logger: logger}, 1))
	}
	if opts.SelfPass {
		c = append(c, MaxLength(&SelfPass{Logger: logger}, 1))
	}
	if opts.Clear {
		c = append(c, MaxLength(&Clear{Logger: logger}, 1))
	}
	if opts.DirectPass {
		c = append(c, MinLength(NewDirectPass(), 2))
	}
	if opts.SimpleDribble {
		c = append(c, MinLength(NewSimpleDribble(), 2))
	}
	return c
}
