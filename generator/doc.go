// Package generator turns launcher configuration sections into the files and
// launch parameters of one server profile.
//
// A generation pass walks the applicable sections of a profile in order. Each raw
// value is run through the loop expander and the macro expander, then dispatched by
// the shape of its key:
//
//	File\Section\Key=value      a key inside a generated ini file
//	Name=value                  a connection parameter (?Name=value)
//	@import / @copy / @cmdline  directives
//	@Var@=value                 a variable definition
//
// Each dispatch target has its own merge semantics for the operators
// =, ?=, :=, !=, .=, +=, *= and -=.
//
// Example:
//
//	gen := &generator.Generator{FS: afero.NewOsFs(), Resolver: resolver, TemplateDir: configDir}
//	pass := generator.NewPass(filepath.Join(configDir, "DedicatedServer1"), globals)
//	artifacts, err := gen.Generate(pass, store, "DedicatedServer1")
//	if errors.Is(err, generator.ErrNoMap) {
//	    // profile has no Map= setting
//	}
package generator
