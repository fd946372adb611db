// Package validation checks executor and scheduler configuration values.
//
// Every check returns a *errors.ValidationError naming the module and field,
// so constructors can return it unchanged.
package validation
