package symtab

import (
	"fmt"
	"strings"

	"symscope/internal/core/errors"
)

func notFoundError(name string) error {
	err := &errors.DomainError{
		Code:    errors.CodeNotFound,
		Message: fmt.Sprintf("%q is not declared", name),
	}
	return err.WithContext(errors.CtxSymbol, name)
}

func ambiguousError(name string, candidates []*Declaration) error {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.String())
	}
	err := &errors.DomainError{
		Code:    errors.CodeAmbiguous,
		Message: fmt.Sprintf("%q is ambiguous: %s", name, strings.Join(names, ", ")),
	}
	return err.WithContext(errors.CtxSymbol, name).WithContext(errors.CtxCandidates, candidates)
}

func circularError(name string, class *Declaration) error {
	err := &errors.DomainError{
		Code:    errors.CodeCircularInheritance,
		Message: fmt.Sprintf("circular inheritance through %s while looking up %q", class, name),
	}
	return err.WithContext(errors.CtxSymbol, name).WithContext(errors.CtxScope, class.QualifiedName())
}

func IsNotFound(err error) bool  { return errors.IsCode(err, errors.CodeNotFound) }
func IsAmbiguous(err error) bool { return errors.IsCode(err, errors.CodeAmbiguous) }
func IsCircular(err error) bool  { return errors.IsCode(err, errors.CodeCircularInheritance) }

// Candidates returns the competing declarations carried by an ambiguous
// lookup error.
func Candidates(err error) []*Declaration {
	v, ok := errors.ContextValue(err, errors.CtxCandidates)
	if !ok {
		return nil
	}
	decls, _ := v.([]*Declaration)
	return decls
}
