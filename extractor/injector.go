package extractor

import (
	"context"

	"github.com/pkg/errors"
	"gitlab.com/pagevar/extractor/script"
	"gitlab.com/pagevar/pagevar"
)

// Injector puts the propagate program into the page as an inline script element.
type Injector struct {
	ElementID string
}

// NewInjector using the shared element id
func NewInjector() *Injector {
	return &Injector{ElementID: pagevar.ScriptElementID}
}

// Script builds the element for one extraction. ref is a non secret id used to remove it.
func (i *Injector) Script(token pagevar.Token, variableName, ref string) (*pagevar.Script, error) {
	src, err := script.Propagate(token.String(), variableName)
	if err != nil {
		return nil, err
	}
	return &pagevar.Script{ID: i.ElementID, Ref: ref, Source: src}, nil
}

// Inject appends the script to page. The broadcast happens whenever the page world gets
// to it, if it ever does. A page blocking inline scripts is not an error here.
func (i *Injector) Inject(ctx context.Context, page pagevar.Page, token pagevar.Token, variableName, ref string) error {
	s, err := i.Script(token, variableName, ref)
	if err != nil {
		return err
	}
	return errors.Wrap(page.AppendScript(ctx, s), "failed to append script")
}
