/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"strings"
	"sync"
)

// CompositeUnitOpts contains optional parameters for constructing CompositeUnit.
type CompositeUnitOpts struct {
	// SequentialStop makes Stop halt units one by one in the order they were passed.
	// It's needed when a unit feeds the next one (e.g. HTTP server -> broker -> journal),
	// so the consumer is stopped only after its producer has drained.
	SequentialStop bool
}

// CompositeUnit starts and stops a group of units as a single one.
type CompositeUnit struct {
	Units []Unit
	opts  CompositeUnitOpts
}

var _ Unit = (*CompositeUnit)(nil)
var _ MetricsRegisterer = (*CompositeUnit)(nil)

// NewCompositeUnit creates a new composite unit which stops its units concurrently.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return NewCompositeUnitWithOpts(CompositeUnitOpts{}, units...)
}

// NewCompositeUnitWithOpts is a more configurable version of NewCompositeUnit.
func NewCompositeUnitWithOpts(opts CompositeUnitOpts, units ...Unit) *CompositeUnit {
	return &CompositeUnit{Units: units, opts: opts}
}

// Start runs every unit in its own goroutine and blocks until all Start calls return.
// When any unit fails, the rest are stopped non-gracefully and a CompositeUnitError
// with the start and stop errors is sent to fatalErr.
func (cu *CompositeUnit) Start(fatalErr chan<- error) {
	unitErrs := make([]chan error, len(cu.Units))
	failed := make(chan struct{}, len(cu.Units))
	var wg sync.WaitGroup
	wg.Add(len(cu.Units))
	for i, u := range cu.Units {
		i, u := i, u
		unitErrs[i] = make(chan error, 1)
		go func() {
			defer wg.Done()
			u.Start(unitErrs[i])
			if len(unitErrs[i]) != 0 {
				failed <- struct{}{}
			}
		}()
	}

	allReturned := make(chan struct{})
	go func() {
		wg.Wait()
		close(allReturned)
	}()

	select {
	case <-allReturned:
		if len(failed) == 0 {
			return
		}
	case <-failed:
	}

	var errs []error
	if stopErr := cu.Stop(false); stopErr != nil {
		errs = append(errs, stopErr.(*CompositeUnitError).UnitErrors...)
	}
	<-allReturned
	startErrs := make([]error, 0, len(unitErrs))
	for _, ch := range unitErrs {
		select {
		case err := <-ch:
			startErrs = append(startErrs, err)
		default:
		}
	}
	fatalErr <- &CompositeUnitError{UnitErrors: append(startErrs, errs...)}
}

// Stop halts all units and joins their errors into a single CompositeUnitError.
// Units are stopped concurrently unless SequentialStop is set.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	var errs []error
	if cu.opts.SequentialStop {
		for _, u := range cu.Units {
			if err := u.Stop(gracefully); err != nil {
				errs = append(errs, err)
			}
		}
	} else {
		results := make([]error, len(cu.Units))
		var wg sync.WaitGroup
		wg.Add(len(cu.Units))
		for i, u := range cu.Units {
			i, u := i, u
			go func() {
				defer wg.Done()
				results[i] = u.Stop(gracefully)
			}()
		}
		wg.Wait()
		for _, err := range results {
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) != 0 {
		return &CompositeUnitError{UnitErrors: errs}
	}
	return nil
}

// MustRegisterMetrics registers metrics of all units that own them.
func (cu *CompositeUnit) MustRegisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.MustRegisterMetrics()
		}
	}
}

// UnregisterMetrics unregisters metrics of all units that own them.
func (cu *CompositeUnit) UnregisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.UnregisterMetrics()
		}
	}
}

// CompositeUnitError contains errors of the units composed by CompositeUnit.
type CompositeUnitError struct {
	UnitErrors []error
}

func (cue *CompositeUnitError) Error() string {
	msgs := make([]string, 0, len(cue.UnitErrors))
	for _, err := range cue.UnitErrors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap allows errors.Is and errors.As to look into the unit errors.
func (cue *CompositeUnitError) Unwrap() []error {
	return cue.UnitErrors
}
