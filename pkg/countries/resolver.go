// Package countries resolves provider-specific country and region codes to
// the canonical 3-letter codes worldstat keys its records by.
package countries

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Code is a canonical 3-letter country or recognized aggregate code.
type Code string

// String returns the string representation of a code.
func (c Code) String() string {
	return string(c)
}

// ErrRejected is matched by every resolver rejection.
var ErrRejected = stderrors.New("country code rejected")

// Rejection reasons.
const (
	ReasonBlank     = "blank code"
	ReasonLength    = "not a 3-letter code"
	ReasonAggregate = "aggregate region"
)

// RejectedError describes why a raw code did not resolve.
type RejectedError struct {
	Raw    string
	Reason string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("country code %q rejected: %s", e.Raw, e.Reason)
}

// Is implements errors.Is support.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// EuropeanUnion is the canonical pseudo-country code for the EU-27.
const EuropeanUnion Code = "EUU"

// DefaultAliases maps provider-specific union codes onto canonical codes.
var DefaultAliases = map[string]Code{
	"OWID_EU27": EuropeanUnion,
	"EU27":      EuropeanUnion,
	"EU27_2020": EuropeanUnion,
}

// DefaultAggregates lists 3-letter codes that denote regions, income or
// lending groups rather than countries. EUU is deliberately absent.
var DefaultAggregates = []string{
	"AFE", "AFW", "ARB", "CEB", "CSS", "EAP", "EAR", "EAS", "ECA", "ECS",
	"EMU", "FCS", "HIC", "HPC", "IBD", "IBT", "IDA", "IDB", "IDX", "INX",
	"LAC", "LCN", "LDC", "LIC", "LMC", "LMY", "LTE", "MEA", "MIC", "MNA",
	"NAC", "OED", "OSS", "PRE", "PSS", "PST", "SAS", "SSA", "SSF", "SST",
	"TEA", "TEC", "TLA", "TMN", "TSA", "TSS", "UMC", "WLD",
}

// Resolver maps raw codes to canonical codes. It is immutable after
// construction, so it can be shared by concurrently running adapters.
type Resolver struct {
	aliases    map[string]Code
	aggregates map[string]struct{}
}

// NewResolver builds a resolver. Nil arguments select the defaults.
func NewResolver(aliases map[string]Code, aggregates []string) *Resolver {
	if aliases == nil {
		aliases = DefaultAliases
	}
	if aggregates == nil {
		aggregates = DefaultAggregates
	}

	r := &Resolver{
		aliases:    make(map[string]Code, len(aliases)),
		aggregates: make(map[string]struct{}, len(aggregates)),
	}
	for raw, code := range aliases {
		r.aliases[normalize(raw)] = Code(normalize(string(code)))
	}
	for _, agg := range aggregates {
		r.aggregates[normalize(agg)] = struct{}{}
	}
	// an alias target is a recognized entity and must never be filtered
	for _, code := range r.aliases {
		delete(r.aggregates, string(code))
	}
	return r
}

// Resolve returns the canonical code for raw, or a *RejectedError.
func (r *Resolver) Resolve(raw string) (Code, error) {
	code := normalize(raw)
	if alias, ok := r.aliases[code]; ok {
		code = string(alias)
	}

	switch {
	case code == "":
		return "", &RejectedError{Raw: raw, Reason: ReasonBlank}
	case !isAlpha3(code):
		return "", &RejectedError{Raw: raw, Reason: ReasonLength}
	}
	if _, agg := r.aggregates[code]; agg {
		return "", &RejectedError{Raw: raw, Reason: ReasonAggregate}
	}
	return Code(code), nil
}

// MustResolve is Resolve for static configuration; it panics on rejection.
func (r *Resolver) MustResolve(raw string) Code {
	code, err := r.Resolve(raw)
	if err != nil {
		panic(err)
	}
	return code
}

func normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func isAlpha3(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
