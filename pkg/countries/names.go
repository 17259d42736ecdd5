package countries

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultNames covers canonical codes that are not ISO 3166 regions.
var DefaultNames = map[Code]string{
	EuropeanUnion: "European Union",
}

// Names picks display names for canonical codes.
type Names struct {
	overrides map[Code]string
	namer     display.Namer
}

// NewNames creates a name lookup; overrides win over every other source.
func NewNames(overrides map[Code]string) *Names {
	merged := make(map[Code]string, len(DefaultNames)+len(overrides))
	for code, name := range DefaultNames {
		merged[code] = name
	}
	for code, name := range overrides {
		merged[code] = name
	}
	return &Names{
		overrides: merged,
		namer:     display.English.Regions(),
	}
}

// Name returns the display name for code. Configured names come first,
// then the CLDR English region name, then the name the source supplied,
// and finally the code itself.
func (n *Names) Name(code Code, sourceName string) string {
	if name, ok := n.overrides[code]; ok && name != "" {
		return name
	}
	if region, err := language.ParseRegion(string(code)); err == nil && region.IsCountry() {
		if name := n.namer.Name(region); name != "" {
			return name
		}
	}
	if sourceName != "" {
		return sourceName
	}
	return string(code)
}
