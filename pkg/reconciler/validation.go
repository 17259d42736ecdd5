package reconciler

import (
	"fmt"
	"math"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/series"
)

// validateRecords checks every series is ordered and finite and every
// snapshot or estimate value is finite.
func validateRecords(records map[countries.Code]*CountryRecord) error {
	for code, record := range records {
		if record == nil {
			return &errors.ValidationError{Field: "records", Value: code, Message: "nil record"}
		}
		if record.Code != code {
			return &errors.ValidationError{
				Field:   "records",
				Value:   code,
				Message: fmt.Sprintf("record keyed %s carries code %s", code, record.Code),
			}
		}
		for name, s := range record.Series {
			if err := s.Validate(); err != nil {
				return &errors.ValidationError{
					Field:   fmt.Sprintf("%s.%s", code, name),
					Message: err.Error(),
				}
			}
		}
		if err := validateSnapshots(code, record.Latest); err != nil {
			return err
		}
		if err := validateSnapshots(code, record.Estimates); err != nil {
			return err
		}
	}
	return nil
}

func validateSnapshots(code countries.Code, snapshots map[indicators.Name]series.Snapshot) error {
	for name, snap := range snapshots {
		if snap.Value == nil {
			continue
		}
		if v := *snap.Value; math.IsNaN(v) || math.IsInf(v, 0) {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("%s.%s", code, name),
				Value:   v,
				Message: fmt.Sprintf("%s value is not finite", snap.Year),
			}
		}
	}
	return nil
}
