// v1
// internal/shard/tables.go
package shard

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
)

// ReadParameters parses the corridor parameter table:
// name,unit,domain_min,domain_max,legal_limit,gold_limit,direction.
// Empty limit cells mean the region defines no such band. Direction is MAX
// or MIN. Duplicate names are errors.
func ReadParameters(r io.Reader) (map[string]ecosafety.Parameter, error) {
	records, err := readTable(r, "name", 7)
	if err != nil {
		return nil, err
	}

	params := make(map[string]ecosafety.Parameter, len(records))
	for i, rec := range records {
		p := ecosafety.Parameter{
			Name: strings.TrimSpace(rec[0]),
			Unit: strings.TrimSpace(rec[1]),
		}
		if p.DomainMin, err = parseF(rec[2]); err != nil {
			return nil, fmt.Errorf("parameter row %d: bad domain_min %q", i+1, rec[2])
		}
		if p.DomainMax, err = parseF(rec[3]); err != nil {
			return nil, fmt.Errorf("parameter row %d: bad domain_max %q", i+1, rec[3])
		}
		if p.LegalLimit, err = parseOptF(rec[4]); err != nil {
			return nil, fmt.Errorf("parameter row %d: bad legal_limit %q", i+1, rec[4])
		}
		if p.GoldLimit, err = parseOptF(rec[5]); err != nil {
			return nil, fmt.Errorf("parameter row %d: bad gold_limit %q", i+1, rec[5])
		}
		switch strings.ToUpper(strings.TrimSpace(rec[6])) {
		case "MAX":
			p.Direction = ecosafety.DirectionMax
		case "MIN":
			p.Direction = ecosafety.DirectionMin
		default:
			return nil, fmt.Errorf("parameter row %d: unknown direction %q", i+1, rec[6])
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("parameter row %d: %w", i+1, err)
		}
		if _, dup := params[p.Name]; dup {
			return nil, fmt.Errorf("parameter row %d: duplicate name %q", i+1, p.Name)
		}
		params[p.Name] = p
	}
	return params, nil
}

// ReadCoordinateDefs parses the coordinate-definition table:
// id,param_name,r_min,r_max,weight,channel. File order is evaluation order.
func ReadCoordinateDefs(r io.Reader) ([]ecosafety.CoordinateDef, error) {
	records, err := readTable(r, "id", 6)
	if err != nil {
		return nil, err
	}

	defs := make([]ecosafety.CoordinateDef, 0, len(records))
	for i, rec := range records {
		var d ecosafety.CoordinateDef
		if d.ID, err = parseI(rec[0]); err != nil {
			return nil, fmt.Errorf("coordinate row %d: bad id %q", i+1, rec[0])
		}
		d.ParamName = strings.TrimSpace(rec[1])
		if d.RMin, err = parseF(rec[2]); err != nil {
			return nil, fmt.Errorf("coordinate row %d: bad r_min %q", i+1, rec[2])
		}
		if d.RMax, err = parseF(rec[3]); err != nil {
			return nil, fmt.Errorf("coordinate row %d: bad r_max %q", i+1, rec[3])
		}
		if d.Weight, err = parseF(rec[4]); err != nil {
			return nil, fmt.Errorf("coordinate row %d: bad weight %q", i+1, rec[4])
		}
		if d.Channel, err = parseI(rec[5]); err != nil {
			return nil, fmt.Errorf("coordinate row %d: bad channel %q", i+1, rec[5])
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("coordinate row %d: %w", i+1, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// ReadScenarios parses the lifecycle scenario table:
// scenario_id,region_id,functional_unit,mode,gwp_kg_co2eq,grid_gco2_per_kwh,
// landfill_ref_gwp,avoided_virgin_metal,energy_recovery_efficiency,recycling_rate.
func ReadScenarios(r io.Reader) ([]ecosafety.Scenario, error) {
	records, err := readTable(r, "scenario_id", 10)
	if err != nil {
		return nil, err
	}

	scens := make([]ecosafety.Scenario, 0, len(records))
	for i, rec := range records {
		s := ecosafety.Scenario{
			ID:             strings.TrimSpace(rec[0]),
			RegionID:       strings.TrimSpace(rec[1]),
			FunctionalUnit: strings.TrimSpace(rec[2]),
			Mode:           strings.TrimSpace(rec[3]),
		}
		fields := []struct {
			name string
			col  int
			dst  *float64
		}{
			{"gwp_kg_co2eq", 4, &s.GWPKgCO2eq},
			{"grid_gco2_per_kwh", 5, &s.GridGCO2PerKWh},
			{"landfill_ref_gwp", 6, &s.LandfillRefGWP},
			{"avoided_virgin_metal", 7, &s.AvoidedVirginMetal},
			{"energy_recovery_efficiency", 8, &s.EnergyRecoveryEff},
			{"recycling_rate", 9, &s.RecyclingRate},
		}
		for _, f := range fields {
			v, perr := parseF(rec[f.col])
			if perr != nil {
				return nil, fmt.Errorf("scenario row %d: bad %s %q", i+1, f.name, rec[f.col])
			}
			*f.dst = v
		}
		scens = append(scens, s)
	}
	return scens, nil
}

// SelectPair picks the comparison pair out of a scenario table: the first
// baseline and the first candidate, in file order. Either missing is an
// error; the table is there to be compared.
func SelectPair(scens []ecosafety.Scenario) (base, cand ecosafety.Scenario, err error) {
	var haveBase, haveCand bool
	for _, s := range scens {
		switch s.Mode {
		case ecosafety.ModeStatusQuo:
			if !haveBase {
				base, haveBase = s, true
			}
		case ecosafety.ModeCybocinder:
			if !haveCand {
				cand, haveCand = s, true
			}
		}
	}
	if !haveBase {
		return base, cand, fmt.Errorf("scenario table has no %s entry", ecosafety.ModeStatusQuo)
	}
	if !haveCand {
		return base, cand, fmt.Errorf("scenario table has no %s entry", ecosafety.ModeCybocinder)
	}
	return base, cand, nil
}

func parseF(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseOptF(s string) (*float64, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseI(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
