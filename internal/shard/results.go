// v1
// internal/shard/results.go
package shard

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/trayline"
)

// WriteNodeResults renders a stepped fleet snapshot:
// machineid,location,type,pollutant,mass_kg,karma_bytes,duty_cycle.
func WriteNodeResults(w io.Writer, nodes []control.NodeState) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"machineid", "location", "type", "pollutant", "mass_kg", "karma_bytes", "duty_cycle"}); err != nil {
		return err
	}
	for _, n := range nodes {
		rec := []string{
			n.Row.MachineID,
			n.Row.Location,
			n.Row.DeviceType,
			n.Row.Pollutant,
			fstr(n.MassKg),
			fstr(n.KarmaBytes),
			fstr(n.Duty),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// GateRow is one tick's corridor verdict flattened for rendering. The caller
// supplies the region and the previous V; everything else comes from the
// tick output.
type GateRow struct {
	Region   string
	VPrev    float64
	VNext    float64
	Decision ecosafety.Decision
	Flags    ecosafety.Flags
	LCAOK    bool
	Gates    ecosafety.Gates
}

// WriteGateRows renders per-tick gate rows:
// region,v_prev,v_next,derate,stop,reason,corridor_ok,legal_ok,gold_ok,
// lca_ok,safety_gate,scaleup_gate,deployment_gate.
func WriteGateRows(w io.Writer, rows []GateRow) error {
	cw := csv.NewWriter(w)
	header := []string{
		"region", "v_prev", "v_next", "derate", "stop", "reason",
		"corridor_ok", "legal_ok", "gold_ok", "lca_ok",
		"safety_gate", "scaleup_gate", "deployment_gate",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, g := range rows {
		rec := []string{
			g.Region,
			fstr(g.VPrev),
			fstr(g.VNext),
			strconv.FormatBool(g.Decision.Derate),
			strconv.FormatBool(g.Decision.Stop),
			g.Decision.Reason,
			strconv.FormatBool(g.Flags.CorridorOK),
			strconv.FormatBool(g.Flags.LegalOK),
			strconv.FormatBool(g.Flags.GoldOK),
			strconv.FormatBool(g.LCAOK),
			strconv.FormatBool(g.Gates.Safety),
			strconv.FormatBool(g.Gates.ScaleUp),
			strconv.FormatBool(g.Gates.Deployment),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrayRows renders tray-line shard rows with the qpudatashard layout:
// machine_id,facility,region,lat,lon,materialmix,target_t90_days,
// modeled_t90_days,iso14851_class,ecoimpact_score,
// waste_reduced_kg_per_cycle,tox_risk_corridor,energy_kwh_per_cycle.
func WriteTrayRows(w io.Writer, rows []trayline.ShardRow) error {
	cw := csv.NewWriter(w)
	header := []string{
		"machine_id", "facility", "region", "lat", "lon", "materialmix",
		"target_t90_days", "modeled_t90_days", "iso14851_class",
		"ecoimpact_score", "waste_reduced_kg_per_cycle",
		"tox_risk_corridor", "energy_kwh_per_cycle",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.MachineID,
			r.Facility,
			r.Region,
			fstr(r.Lat),
			fstr(r.Lon),
			r.MaterialMix,
			fstr(r.TargetT90Days),
			fstr(r.ModeledT90Days),
			r.ISO14851Class,
			fstr(r.EcoImpactScore),
			fstr(r.WasteReducedKgPerCycle),
			fstr(r.ToxRiskCorridor),
			fstr(r.EnergyKWhPerCycle),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
