// v1
// internal/shard/devices.go
// Package shard reads and writes the platform's CSV surfaces: the 13-column
// CyboAir machine shards, the corridor parameter and coordinate tables, the
// lifecycle scenario tables, and the rendered per-node and per-tick result
// rows. Every reader expects a header row and reports parse failures with
// the data row number.
package shard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
)

// deviceCols is the CyboAir shard layout:
// machineid,type,location,pollutant,cin,cout,unit,airflow_m3_per_s,period_s,
// lambda_hazard,beta_nb_per_kg,ecoimpact_score,notes.
const deviceCols = 13

// ReadDeviceRows parses a CyboAir machine shard. Notes may be quoted and
// contain commas; extra trailing columns are ignored, short rows are
// errors.
func ReadDeviceRows(r io.Reader) ([]control.DeviceRow, error) {
	records, err := readTable(r, "machineid", deviceCols)
	if err != nil {
		return nil, err
	}

	rows := make([]control.DeviceRow, 0, len(records))
	for i, rec := range records {
		row := control.DeviceRow{
			MachineID:  strings.TrimSpace(rec[0]),
			DeviceType: strings.TrimSpace(rec[1]),
			Location:   strings.TrimSpace(rec[2]),
			Pollutant:  strings.TrimSpace(rec[3]),
			Unit:       strings.TrimSpace(rec[6]),
			Notes:      strings.TrimSpace(rec[12]),
		}
		fields := []struct {
			name string
			col  int
			dst  *float64
		}{
			{"cin", 4, &row.CIn},
			{"cout", 5, &row.COut},
			{"airflow_m3_per_s", 7, &row.AirflowM3s},
			{"period_s", 8, &row.PeriodS},
			{"lambda_hazard", 9, &row.LambdaHazard},
			{"beta_nb_per_kg", 10, &row.BetaPerKg},
			{"ecoimpact_score", 11, &row.EcoScore},
		}
		for _, f := range fields {
			v, perr := strconv.ParseFloat(strings.TrimSpace(rec[f.col]), 64)
			if perr != nil {
				return nil, fmt.Errorf("device row %d: bad %s %q", i+1, f.name, rec[f.col])
			}
			*f.dst = v
		}
		if row.MachineID == "" {
			return nil, fmt.Errorf("device row %d: empty machineid", i+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readTable consumes a whole CSV stream, checks the header starts with
// wantFirst, and returns the data records, each at least minCols wide.
func readTable(r io.Reader, wantFirst string, minCols int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table, expected a %q header", wantFirst)
	}
	header := records[0]
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), wantFirst) {
		return nil, fmt.Errorf("unexpected header %v, want first column %q", header, wantFirst)
	}
	data := records[1:]
	for i, rec := range data {
		if len(rec) < minCols {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+1, minCols, len(rec))
		}
	}
	return data, nil
}

func fstr(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
