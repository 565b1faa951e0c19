package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/sdesim/internal/dynamo"
)

type ExportData struct {
	Metadata *RunMetadata               `json:"metadata"`
	Times    []float64                  `json:"times"`
	Control  []float64                  `json:"control,omitempty"`
	Reports  []dynamo.RealizationReport `json:"reports"`
	States   [][]float64                `json:"states,omitempty"`
}

// ExportJSON writes a run as one JSON document. With withStates set every
// realization's state buffer is included.
func (s *Store) ExportJSON(w io.Writer, runID string, withStates bool) error {
	meta, res, err := s.LoadResult(runID)
	if err != nil {
		return err
	}
	control, err := s.LoadControl(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Metadata: meta,
		Times:    res.Times,
		Control:  control,
		Reports:  res.Reports,
	}
	if withStates {
		data.States = make([][]float64, res.Realizations)
		for i := range data.States {
			data.States[i] = res.Realization(i)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes one realization as rows of time followed by the state.
// In final-state mode the single row carries the final time.
func (s *Store) ExportCSV(w io.Writer, runID string, realization int) error {
	_, res, err := s.LoadResult(runID)
	if err != nil {
		return err
	}
	if realization < 0 || realization >= res.Realizations {
		return fmt.Errorf("realization %d out of range [0, %d)", realization, res.Realizations)
	}

	cw := csv.NewWriter(w)

	header := []string{"time"}
	for i := 0; i < res.StateDim; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	path := res.Realization(realization)
	points := res.Points()
	for p := 0; p < points; p++ {
		t := res.Times[p]
		if res.Mode == dynamo.FinalState {
			t = res.Times[len(res.Times)-1]
		}
		row := []string{strconv.FormatFloat(t, 'f', 6, 64)}
		for _, val := range path[p*res.StateDim : (p+1)*res.StateDim] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
