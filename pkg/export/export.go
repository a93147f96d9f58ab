package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
)

// WriteJSON writes the schedule to w in JSON format.
func WriteJSON(w io.Writer, s model.Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteCSV writes the schedule to w as one row per trip and timepoint.
// Truncated segments are emitted with empty time cells.
func WriteCSV(w io.Writer, s model.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"trip_number", "block_number", "service_band", "timepoint_id", "arrival", "departure", "recovery_minutes"}); err != nil {
		return err
	}
	for _, trip := range s.Trips {
		for _, tp := range s.TimePoints {
			rec := []string{
				strconv.Itoa(trip.TripNumber),
				strconv.Itoa(trip.BlockNumber),
				string(trip.ServiceBand),
				tp.ID,
				trip.ArrivalTimes[tp.ID],
				trip.DepartureTimes[tp.ID],
				strconv.Itoa(trip.RecoveryTimes[tp.ID]),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
