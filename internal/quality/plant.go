package quality

import "fmt"

// Station is one workstation of the assembly line.
type Station struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Critical   bool   `json:"critical"`
	CycleHours int    `json:"cycle_hours"`
}

// Stations lists the line in build sequence.
var Stations = []Station{
	{ID: 1, Name: "Fuselage Assembly", Critical: true, CycleHours: 48},
	{ID: 2, Name: "Main Rotor Installation", Critical: true, CycleHours: 36},
	{ID: 3, Name: "Tail Boom Assembly", Critical: false, CycleHours: 24},
	{ID: 4, Name: "Avionics & Systems", Critical: true, CycleHours: 40},
	{ID: 5, Name: "Engine Integration", Critical: true, CycleHours: 56},
	{ID: 6, Name: "Landing Gear", Critical: false, CycleHours: 32},
	{ID: 7, Name: "Final Assembly", Critical: true, CycleHours: 48},
	{ID: 8, Name: "Quality Testing", Critical: true, CycleHours: 72},
}

// StationByID returns the station with the given id.
func StationByID(id int) (Station, error) {
	for _, s := range Stations {
		if s.ID == id {
			return s, nil
		}
	}
	return Station{}, fmt.Errorf("unknown station %d", id)
}

// Shift is a production shift.
type Shift struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Shifts lists the three daily shifts.
var Shifts = []Shift{
	{ID: 1, Name: "Morning", Start: "06:00", End: "14:00"},
	{ID: 2, Name: "Afternoon", Start: "14:00", End: "22:00"},
	{ID: 3, Name: "Night", Start: "22:00", End: "06:00"},
}

// ShiftForHour maps an hour of day to a shift id as hour/8 + 1.
func ShiftForHour(hour int) int {
	hour = ((hour % 24) + 24) % 24
	return hour/8 + 1
}
