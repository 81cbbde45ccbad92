package medicine

import (
	"encoding/json"
	"fmt"
)

// Times expands a medicine's frequency into the HH:MM dose times for one day.
// Custom times keep the order the user entered; interval schedules start at
// 08:00 and stop before midnight. Unknown frequencies produce no doses.
func Times(m *Medicine) []string {
	switch m.Frequency {
	case OnceDaily:
		return []string{"09:00"}
	case TwiceDaily:
		return []string{"09:00", "21:00"}
	case ThreeTimesDaily:
		return []string{"08:00", "14:00", "20:00"}
	case FourTimesDaily:
		return []string{"08:00", "12:00", "16:00", "20:00"}
	case CustomTimes:
		var times []string
		for _, t := range m.CustomTimes {
			if t != "" {
				times = append(times, t)
			}
		}
		return times
	case IntervalHours:
		interval := m.IntervalHours
		if interval <= 0 {
			interval = 8
		}
		var times []string
		for hour := 8; hour < 24; hour += interval {
			times = append(times, fmt.Sprintf("%02d:00", hour))
		}
		return times
	default:
		return nil
	}
}

// DailyDoseCount returns how many doses a medicine schedules per day.
func DailyDoseCount(m *Medicine) int {
	return len(Times(m))
}

// SerializeTimes packs CustomTimes into CustomTimesJSON for storage.
func (m *Medicine) SerializeTimes() error {
	if len(m.CustomTimes) == 0 {
		m.CustomTimesJSON = ""
		return nil
	}
	data, err := json.Marshal(m.CustomTimes)
	if err != nil {
		return fmt.Errorf("failed to serialize custom times: %w", err)
	}
	m.CustomTimesJSON = string(data)
	return nil
}

// DeserializeTimes unpacks CustomTimesJSON into CustomTimes after loading.
func (m *Medicine) DeserializeTimes() error {
	if m.CustomTimesJSON == "" {
		m.CustomTimes = nil
		return nil
	}
	if err := json.Unmarshal([]byte(m.CustomTimesJSON), &m.CustomTimes); err != nil {
		return fmt.Errorf("failed to deserialize custom times: %w", err)
	}
	return nil
}
