package calendar

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed holidays.yaml
var defaultHolidaysYAML []byte

// Holiday is a named non-working day.
type Holiday struct {
	Date Date
	Name string
}

// Holidays is an immutable set of non-working dates.
type Holidays struct {
	byDate map[Date]string
}

type holidayFile struct {
	Holidays []struct {
		Date string `yaml:"date"`
		Name string `yaml:"name"`
	} `yaml:"holidays"`
}

// NewHolidays builds a holiday set from explicit entries.
func NewHolidays(entries ...Holiday) Holidays {
	byDate := make(map[Date]string, len(entries))
	for _, h := range entries {
		byDate[h.Date] = h.Name
	}
	return Holidays{byDate: byDate}
}

// ParseHolidays decodes the YAML holiday table format.
func ParseHolidays(data []byte) (Holidays, error) {
	var file holidayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Holidays{}, fmt.Errorf("calendar: decode holidays: %w", err)
	}
	entries := make([]Holiday, 0, len(file.Holidays))
	for i, h := range file.Holidays {
		d, err := ParseDate(h.Date)
		if err != nil {
			return Holidays{}, fmt.Errorf("calendar: holiday %d: %w", i, err)
		}
		entries = append(entries, Holiday{Date: d, Name: h.Name})
	}
	return NewHolidays(entries...), nil
}

// DefaultHolidays returns the embedded national holiday table. It is parsed
// once; the set is read-only so every caller shares it.
var DefaultHolidays = sync.OnceValue(func() Holidays {
	h, err := ParseHolidays(defaultHolidaysYAML)
	if err != nil {
		panic(fmt.Sprintf("calendar: embedded holidays invalid: %v", err))
	}
	return h
})

// LoadHolidays reads a holiday table from path, or returns the embedded table
// when path is empty.
func LoadHolidays(path string) (Holidays, error) {
	if path == "" {
		return DefaultHolidays(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Holidays{}, fmt.Errorf("calendar: read holidays: %w", err)
	}
	return ParseHolidays(data)
}

// Contains reports whether d is a listed holiday.
func (h Holidays) Contains(d Date) bool {
	_, ok := h.byDate[d]
	return ok
}

// Name returns the holiday name for d, if any.
func (h Holidays) Name(d Date) (string, bool) {
	name, ok := h.byDate[d]
	return name, ok
}

// Len returns the number of listed holidays.
func (h Holidays) Len() int {
	return len(h.byDate)
}

// List returns the holidays in date order.
func (h Holidays) List() []Holiday {
	out := make([]Holiday, 0, len(h.byDate))
	for d, name := range h.byDate {
		out = append(out, Holiday{Date: d, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
