// Package formatter renders schedules, queue analyses and staffing answers
// as text, JSON or CSV.
package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"agent-staffing/models"
)

// Format names an output encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	CSV  Format = "csv"
)

// ParseFormat accepts text, json or csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, JSON, CSV:
		return f, nil
	}
	return "", fmt.Errorf("format must be one of: text, json, csv (got: %s)", s)
}

// Schedule renders schedule in format f.
func Schedule(schedule *models.Schedule, f Format) string {
	switch f {
	case JSON:
		return FormatJSON(schedule)
	case CSV:
		return FormatCSV(schedule)
	default:
		return FormatText(schedule)
	}
}

// HourStaffing is the staffing of one local clock hour.
type HourStaffing struct {
	Hour      int                `json:"hour"`
	Agents    int                `json:"agents"`
	Locations []LocationStaffing `json:"locations,omitempty"`
	Shortfall *Shortfall         `json:"shortfall,omitempty"`
}

// LocationStaffing totals the customers of one timezone. ServiceLevel is the
// agent-weighted projection over customers sized by a queueing model, and 0
// when none were.
type LocationStaffing struct {
	Location     string             `json:"location"`
	Agents       int                `json:"agents"`
	ServiceLevel float64            `json:"service_level,omitempty"`
	Customers    []CustomerStaffing `json:"customers"`
}

// CustomerStaffing is one customer's allocation within an hour.
type CustomerStaffing struct {
	Name         string  `json:"name"`
	Priority     int     `json:"priority"`
	Agents       int     `json:"agents"`
	ServiceLevel float64 `json:"service_level,omitempty"`
	Unmet        int     `json:"unmet,omitempty"`
}

// Shortfall is an hour whose demand exceeded capacity.
type Shortfall struct {
	Demand   int                     `json:"demand"`
	Capacity int                     `json:"capacity"`
	Unmet    int                     `json:"unmet"`
	Impacted []models.ImpactedClient `json:"impacted_clients"`
}

// StaffHours groups schedule by hour, location and customer.
func StaffHours(schedule *models.Schedule) []HourStaffing {
	shortfalls := make(map[int]*models.UnmetDemand, len(schedule.UnmetDemands))
	for i := range schedule.UnmetDemands {
		u := &schedule.UnmetDemands[i]
		shortfalls[u.Hour] = u
	}

	hours := make([]HourStaffing, 24)
	for h := range hours {
		var reqs []models.CustomerRequirement
		if h < len(schedule.HourlyRequirements) {
			reqs = schedule.HourlyRequirements[h]
		}
		hours[h] = staffHour(h, reqs)

		if u, ok := shortfalls[h]; ok {
			hours[h].Shortfall = &Shortfall{
				Demand:   u.TotalDemand,
				Capacity: u.AllocatedAgents,
				Unmet:    u.UnmetAgents,
				Impacted: slices.Clone(u.ImpactedClients),
			}
			hours[h].markUnmet()
		}
	}
	return hours
}

func staffHour(hour int, reqs []models.CustomerRequirement) HourStaffing {
	hs := HourStaffing{Hour: hour}
	byLocation := make(map[string]*LocationStaffing)
	for _, req := range reqs {
		name := req.Location.String()
		loc, ok := byLocation[name]
		if !ok {
			loc = &LocationStaffing{Location: name}
			byLocation[name] = loc
		}
		loc.add(req)
		hs.Agents += req.AgentsNeeded
	}

	for _, name := range slices.Sorted(maps.Keys(byLocation)) {
		loc := byLocation[name]
		loc.finish()
		hs.Locations = append(hs.Locations, *loc)
	}
	return hs
}

// add folds req into l. A repeated local hour (DST fall-back) lists the
// customer twice, so agents accumulate.
func (l *LocationStaffing) add(req models.CustomerRequirement) {
	l.Agents += req.AgentsNeeded
	i := slices.IndexFunc(l.Customers, func(c CustomerStaffing) bool { return c.Name == req.Name })
	if i < 0 {
		l.Customers = append(l.Customers, CustomerStaffing{Name: req.Name, Priority: req.Priority})
		i = len(l.Customers) - 1
	}
	c := &l.Customers[i]
	c.Agents += req.AgentsNeeded
	if req.ServiceLevel > 0 {
		c.ServiceLevel = req.ServiceLevel
	}
}

func (l *LocationStaffing) finish() {
	slices.SortFunc(l.Customers, func(a, b CustomerStaffing) int {
		return strings.Compare(a.Name, b.Name)
	})

	var weighted float64
	sized := 0
	for _, c := range l.Customers {
		if c.ServiceLevel > 0 {
			weighted += c.ServiceLevel * float64(c.Agents)
			sized += c.Agents
		}
	}
	if sized > 0 {
		l.ServiceLevel = weighted / float64(sized)
	}
}

func (h *HourStaffing) markUnmet() {
	for _, ic := range h.Shortfall.Impacted {
		for li := range h.Locations {
			for ci := range h.Locations[li].Customers {
				if c := &h.Locations[li].Customers[ci]; c.Name == ic.Name {
					c.Unmet = ic.UnmetAgents
				}
			}
		}
	}
}

// FormatText returns one block per hour: the hour total, a line per location
// and an indented line per customer.
func FormatText(schedule *models.Schedule) string {
	var sb strings.Builder
	for _, h := range StaffHours(schedule) {
		if h.Agents == 0 && h.Shortfall == nil {
			fmt.Fprintf(&sb, "%02d:00  no agents\n", h.Hour)
			continue
		}

		fmt.Fprintf(&sb, "%02d:00  %d agents\n", h.Hour, h.Agents)
		for _, loc := range h.Locations {
			fmt.Fprintf(&sb, "  %s: %d agents%s\n", loc.Location, loc.Agents, slSuffix(loc.ServiceLevel))
			for _, c := range loc.Customers {
				fmt.Fprintf(&sb, "    %s p%d: %d%s", c.Name, c.Priority, c.Agents, slSuffix(c.ServiceLevel))
				if c.Unmet > 0 {
					fmt.Fprintf(&sb, "  unmet %d", c.Unmet)
				}
				sb.WriteByte('\n')
			}
		}

		if s := h.Shortfall; s != nil {
			fmt.Fprintf(&sb, "  capacity short: demand %d, capacity %d, unmet %d\n", s.Demand, s.Capacity, s.Unmet)
			for _, ic := range s.Impacted {
				fmt.Fprintf(&sb, "    %s p%d: %d of %d allocated\n",
					ic.Name, ic.Priority, ic.AllocatedAgents, ic.RequestedAgents)
			}
		}
	}
	return sb.String()
}

func slSuffix(sl float64) string {
	if sl <= 0 {
		return ""
	}
	return fmt.Sprintf("  SL %.1f%%", sl*100)
}

// FormatJSON returns the hours as an indented JSON array.
func FormatJSON(schedule *models.Schedule) string {
	b, _ := json.MarshalIndent(StaffHours(schedule), "", "  ")
	return string(b)
}

var csvHeader = []string{
	"hour", "location", "location_agents", "location_service_level",
	"customer", "priority", "agents", "service_level", "unmet",
}

// FormatCSV returns one row per hour, location and customer. Idle hours get
// a single row, and customers left with no agents get a row without a location.
func FormatCSV(schedule *models.Schedule) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write(csvHeader)

	for _, h := range StaffHours(schedule) {
		hour := fmt.Sprintf("%02d:00", h.Hour)
		if len(h.Locations) == 0 && h.Shortfall == nil {
			w.Write([]string{hour, "", "", "", "", "", "0", "", ""})
			continue
		}

		listed := make(map[string]bool)
		for _, loc := range h.Locations {
			for _, c := range loc.Customers {
				listed[c.Name] = true
				w.Write([]string{
					hour,
					loc.Location,
					strconv.Itoa(loc.Agents),
					csvLevel(loc.ServiceLevel),
					c.Name,
					strconv.Itoa(c.Priority),
					strconv.Itoa(c.Agents),
					csvLevel(c.ServiceLevel),
					csvCount(c.Unmet),
				})
			}
		}
		if h.Shortfall == nil {
			continue
		}
		for _, ic := range h.Shortfall.Impacted {
			if listed[ic.Name] {
				continue
			}
			w.Write([]string{
				hour, "", "", "",
				ic.Name,
				strconv.Itoa(ic.Priority),
				strconv.Itoa(ic.AllocatedAgents),
				"",
				strconv.Itoa(ic.UnmetAgents),
			})
		}
	}

	w.Flush()
	return sb.String()
}

func csvLevel(sl float64) string {
	if sl <= 0 {
		return ""
	}
	return strconv.FormatFloat(sl, 'f', 4, 64)
}

func csvCount(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
