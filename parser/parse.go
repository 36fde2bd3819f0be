package parser

import (
	"agent-staffing/errors"
	"agent-staffing/metrics"
	"agent-staffing/models"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	minFields = 6 // customer, AHT seconds, start, end, calls, priority
	maxFields = 7 // ... plus mean patience seconds
)

// timeLayouts are tried in order for the start and end columns.
var timeLayouts = []string{"3:04PM", "3PM"}

// Parse reads CSV data from the reader and returns a slice of CallData.
// Lines starting with '#' are headers/comments. A header whose third column
// reads StartTime<zone> (PT, ET, CT, MT, UTC or an IANA name such as
// StartTimeAsia/Tokyo) switches the timezone for all following rows.
// The default zone is Pacific Time.
//
// Each data row is
//
//	Customer, AHTSeconds, Start, End, Calls, Priority[, PatienceSeconds]
//
// where Start/End use "3PM" or "3:04PM". The optional patience column feeds
// the Erlang-A model.
func Parse(r io.Reader) ([]models.CallData, error) {
	started := time.Now()
	defer func() {
		metrics.ParserDurationSeconds.Observe(time.Since(started).Seconds())
	}()

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return nil, fmt.Errorf("error loading location: %w", err)
	}
	var data []models.CallData
	lineNum := 0

	for {
		record, err := reader.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			metrics.ParserErrorsTotal.WithLabelValues("csv").Inc()
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}

		if len(record) > 0 && strings.HasPrefix(record[0], "#") {
			if newLoc, ok := headerLocation(record); ok {
				loc = newLoc
			}
			continue
		}

		cd, err := parseRecord(record, loc)
		if err != nil {
			metrics.ParserErrorsTotal.WithLabelValues(errorType(err)).Inc()
			return nil, &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    err,
			}
		}
		metrics.ParserRecordsTotal.Inc()
		data = append(data, cd)
	}

	return data, nil
}

func parseRecord(record []string, loc *time.Location) (models.CallData, error) {
	if len(record) < minFields || len(record) > maxFields {
		return models.CallData{}, errors.ErrInvalidFieldCount
	}
	field := func(i int) string { return strings.TrimSpace(record[i]) }

	cd := models.CallData{
		CustomerName: field(0),
		Location:     loc,
	}

	var err error
	if cd.AverageCallDurationSeconds, err = strconv.Atoi(field(1)); err != nil {
		return cd, fmt.Errorf("%w: %v", errors.ErrInvalidDuration, err)
	}
	if cd.AverageCallDurationSeconds <= 0 {
		return cd, fmt.Errorf("%w: %d must be positive", errors.ErrInvalidDuration, cd.AverageCallDurationSeconds)
	}

	// Times are pinned to today's date so DST rules for today apply.
	if cd.StartTime, err = parseTime(field(2), loc); err != nil {
		return cd, fmt.Errorf("%w: %v", errors.ErrInvalidStartTime, err)
	}
	if cd.EndTime, err = parseTime(field(3), loc); err != nil {
		return cd, fmt.Errorf("%w: %v", errors.ErrInvalidEndTime, err)
	}

	if cd.NumberOfCalls, err = strconv.Atoi(field(4)); err != nil {
		return cd, fmt.Errorf("%w: %v", errors.ErrInvalidNumberOfCalls, err)
	}
	if cd.NumberOfCalls < 0 {
		return cd, fmt.Errorf("%w: %d is negative", errors.ErrInvalidNumberOfCalls, cd.NumberOfCalls)
	}

	if cd.Priority, err = strconv.Atoi(field(5)); err != nil {
		return cd, fmt.Errorf("%w: %v", errors.ErrInvalidPriority, err)
	}

	if len(record) == maxFields && field(6) != "" {
		if cd.PatienceSeconds, err = strconv.Atoi(field(6)); err != nil {
			return cd, fmt.Errorf("%w: %v", errors.ErrInvalidPatience, err)
		}
		if cd.PatienceSeconds <= 0 {
			return cd, fmt.Errorf("%w: %d must be positive", errors.ErrInvalidPatience, cd.PatienceSeconds)
		}
	}

	return cd, nil
}

// headerLocation resolves the timezone named by a StartTime<zone> header.
func headerLocation(record []string) (*time.Location, bool) {
	if len(record) < 4 {
		return nil, false
	}
	headerTime := strings.TrimSpace(record[2])
	if !strings.HasPrefix(headerTime, "StartTime") {
		return nil, false
	}
	loc, err := getTimezoneLocation(strings.TrimPrefix(headerTime, "StartTime"))
	if err != nil {
		return nil, false
	}
	return loc, true
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	var lastErr error
	now := time.Now().In(loc)
	for _, layout := range timeLayouts {
		// ParseInLocation uses year 0 if not specified.
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func getTimezoneLocation(code string) (*time.Location, error) {
	code = strings.TrimSpace(code)

	switch code {
	case "PT":
		return time.LoadLocation("America/Los_Angeles")
	case "ET":
		return time.LoadLocation("America/New_York")
	case "CT":
		return time.LoadLocation("America/Chicago")
	case "MT":
		return time.LoadLocation("America/Denver")
	case "UTC":
		return time.UTC, nil
	default:
		// Full IANA names cover international zones; unknown names fall back to Pacific.
		loc, err := time.LoadLocation(code)
		if err != nil {
			return time.LoadLocation("America/Los_Angeles")
		}
		return loc, nil
	}
}

// errorType maps a record error to its metric label.
func errorType(err error) string {
	for _, e := range []struct {
		target error
		label  string
	}{
		{errors.ErrInvalidFieldCount, "field_count"},
		{errors.ErrInvalidDuration, "duration"},
		{errors.ErrInvalidStartTime, "start_time"},
		{errors.ErrInvalidEndTime, "end_time"},
		{errors.ErrInvalidNumberOfCalls, "number_of_calls"},
		{errors.ErrInvalidPriority, "priority"},
		{errors.ErrInvalidPatience, "patience"},
	} {
		if stderrors.Is(err, e.target) {
			return e.label
		}
	}
	return "other"
}
