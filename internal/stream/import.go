package stream

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lox/fireweather/internal/interp"
	"github.com/lox/fireweather/internal/metrics"
)

// InvalidPolicy says what to do with rows whose values fall outside the
// physical ranges the importer accepts.
type InvalidPolicy int

const (
	// InvalidFail aborts the import on the first out-of-range value.
	InvalidFail InvalidPolicy = iota
	// InvalidAllow keeps out-of-range values as-is and records a warning.
	InvalidAllow
	// InvalidFix clamps out-of-range values into range and marks the hour
	// corrected.
	InvalidFix
)

// ImportOptions control how a weather file is merged into a stream.
type ImportOptions struct {
	// Purge clears the stream before importing.
	Purge bool
	// AllowAppend permits rows past the current end of a non-empty
	// stream.
	AllowAppend bool
	// AllowOverwrite permits rows that land on hours or days the stream
	// already holds.
	AllowOverwrite bool
	// Invalid selects the out-of-range policy.
	Invalid InvalidPolicy
	// DateFormats prepends extra date layouts to the defaults.
	DateFormats []string
}

// ImportResult summarizes a successful import.
type ImportResult struct {
	Format       string
	Rows         int
	Interpolated int
	Corrected    int
	Warnings     []string
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Import reads a daily or hourly weather file and merges it into the
// stream. The stream is never left partially modified: every row is
// parsed, validated and sequence-checked before the first value is
// committed.
func (s *Stream) Import(r io.Reader, opts ImportOptions) (ImportResult, error) {
	res, err := s.importFile(r, opts)
	status := "ok"
	if err != nil {
		status = "error"
	}
	format := res.Format
	if format == "" {
		format = "unknown"
	}
	metrics.ImportsTotal.WithLabelValues(format, status).Inc()
	if err != nil {
		return res, err
	}
	metrics.RowsImported.WithLabelValues(format).Add(float64(res.Rows))
	metrics.RowsCorrected.Add(float64(res.Corrected))
	metrics.HoursInterpolated.Add(float64(res.Interpolated))
	return res, nil
}

type fileLine struct {
	num  int
	toks []string
}

func (s *Stream) importFile(r io.Reader, opts ImportOptions) (ImportResult, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header []string
	var rows []fileLine
	sawAny := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		toks := tokenize(sc.Text())
		if len(toks) == 0 {
			continue
		}
		sawAny = true
		if header == nil {
			if isHeader(toks) {
				header = toks
			}
			continue
		}
		rows = append(rows, fileLine{num: lineNo, toks: toks})
	}
	if err := sc.Err(); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrReadFault, err)
	}
	if !sawAny {
		return ImportResult{}, ErrReadFault
	}
	if header == nil {
		return ImportResult{}, ErrBadFileType
	}

	if hourlyHeader(header) {
		return s.importHourly(header, rows, opts)
	}
	return s.importDaily(header, rows, opts)
}

// tokenize splits a line the way the file formats allow: commas, spaces,
// semicolons and tabs all separate fields, quotes are stripped.
func tokenize(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		switch r {
		case ',', ' ', ';', '\t', '"', '\r':
			return true
		}
		return false
	})
}

func isHeader(toks []string) bool {
	switch strings.ToLower(toks[0]) {
	case "daily", "hourly", "date":
		return true
	}
	return false
}

// hourlyHeader distinguishes the two formats: an explicit "hourly" tag,
// or a generic "date" header that carries an hour column.
func hourlyHeader(header []string) bool {
	if strings.EqualFold(header[0], "hourly") {
		return true
	}
	if strings.EqualFold(header[0], "daily") {
		return false
	}
	for _, h := range header[1:] {
		l := strings.ToLower(h)
		if l == "hour" || strings.HasPrefix(l, "time") {
			return true
		}
	}
	return false
}

type colKind int

const (
	colSkip colKind = iota
	colHour
	colTemp
	colRH
	colWD
	colWS
	colGust
	colPrecip
	colMinTemp
	colMaxTemp
	colMinWS
	colMaxWS
	colMinGust
	colMaxGust
	colFFMC
	colDMC
	colDC
	colBUI
	colISI
	colFWI
)

var hourlyAliases = map[string]colKind{
	"hour": colHour, "time": colHour, "time(cst)": colHour, "time(lst)": colHour,
	"temp": colTemp, "temperature": colTemp,
	"rh": colRH, "relative_humidity": colRH, "humidity": colRH, "min_rh": colRH,
	"wd": colWD, "dir": colWD, "wind_direction": colWD, "direction": colWD,
	"ws": colWS, "wspd": colWS, "wind_speed": colWS, "windspeed": colWS,
	"wg": colGust, "gust": colGust, "gusting": colGust, "wind_gust": colGust, "windgust": colGust,
	"precip": colPrecip, "rain": colPrecip, "precipitation": colPrecip, "prec": colPrecip,
	"ffmc": colFFMC, "hffmc": colFFMC,
	"dmc": colDMC, "dc": colDC, "bui": colBUI, "isi": colISI, "fwi": colFWI,
}

var dailyAliases = map[string]colKind{
	"min_temp": colMinTemp, "mintemp": colMinTemp,
	"max_temp": colMaxTemp, "maxtemp": colMaxTemp,
	"rh": colRH, "min_rh": colRH, "relative_humidity": colRH, "humidity": colRH,
	"wd": colWD, "dir": colWD, "wind_direction": colWD, "direction": colWD,
	"min_ws": colMinWS, "minws": colMinWS,
	"max_ws": colMaxWS, "maxws": colMaxWS,
	"min_wg": colMinGust, "min_gust": colMinGust,
	"max_wg": colMaxGust, "max_gust": colMaxGust,
	"precip": colPrecip, "rain": colPrecip, "precipitation": colPrecip, "prec": colPrecip,
}

// resolveColumns maps header tokens after the leading date tag to column
// kinds. Unknown columns are carried as colSkip so token indexes still
// line up.
func resolveColumns(header []string, aliases map[string]colKind) []colKind {
	cols := make([]colKind, len(header))
	for i, h := range header[1:] {
		if k, ok := aliases[strings.ToLower(h)]; ok {
			cols[i+1] = k
		}
	}
	return cols
}

func hasColumns(cols []colKind, want ...colKind) bool {
	for _, w := range want {
		found := false
		for _, c := range cols {
			if c == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// parseLocalDate parses a date-only token into LST midnight of that day.
func (s *Stream) parseLocalDate(tok string, extra []string) (time.Time, error) {
	zone := s.loc.Zone()
	for _, layout := range append(append([]string{}, extra...), dateLayouts...) {
		if t, err := time.ParseInLocation(layout, tok, zone); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, zone), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrInvalidData, tok)
}

// parseHourToken accepts "14", "14.5" and "14:30" forms, returning hours
// as a float.
func parseHourToken(tok string) (float64, error) {
	if i := strings.IndexByte(tok, ':'); i >= 0 {
		h, err1 := strconv.ParseFloat(tok[:i], 64)
		m, err2 := strconv.ParseFloat(tok[i+1:], 64)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("%w: unparseable hour %q", ErrInvalidData, tok)
		}
		return h + m/60, nil
	}
	h, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable hour %q", ErrInvalidData, tok)
	}
	return h, nil
}

// checkRange applies the invalid-data policy to one value. The corrected
// result reports whether the value was clamped.
func checkRange(v *float64, lo, hi float64, what string, line int, opts ImportOptions, res *ImportResult) (bool, error) {
	if *v >= lo && *v <= hi {
		return false, nil
	}
	switch opts.Invalid {
	case InvalidAllow:
		res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %s %g outside [%g, %g]", line, what, *v, lo, hi))
		return false, nil
	case InvalidFix:
		if *v < lo {
			*v = lo
		} else {
			*v = hi
		}
		return true, nil
	default:
		return false, fmt.Errorf("line %d: %s %g outside [%g, %g]: %w", line, what, *v, lo, hi, ErrInvalidData)
	}
}

type dailyRow struct {
	line int
	day  time.Time
	w    DailySummary
}

func (s *Stream) importDaily(header []string, lines []fileLine, opts ImportOptions) (ImportResult, error) {
	res := ImportResult{Format: "daily"}
	cols := resolveColumns(header, dailyAliases)
	if !hasColumns(cols, colMinTemp, colMaxTemp, colRH, colWD, colMinWS, colMaxWS, colPrecip) {
		return res, ErrBadFileType
	}

	var rows []dailyRow
	for _, ln := range lines {
		if len(ln.toks) < 2 {
			return res, fmt.Errorf("line %d: short row: %w", ln.num, ErrInvalidData)
		}
		day, err := s.parseLocalDate(ln.toks[0], opts.DateFormats)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", ln.num, err)
		}

		vals := map[colKind]float64{}
		for i, k := range cols {
			if k == colSkip || i >= len(ln.toks) {
				continue
			}
			v, err := strconv.ParseFloat(ln.toks[i], 64)
			if err != nil {
				return res, fmt.Errorf("line %d: unparseable value %q: %w", ln.num, ln.toks[i], ErrInvalidData)
			}
			vals[k] = v
		}
		for _, k := range []colKind{colMinTemp, colMaxTemp, colRH, colWD, colMinWS, colMaxWS, colPrecip} {
			if _, ok := vals[k]; !ok {
				return res, fmt.Errorf("line %d: missing value: %w", ln.num, ErrInvalidData)
			}
		}

		minTemp, maxTemp := vals[colMinTemp], vals[colMaxTemp]
		rh, wd := vals[colRH], vals[colWD]
		minWS, maxWS := vals[colMinWS], vals[colMaxWS]
		minGust, maxGust := vals[colMinGust], vals[colMaxGust]
		precip := vals[colPrecip]

		corrected := false
		for _, c := range []struct {
			v      *float64
			lo, hi float64
			what   string
		}{
			{&minTemp, -50, 60, "min_temp"},
			{&maxTemp, -50, 60, "max_temp"},
			{&rh, 0, 100, "rh"},
			{&wd, 0, 360, "wd"},
			{&minWS, 0, math.MaxFloat64, "min_ws"},
			{&maxWS, 0, math.MaxFloat64, "max_ws"},
			{&minGust, 0, math.MaxFloat64, "min_wg"},
			{&maxGust, 0, math.MaxFloat64, "max_wg"},
			{&precip, 0, math.MaxFloat64, "precip"},
		} {
			fixed, err := checkRange(c.v, c.lo, c.hi, c.what, ln.num, opts, &res)
			if err != nil {
				return res, err
			}
			corrected = corrected || fixed
		}
		if corrected {
			res.Corrected++
		}

		if minTemp > maxTemp {
			minTemp, maxTemp = maxTemp, minTemp
		}
		if minWS > maxWS {
			minWS, maxWS = maxWS, minWS
		}
		if minGust > maxGust {
			minGust, maxGust = maxGust, minGust
		}

		cwd := CompassToRadians(wd)
		if maxWS > 0 && cwd == 0 {
			// Zero radians means calm; a true east wind wraps to 2 pi.
			cwd = 2 * math.Pi
		}

		rows = append(rows, dailyRow{
			line: ln.num,
			day:  day,
			w: DailySummary{
				MinTemp: minTemp, MaxTemp: maxTemp,
				MinWS: minWS, MaxWS: maxWS,
				MinGust: minGust, MaxGust: maxGust,
				RH:     rh / 100,
				Precip: precip,
				WD:     cwd,
			},
		})
	}
	if len(rows) == 0 {
		return res, ErrInvalidData
	}

	for i := 1; i < len(rows); i++ {
		if !rows[i].day.Equal(rows[i-1].day.Add(24 * time.Hour)) {
			return res, fmt.Errorf("line %d: days not consecutive: %w", rows[i].line, ErrInvalidTime)
		}
	}

	empty := opts.Purge || len(s.days) == 0
	if !empty {
		appendPoint := s.start.Add(time.Duration(len(s.days)) * 24 * time.Hour)
		first, last := rows[0].day, rows[len(rows)-1].day
		switch {
		case first.Before(s.start):
			return res, ErrAttemptPrepend
		case first.After(appendPoint):
			return res, ErrInvalidTime
		case first.Before(appendPoint) && !opts.AllowOverwrite:
			return res, ErrAttemptOverwrite
		case !last.Before(appendPoint) && !opts.AllowAppend:
			return res, ErrAttemptAppend
		}
	}

	if opts.Purge {
		s.ClearData()
	}
	if len(s.days) == 0 {
		s.SetStart(rows[0].day)
		s.firstHour = 0
	}
	for _, row := range rows {
		d := s.getOrCreate(row.day)
		if d == nil {
			return res, ErrAttemptAppend
		}
		s.lastHour = 23
		d.setSummary(row.w)
		d.originFile = true
		res.Rows++
	}
	s.Invalidate()
	return res, nil
}

type hourlyRow struct {
	line int
	at   time.Time

	temp, rh, ws, wd, precip float64
	gust                     float64
	hasGust                  bool

	// FWI columns, -1 when absent.
	ffmc, dmc, dc, bui, isi, fwi float64

	corrected    bool
	interpolated bool
}

func (s *Stream) importHourly(header []string, lines []fileLine, opts ImportOptions) (ImportResult, error) {
	res := ImportResult{Format: "hourly"}
	cols := resolveColumns(header, hourlyAliases)
	if !hasColumns(cols, colHour, colTemp, colRH, colWD, colWS, colPrecip) {
		return res, ErrBadFileType
	}

	var rows []hourlyRow
	for _, ln := range lines {
		if len(ln.toks) < 2 {
			return res, fmt.Errorf("line %d: short row: %w", ln.num, ErrInvalidData)
		}
		day, err := s.parseLocalDate(ln.toks[0], opts.DateFormats)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", ln.num, err)
		}

		row := hourlyRow{line: ln.num, ffmc: -1, dmc: -1, dc: -1, bui: -1, isi: -1, fwi: -1}
		hour := math.NaN()
		have := map[colKind]bool{}
		for i, k := range cols {
			if k == colSkip || i >= len(ln.toks) {
				continue
			}
			if k == colHour {
				hour, err = parseHourToken(ln.toks[i])
				if err != nil {
					return res, err
				}
				continue
			}
			v, err := strconv.ParseFloat(ln.toks[i], 64)
			if err != nil {
				return res, fmt.Errorf("line %d: unparseable value %q: %w", ln.num, ln.toks[i], ErrInvalidData)
			}
			have[k] = true
			switch k {
			case colTemp:
				row.temp = v
			case colRH:
				row.rh = v
			case colWD:
				row.wd = v
			case colWS:
				row.ws = v
			case colGust:
				row.gust = v
				row.hasGust = true
			case colPrecip:
				row.precip = v
			case colFFMC:
				row.ffmc = v
			case colDMC:
				row.dmc = v
			case colDC:
				row.dc = v
			case colBUI:
				row.bui = v
			case colISI:
				row.isi = v
			case colFWI:
				row.fwi = v
			}
		}
		for _, k := range []colKind{colTemp, colRH, colWD, colWS, colPrecip} {
			if !have[k] {
				return res, fmt.Errorf("line %d: missing value: %w", ln.num, ErrInvalidData)
			}
		}
		if math.IsNaN(hour) || hour < 0 || hour >= 24 {
			return res, fmt.Errorf("line %d: hour out of range: %w", ln.num, ErrInvalidData)
		}

		row.at = day.Add(time.Duration(hour * float64(time.Hour)))
		if s.loc.DSTActive(row.at) {
			// Files speak wall clock; internals run on standard time.
			row.at = row.at.Add(-s.loc.DSTAmount)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return res, ErrInvalidData
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })
	// Duplicate timestamps: the later line wins.
	dedup := rows[:0]
	for i, row := range rows {
		if i+1 < len(rows) && rows[i+1].at.Equal(row.at) {
			continue
		}
		dedup = append(dedup, row)
	}
	rows = dedup

	// Range checks run after dedup; a superseded line's values never
	// count against the import.
	for i := range rows {
		row := &rows[i]
		corrected := false
		for _, c := range []struct {
			v      *float64
			lo, hi float64
			what   string
		}{
			{&row.temp, -50, 60, "temp"},
			{&row.rh, 0, 100, "rh"},
			{&row.wd, 0, 360, "wd"},
			{&row.ws, 0, math.MaxFloat64, "ws"},
			{&row.precip, 0, math.MaxFloat64, "precip"},
		} {
			fixed, err := checkRange(c.v, c.lo, c.hi, c.what, row.line, opts, &res)
			if err != nil {
				return res, err
			}
			corrected = corrected || fixed
		}
		if row.dmc != -1 && (row.dmc < 0 || row.dmc > 500) {
			return res, fmt.Errorf("line %d: dmc out of range: %w", row.line, ErrInvalidData)
		}
		if row.dc != -1 && (row.dc < 0 || row.dc > 1500) {
			return res, fmt.Errorf("line %d: dc out of range: %w", row.line, ErrInvalidData)
		}
		if corrected {
			row.corrected = true
			res.Corrected++
		}
	}

	empty := opts.Purge || len(s.days) == 0
	var base time.Time
	if empty {
		zone := s.loc.Zone()
		f := rows[0].at.In(zone)
		base = time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, zone)
	} else {
		base = s.start
	}

	offs := make([]float64, len(rows))
	for i, row := range rows {
		offs[i] = row.at.Sub(base).Hours()
	}
	if offs[0] < 0 {
		return res, ErrAttemptPrepend
	}
	if empty {
		if offs[0] != math.Trunc(offs[0]) {
			return res, fmt.Errorf("line %d: first hour not on the hour: %w", rows[0].line, ErrInvalidData)
		}
		if offs[0] > 12 {
			return res, ErrStartAfterNoon
		}
	}

	grid, err := buildHourGrid(rows, offs, &res)
	if err != nil {
		return res, err
	}

	if !empty {
		lastWritten := s.start.Add(time.Duration(len(s.days)-1)*24*time.Hour + time.Duration(s.lastHour)*time.Hour)
		first := base.Add(time.Duration(grid[0].hour) * time.Hour)
		last := base.Add(time.Duration(grid[len(grid)-1].hour) * time.Hour)
		switch {
		case first.After(lastWritten.Add(time.Hour)):
			return res, ErrInvalidTime
		case !first.After(lastWritten) && !opts.AllowOverwrite:
			return res, ErrAttemptOverwrite
		case last.After(lastWritten) && !opts.AllowAppend:
			return res, ErrAttemptAppend
		}
	}

	if opts.Purge {
		s.ClearData()
	}
	wasEmpty := len(s.days) == 0
	if wasEmpty {
		s.SetStart(base)
		s.firstHour = grid[0].hour % 24
		s.lastHour = s.firstHour
	}
	var endBefore time.Time
	if !wasEmpty {
		endBefore = s.start.Add(time.Duration(len(s.days)-1)*24*time.Hour + time.Duration(s.lastHour)*time.Hour)
	}

	anyCodes := false
	committed := 0
	for _, g := range grid {
		t := base.Add(time.Duration(g.hour) * time.Hour)
		h := g.hour % 24
		d := s.getOrCreate(t)
		if d == nil {
			return res, ErrAttemptAppend
		}
		row := g.row

		var gust sql.NullFloat64
		if row.hasGust {
			gust = sql.NullFloat64{Float64: row.gust, Valid: true}
		}
		d.setHour(h, HourlyReading{
			Temp:   row.temp,
			RH:     row.rh / 100,
			WS:     row.ws,
			Gust:   gust,
			WD:     CompassToRadians(row.wd),
			Precip: row.precip,
		})
		d.interpolated[h] = row.interpolated
		d.corrected[h] = row.corrected
		d.originFile = true

		if !row.interpolated {
			first := committed == 0 || t.Equal(s.start)
			if row.dmc >= 0 {
				anyCodes = true
				if first {
					s.seed.DMC = nf(row.dmc)
				} else if h == 12 {
					d.fwi.specDay.DMC = nf(row.dmc)
				}
			}
			if row.dc >= 0 {
				anyCodes = true
				if first {
					s.seed.DC = nf(row.dc)
				} else if h == 12 {
					d.fwi.specDay.DC = nf(row.dc)
				}
			}
			if row.bui >= 0 {
				anyCodes = true
				if first {
					s.seed.BUI = nf(row.bui)
				}
				if h == 12 {
					d.fwi.specDay.BUI = nf(row.bui)
				}
			}
			if row.isi >= 0 {
				anyCodes = true
				d.fwi.specHour[h].ISI = nf(row.isi)
			}
			if row.fwi >= 0 {
				anyCodes = true
				d.fwi.specHour[h].FWI = nf(row.fwi)
			}
			if row.ffmc >= 0 {
				anyCodes = true
				d.fwi.specHour[h].FFMC = nf(row.ffmc)
				if h == 16 {
					// The 1600 reading doubles as the day's standard
					// hourly FFMC observation.
					d.fwi.specDay.FFMC = nf(row.ffmc)
					if d.start.Equal(s.start) {
						s.seed.HourlyFFMC = nf(row.ffmc)
						s.seed.HourlyFFMCAt = NullDuration{Duration: 16 * time.Hour, Valid: true}
					}
				}
			}
			committed++
		} else {
			res.Interpolated++
		}

		if endBefore.IsZero() || t.After(endBefore) {
			s.lastHour = h
		}
		if d.start.Equal(s.start) && h < s.firstHour {
			s.firstHour = h
		}
	}
	if anyCodes {
		s.opts.UseSpecified = true
	}
	res.Rows = committed
	s.Invalidate()
	return res, nil
}

type gridHour struct {
	hour int
	row  hourlyRow
}

// buildHourGrid turns the sorted rows into one entry per whole hour from
// the first to the last reading. Up to five consecutive missing hours
// are filled by cubic splines over temperature, humidity and winds;
// longer gaps abort the import. Readings at fractional hours contribute
// to the splines but never land on the grid themselves.
func buildHourGrid(rows []hourlyRow, offs []float64, res *ImportResult) ([]gridHour, error) {
	exact := map[int]hourlyRow{}
	for i, row := range rows {
		if offs[i] == math.Trunc(offs[i]) {
			exact[int(offs[i])] = row
		}
	}

	h0 := int(math.Ceil(offs[0]))
	h1 := int(math.Floor(offs[len(offs)-1]))
	if h1 < h0 {
		return nil, ErrInvalidData
	}

	missing := 0
	for h := h0; h <= h1; h++ {
		if _, ok := exact[h]; ok {
			missing = 0
			continue
		}
		missing++
		if missing > 5 {
			return nil, fmt.Errorf("more than 5 consecutive hours missing: %w", ErrInvalidData)
		}
	}

	var temps, rhs, wss, gusts []interp.HourValue
	allGust := true
	for i, row := range rows {
		temps = append(temps, interp.HourValue{HourOffset: offs[i], Value: row.temp})
		rhs = append(rhs, interp.HourValue{HourOffset: offs[i], Value: row.rh})
		wss = append(wss, interp.HourValue{HourOffset: offs[i], Value: row.ws})
		if row.hasGust {
			gusts = append(gusts, interp.HourValue{HourOffset: offs[i], Value: row.gust})
		} else {
			allGust = false
		}
	}
	tempFill := splineMap(temps)
	rhFill := splineMap(rhs)
	wsFill := splineMap(wss)
	var gustFill map[int]float64
	if allGust {
		gustFill = splineMap(gusts)
	}

	grid := make([]gridHour, 0, h1-h0+1)
	prevWD := rows[0].wd
	prevAt := rows[0].at
	for h := h0; h <= h1; h++ {
		if row, ok := exact[h]; ok {
			grid = append(grid, gridHour{hour: h, row: row})
			prevWD, prevAt = row.wd, row.at
			continue
		}
		row := hourlyRow{
			at:     prevAt.Add(time.Hour),
			temp:   clampRange(tempFill[h], -50, 60),
			rh:     clampRange(rhFill[h], 0, 100),
			ws:     math.Max(wsFill[h], 0),
			wd:     prevWD,
			precip: 0,
			ffmc:   -1, dmc: -1, dc: -1, bui: -1, isi: -1, fwi: -1,
			interpolated: true,
		}
		if gustFill != nil {
			row.gust = math.Max(gustFill[h], 0)
			row.hasGust = true
		}
		grid = append(grid, gridHour{hour: h, row: row})
		prevAt = row.at
	}
	return grid, nil
}

func splineMap(known []interp.HourValue) map[int]float64 {
	out := map[int]float64{}
	for _, v := range interp.Spline(known) {
		out[int(v.HourOffset)] = v.Value
	}
	return out
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
