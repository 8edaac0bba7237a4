package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/fireweather/internal/fetch"
	"github.com/lox/fireweather/internal/store"
	"github.com/lox/fireweather/internal/stream"
)

type cliContext struct {
	store *store.Store
}

var cli struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name='env-file',help='Load flags from a .env file.'"`

	DB          string `help:"Path to the sqlite database." env:"FIREWEATHER_DB" default:"data/fireweather.db"`
	MetricsAddr string `help:"Expose Prometheus metrics on this address while running." env:"FIREWEATHER_METRICS_ADDR"`

	Import importCmd `cmd:"" help:"Import a daily or hourly weather file into a stream."`
	Watch  watchCmd  `cmd:"" help:"Periodically re-fetch a URL and fold new rows into a stream."`
	Show   showCmd   `cmd:"" help:"Show a stream's weather and fire weather indexes."`
	At     atCmd     `cmd:"" help:"Show the conditions at a single instant."`
	Export exportCmd `cmd:"" help:"Export a stream as CSV."`
	List   listCmd   `cmd:"" help:"List saved streams."`
	Clear  clearCmd  `cmd:"" help:"Remove a stream's readings but keep its location and seeds."`
	Delete deleteCmd `cmd:"" help:"Delete a saved stream."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("fireweather"),
		kong.Description("Per-location weather timelines and Canadian Fire Weather Index calculation."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env", ".env.local"),
	)

	if cli.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cli.MetricsAddr, mux); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx.FatalIfErrorf(ctx.Run(&cliContext{store: st}))
}

type importCmd struct {
	Stream string `arg:"" help:"Stream name."`
	Source string `arg:"" help:"File path, or an http/ftp URL."`

	Lat      float64 `help:"Latitude in degrees, south negative." default:"0"`
	Lon      float64 `help:"Longitude in degrees, east positive." default:"0"`
	Timezone float64 `help:"Standard-time UTC offset in hours." default:"0"`
	DST      float64 `help:"Daylight-saving shift in hours, 0 to disable." default:"0"`
	DSTStart int     `help:"Day of year daylight saving begins." default:"0"`
	DSTEnd   int     `help:"Day of year daylight saving ends." default:"0"`

	Policy    string  `help:"Hourly FFMC policy." enum:"van_wagner,hybrid,lawson" default:"van_wagner"`
	SeedFFMC  float64 `help:"Starting daily FFMC." default:"85"`
	SeedDMC   float64 `help:"Starting DMC." default:"25"`
	SeedDC    float64 `help:"Starting DC." default:"200"`
	SeedHFFMC float64 `help:"Starting hourly FFMC, negative to derive it." default:"-1"`
	SeedRain  float64 `help:"Rain already fallen before the first observation, in mm." default:"0"`

	Purge     bool   `help:"Clear the stream before importing."`
	Append    bool   `help:"Allow rows past the current end of the stream."`
	Overwrite bool   `help:"Allow rows that replace hours the stream already holds."`
	Invalid   string `help:"Out-of-range value policy." enum:"fail,allow,fix" default:"fail"`
}

func (c *importCmd) Run(cc *cliContext) error {
	s, err := loadOrCreate(cc, c.Stream, stream.Location{
		Latitude:       c.Lat,
		Longitude:      c.Lon,
		TimezoneOffset: time.Duration(c.Timezone * float64(time.Hour)),
		DSTAmount:      time.Duration(c.DST * float64(time.Hour)),
		DSTStart:       time.Duration(c.DSTStart) * 24 * time.Hour,
		DSTEnd:         time.Duration(c.DSTEnd) * 24 * time.Hour,
	})
	if err != nil {
		return err
	}

	policy, err := stream.ParsePolicy(c.Policy)
	if err != nil {
		return err
	}
	opts := s.Options()
	opts.Policy = policy
	s.SetOptions(opts)

	seed := s.Seed()
	seed.FFMC = sql.NullFloat64{Float64: c.SeedFFMC, Valid: c.SeedFFMC >= 0}
	seed.DMC = sql.NullFloat64{Float64: c.SeedDMC, Valid: c.SeedDMC >= 0}
	seed.DC = sql.NullFloat64{Float64: c.SeedDC, Valid: c.SeedDC >= 0}
	if c.SeedHFFMC >= 0 {
		seed.HourlyFFMC = sql.NullFloat64{Float64: c.SeedHFFMC, Valid: true}
	}
	seed.Rain = c.SeedRain
	s.SetSeed(seed)

	var body []byte
	if strings.Contains(c.Source, "://") {
		body, err = fetch.Fetch(context.Background(), c.Source)
	} else {
		body, err = os.ReadFile(c.Source)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", c.Source, err)
	}

	res, err := s.Import(bytes.NewReader(body), stream.ImportOptions{
		Purge:          c.Purge,
		AllowAppend:    c.Append,
		AllowOverwrite: c.Overwrite,
		Invalid:        parseInvalid(c.Invalid),
	})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	for _, w := range res.Warnings {
		log.Printf("warning: %s", w)
	}
	log.Printf("imported %d %s rows (%d interpolated, %d corrected)",
		res.Rows, res.Format, res.Interpolated, res.Corrected)

	if err := cc.store.SaveStream(c.Stream, s.State()); err != nil {
		return fmt.Errorf("save stream: %w", err)
	}
	return nil
}

func parseInvalid(s string) stream.InvalidPolicy {
	switch s {
	case "allow":
		return stream.InvalidAllow
	case "fix":
		return stream.InvalidFix
	}
	return stream.InvalidFail
}

func loadOrCreate(cc *cliContext, name string, loc stream.Location) (*stream.Stream, error) {
	st, err := cc.store.LoadStream(name)
	if err != nil {
		return nil, fmt.Errorf("load stream %q: %w", name, err)
	}
	if st != nil {
		return stream.FromState(*st), nil
	}
	return stream.New(loc), nil
}

func loadExisting(cc *cliContext, name string) (*stream.Stream, error) {
	st, err := cc.store.LoadStream(name)
	if err != nil {
		return nil, fmt.Errorf("load stream %q: %w", name, err)
	}
	if st == nil {
		return nil, fmt.Errorf("no stream named %q", name)
	}
	return stream.FromState(*st), nil
}

type watchCmd struct {
	Stream   string        `arg:"" help:"Stream name, must already exist."`
	URL      string        `arg:"" help:"http or ftp URL of the agency file."`
	Interval time.Duration `help:"Poll interval." default:"10m"`
}

// Run polls the URL until interrupted. Agency files are republished with
// the same leading rows plus new hours appended, so each cycle re-imports
// with append and overwrite allowed and saves whatever changed.
func (c *watchCmd) Run(cc *cliContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cycle := func() {
		s, err := loadExisting(cc, c.Stream)
		if err != nil {
			log.Printf("watch: %v", err)
			return
		}

		body, err := fetch.Fetch(ctx, c.URL)
		if err != nil {
			log.Printf("watch: fetch %s: %v", c.URL, err)
			return
		}

		res, err := s.Import(bytes.NewReader(body), stream.ImportOptions{
			AllowAppend:    true,
			AllowOverwrite: true,
			Invalid:        stream.InvalidFix,
		})
		if err != nil {
			log.Printf("watch: import: %v", err)
			return
		}

		if err := cc.store.SaveStream(c.Stream, s.State()); err != nil {
			log.Printf("watch: save: %v", err)
			return
		}
		log.Printf("watch: imported %d rows (%d interpolated)", res.Rows, res.Interpolated)
	}

	cycle()
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("watch: shutting down")
			return nil
		case <-ticker.C:
			cycle()
		}
	}
}

type showCmd struct {
	Stream string `arg:"" help:"Stream name."`
	Hourly bool   `help:"Show every hour instead of daily summaries."`
}

func (c *showCmd) Run(cc *cliContext) error {
	s, err := loadExisting(cc, c.Stream)
	if err != nil {
		return err
	}
	if s.NumDays() == 0 {
		fmt.Println("stream is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if c.Hourly {
		fmt.Fprintln(w, "time\ttemp\trh%\tws\twd\tprecip\tffmc\tisi\tfwi")
		for t := s.Start(); t.Before(s.End()); t = t.Add(time.Hour) {
			r, ok := s.HourlyReadingAt(t)
			if !ok {
				continue
			}
			ffmc, _ := s.HourlyFFMC(t)
			isi, _ := s.HourlyISI(t)
			fwi, _ := s.HourlyFWI(t)
			fmt.Fprintf(w, "%s\t%.1f\t%.0f\t%.1f\t%.0f\t%.1f\t%.1f\t%.1f\t%.1f\n",
				t.Format("2006-01-02 15:04"), r.Temp, r.RH*100, r.WS,
				stream.RadiansToCompass(r.WD), r.Precip, ffmc, isi, fwi)
		}
		return nil
	}

	fmt.Fprintln(w, "date\tmin\tmax\trh%\tprecip\tffmc\tdmc\tdc\tbui\tisi\tfwi")
	for i := 0; i < s.NumDays(); i++ {
		day := s.Start().Add(time.Duration(i) * 24 * time.Hour)
		noon := day.Add(13 * time.Hour)
		sum, _ := s.DailySummaryAt(day)
		ffmc, _, _ := s.DailyFFMC(noon)
		dmc, _, _ := s.DMC(noon)
		dc, _, _ := s.DC(noon)
		bui, _, _ := s.BUI(noon)
		isi, _ := s.DailyISI(noon)
		fwi, _ := s.DailyFWI(noon)
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.0f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\n",
			day.Format("2006-01-02"), sum.MinTemp, sum.MaxTemp, sum.RH*100,
			sum.Precip, ffmc, dmc, dc, bui, isi, fwi)
	}
	return nil
}

type atCmd struct {
	Stream      string `arg:"" help:"Stream name."`
	Time        string `arg:"" help:"Instant to query, RFC 3339 or '2006-01-02 15:04'."`
	Interpolate bool   `help:"Interpolate between the bracketing hours."`
}

func (c *atCmd) Run(cc *cliContext) error {
	s, err := loadExisting(cc, c.Stream)
	if err != nil {
		return err
	}

	t, err := parseWhen(c.Time, s.Location())
	if err != nil {
		return err
	}

	inst, ok := s.Instantaneous(t, c.Interpolate)
	if !ok {
		return fmt.Errorf("%s is outside the stream", t.Format(time.RFC3339))
	}

	fmt.Printf("temp %.1f C  rh %.0f%%  ws %.1f km/h  wd %.0f deg  precip %.1f mm  dew %.1f C\n",
		inst.Temp, inst.RH*100, inst.WS, stream.RadiansToCompass(inst.WD), inst.Precip, inst.DewPoint)
	fmt.Printf("ffmc %.1f  isi %.1f  fwi %.1f\n", inst.FFMC, inst.ISI, inst.FWI)
	fmt.Printf("daily: ffmc %.1f  dmc %.1f  dc %.1f  bui %.1f  isi %.1f  fwi %.1f\n",
		inst.Daily.FFMC, inst.Daily.DMC, inst.Daily.DC, inst.Daily.BUI, inst.Daily.ISI, inst.Daily.FWI)
	if inst.Interpolated {
		fmt.Println("note: hour was interpolated at import")
	}
	return nil
}

func parseWhen(s string, loc stream.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc.Zone()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

type exportCmd struct {
	Stream string `arg:"" help:"Stream name."`
	Format string `help:"Export layout." enum:"hourly,daily" default:"hourly"`
	Out    string `help:"Output path, stdout when empty."`
}

func (c *exportCmd) Run(cc *cliContext) error {
	s, err := loadExisting(cc, c.Stream)
	if err != nil {
		return err
	}

	out := os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if c.Format == "daily" {
		return s.ExportDaily(out)
	}
	return s.ExportHourly(out)
}

type listCmd struct{}

func (c *listCmd) Run(cc *cliContext) error {
	infos, err := cc.store.ListStreams()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no streams saved")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "name\tstart\tdays\tupdated")
	for _, info := range infos {
		start := "-"
		if info.Start.Valid {
			start = info.Start.Time.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", info.Name, start, info.Days,
			info.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

type clearCmd struct {
	Stream string `arg:"" help:"Stream name."`
}

func (c *clearCmd) Run(cc *cliContext) error {
	s, err := loadExisting(cc, c.Stream)
	if err != nil {
		return err
	}
	s.ClearData()
	return cc.store.SaveStream(c.Stream, s.State())
}

type deleteCmd struct {
	Stream string `arg:"" help:"Stream name."`
}

func (c *deleteCmd) Run(cc *cliContext) error {
	return cc.store.DeleteStream(c.Stream)
}
