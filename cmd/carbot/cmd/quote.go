package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/itransmotors/carbot/internal/calculator"
	"github.com/itransmotors/carbot/internal/sheets"
)

var (
	quoteAuction   string
	quoteBid       float64
	quoteLocation  string
	quoteYear      int
	quoteEngine    string
	quoteVolume    float64
	quoteBattery   float64
	quoteInsurance bool
	quoteMode      string
	quoteFormat    string
	quoteRefresh   bool
)

// quoteCmd computes one estimate from the command line
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Calculate the landed cost of one car",
	Long: `Calculate the landed cost of one car against the stored tariff snapshot.

The location may be a full key ("Copart: TX - DALLAS") or free text that is
matched against the auction's locations.

Examples:
  carbot quote --auction copart --bid 10000 --location "TX - DALLAS" --year 2019 --engine gasoline --volume 2000
  carbot quote --auction iaai --bid 8000 --location "FL - MIAMI" --year 2021 --engine electric --battery 75 --mode pro
  carbot quote --refresh --format json ...`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteAuction, "auction", "a", "", "auction house (copart, iaai) [REQUIRED]")
	quoteCmd.Flags().Float64VarP(&quoteBid, "bid", "b", 0, "winning bid in USD [REQUIRED]")
	quoteCmd.Flags().StringVarP(&quoteLocation, "location", "l", "", "auction yard [REQUIRED]")
	quoteCmd.Flags().IntVarP(&quoteYear, "year", "y", 0, "registration year [REQUIRED]")
	quoteCmd.Flags().StringVarP(&quoteEngine, "engine", "e", string(calculator.Gasoline), "engine type (gasoline, diesel, hybrid, electric)")
	quoteCmd.Flags().Float64Var(&quoteVolume, "volume", 0, "engine volume in cc (gasoline, diesel)")
	quoteCmd.Flags().Float64Var(&quoteBattery, "battery", 0, "battery capacity in kWh (electric)")
	quoteCmd.Flags().BoolVar(&quoteInsurance, "insurance", false, "include cargo insurance")
	quoteCmd.Flags().StringVarP(&quoteMode, "mode", "m", string(calculator.ModeClient), "report mode (client, pro)")
	quoteCmd.Flags().StringVarP(&quoteFormat, "format", "f", "text", "output format (text, json)")
	quoteCmd.Flags().BoolVar(&quoteRefresh, "refresh", false, "refresh tariffs from the spreadsheet first")

	for _, name := range []string{"auction", "bid", "location", "year"} {
		_ = quoteCmd.MarkFlagRequired(name)
	}
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := quoteRequest()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var sheet *sheets.Client
	if quoteRefresh {
		if sheet, err = openSheets(ctx); err != nil {
			return fmt.Errorf("failed to create sheets client: %w", err)
		}
		if sheet == nil {
			return errors.New("--refresh needs SPREADSHEET_ID")
		}
	}
	tariffs := newTariffService(db, sheet)
	if sheet != nil {
		if _, err := tariffs.Refresh(ctx); err != nil {
			return fmt.Errorf("tariff refresh failed: %w", err)
		}
	}

	table := tariffs.Table()
	if table.Len() == 0 {
		return errors.New("no tariffs stored; run `carbot tariffs refresh` first")
	}
	if key, ok := table.MatchLocation(req.Auction, req.Location); ok {
		req.Location = key
	}

	result, err := calculator.Calculate(req, table, time.Now())
	if err != nil {
		return err
	}

	if quoteFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	report := calculator.ClientReport(result, calculator.Contacts{
		Phone: cfg.ContactPhone, Name: cfg.ContactName, Telegram: cfg.ContactTelegram,
	})
	if req.Mode == calculator.ModePro {
		report = calculator.ProReport(result)
	}
	fmt.Println(plainText(report))
	return nil
}

func quoteRequest() (calculator.Request, error) {
	auction, err := calculator.ParseAuction(quoteAuction)
	if err != nil {
		return calculator.Request{}, err
	}
	engine, err := calculator.ParseEngineType(quoteEngine)
	if err != nil {
		return calculator.Request{}, err
	}
	if quoteFormat != "text" && quoteFormat != "json" {
		return calculator.Request{}, fmt.Errorf("unknown format %q", quoteFormat)
	}

	req := calculator.Request{
		Auction:     auction,
		Bid:         quoteBid,
		Location:    quoteLocation,
		Insurance:   quoteInsurance,
		VehicleYear: quoteYear,
		Engine:      engine,
		Mode:        calculator.Mode(quoteMode),
	}
	switch engine {
	case calculator.Gasoline, calculator.Diesel:
		req.VolumeCC = &quoteVolume
	case calculator.Electric:
		req.BatteryKWh = &quoteBattery
	}
	return req, nil
}

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// plainText turns a Telegram HTML report into terminal text
func plainText(s string) string {
	return html.UnescapeString(htmlTag.ReplaceAllString(s, ""))
}
