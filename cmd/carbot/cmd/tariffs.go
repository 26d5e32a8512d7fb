package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itransmotors/carbot/internal/calculator"
)

var tariffsAuction string

var tariffsCmd = &cobra.Command{
	Use:   "tariffs",
	Short: "Inspect and refresh the inland shipping tariffs",
}

var tariffsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tariff entries",
	Args:  cobra.NoArgs,
	RunE:  runTariffsList,
}

var tariffsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload tariffs from the spreadsheet and store a snapshot",
	Args:  cobra.NoArgs,
	RunE:  runTariffsRefresh,
}

func init() {
	tariffsCmd.AddCommand(tariffsListCmd)
	tariffsCmd.AddCommand(tariffsRefreshCmd)

	tariffsListCmd.Flags().StringVarP(&tariffsAuction, "auction", "a", "", "only list one auction house (copart, iaai)")
}

func runTariffsList(cmd *cobra.Command, args []string) error {
	auctions := calculator.Auctions()
	if tariffsAuction != "" {
		a, err := calculator.ParseAuction(tariffsAuction)
		if err != nil {
			return err
		}
		auctions = []calculator.Auction{a}
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	table := newTariffService(db, nil).Table()
	if table.Len() == 0 {
		fmt.Println("No tariffs stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tPORT\tRATE")
	for _, a := range auctions {
		for _, key := range table.Locations(a) {
			e, _ := table.Lookup(key)
			fmt.Fprintf(w, "%s\t%s\t%d-%d\n", key, e.Port, e.Rate.Lower, e.Rate.Upper)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nCopart: %d, IAAI: %d\n", table.Count(calculator.Copart), table.Count(calculator.IAAI))
	return nil
}

func runTariffsRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sheet, err := openSheets(ctx)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}
	if sheet == nil {
		return errors.New("SPREADSHEET_ID is required")
	}

	history, err := newTariffService(db, sheet).Refresh(ctx)
	if history != nil {
		fmt.Printf("Status: %s, entries: %d\n", history.Status, history.ItemsSynced)
		if history.ErrorMessage != "" {
			fmt.Printf("Errors: %s\n", history.ErrorMessage)
		}
	}
	return err
}
