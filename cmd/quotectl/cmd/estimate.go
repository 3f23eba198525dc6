package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"coachquote/internal/modules/pricing"
	"coachquote/internal/modules/ratetable"
	"coachquote/internal/types"
)

var (
	estRates      string
	estXLSX       string
	estReq        pricing.EstimateRequest
	estJSON       bool
	estOnSite     int
	estBreak      int
	estStay       bool
	estRoundTrip  bool
	estDistanceKm float64
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Price one trip",
	Long: `Price one trip against the rate tables without storing anything.

Rate tables come from --rates (YAML), --xlsx, COACHQUOTE_RATETABLE_FILE or Postgres,
in that order.`,
	RunE: runEstimate,
}

func init() {
	f := estimateCmd.Flags()
	f.StringVar(&estRates, "rates", "", "YAML rate-table file")
	f.StringVar(&estXLSX, "xlsx", "", "xlsx rate-table workbook")
	f.Float64Var(&estDistanceKm, "distance", 0, "distance in km [REQUIRED]")
	f.IntVar(&estReq.Trip.DriveMinutes, "drive", 0, "driving minutes")
	f.IntVar(&estOnSite, "onsite", 0, "minutes on site")
	f.IntVar(&estBreak, "break", 0, "driver break minutes while on site")
	f.IntVar(&estReq.Trip.NumberOfDays, "days", 1, "number of days")
	f.BoolVar(&estRoundTrip, "round-trip", false, "coach returns with the group")
	f.BoolVar(&estStay, "stay", false, "coach and driver stay with the group (multi-day)")
	f.IntVar(&estReq.PassengerCount, "passengers", 0, "passenger count [REQUIRED]")
	f.StringVar(&estReq.DepartureDept, "from", "", "departure department code")
	f.StringVar(&estReq.ArrivalDept, "to", "", "arrival department code")
	f.StringVar(&estReq.CountryCode, "country", "FR", "country code for VAT and currency")
	f.BoolVar(&estJSON, "json", false, "print the full result as JSON")

	_ = estimateCmd.MarkFlagRequired("distance")
	_ = estimateCmd.MarkFlagRequired("passengers")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	snap, err := loadSnapshot(ctx, estRates, estXLSX)
	if err != nil {
		return err
	}

	req := estReq
	req.Trip.DistanceKm = estDistanceKm
	req.Trip.OnSiteMinutes = estOnSite
	req.Trip.BreakMinutes = estBreak
	req.Trip.RoundTrip = estRoundTrip
	req.Trip.StayWithGroup = estStay

	svc := pricing.NewService(ratetable.ForPricing(staticSnapshot{snap}), nil, logger)
	est, err := svc.Estimate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", pricing.ErrorKind(err), err)
	}

	if estJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	}

	p := est.Pricing
	money := func(d decimal.Decimal) string { return types.NewMoney(d, p.Currency).Format(p.MinorUnits) }
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Rate tables\t%s\n", est.RateTableVersion)
	fmt.Fprintf(w, "Category\t%s", est.Trip.Category())
	if est.Trip.Amplitude != pricing.AmplitudeNone {
		fmt.Fprintf(w, " (%s)", est.Trip.Amplitude)
	}
	fmt.Fprintln(w)
	if p.GridBandUsed != nil {
		fmt.Fprintf(w, "Band\t%d-%d km\n", p.GridBandUsed.KmMin, p.GridBandUsed.KmMax)
	}
	if p.OffGridFallbackUsed {
		fmt.Fprintf(w, "Band\toff-grid per-km rate (review required)\n")
	}
	fmt.Fprintf(w, "Fleet\t%d x %s (%d seats)\n", est.Fleet.VehicleCount, est.Fleet.VehicleClass, est.Fleet.TotalCapacity)
	fmt.Fprintf(w, "Base fare HT\t%s\n", money(p.BaseFareHT))
	fmt.Fprintf(w, "Regional surcharge\t%s\n", money(p.RegionalSurchargeAmount))
	fmt.Fprintf(w, "Vehicle coefficient\t%s\n", p.VehicleCoefficientApplied)
	fmt.Fprintf(w, "Per vehicle HT\t%s\n", money(p.PerVehicleFareHT))
	fmt.Fprintf(w, "Subtotal HT\t%s\n", money(p.SubtotalHT))
	fmt.Fprintf(w, "VAT (%s%%)\t%s\n", p.VATRate, money(p.VATAmount))
	fmt.Fprintf(w, "Total TTC\t%s\n", money(p.TotalTTC))
	return w.Flush()
}
