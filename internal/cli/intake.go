package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lazypower/caffeine/internal/client"
	"github.com/lazypower/caffeine/internal/engine"
	"github.com/spf13/cobra"
)

// --- add command ---

var (
	addMg    float64
	addDrink string
	addLabel string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Log a drink or a custom caffeine amount",
	Long:  "Log caffeine taken now. Pass --mg for a custom amount or --drink to use the catalog.",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	var req client.AddRequest
	switch {
	case cmd.Flags().Changed("mg"):
		v := addMg
		req.AmountMg = &v
	case addDrink != "":
		req.Drink = addDrink
	default:
		return fmt.Errorf("one of --mg or --drink is required")
	}
	req.Label = addLabel

	in, err := newClient().AddIntake(req)
	if err != nil {
		return fmt.Errorf("add intake: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged %s (%s mg) as %s\n", in.Label, formatMg(in.AmountMg), in.ID)
	return nil
}

// --- rm command ---

var rmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Remove a logged intake",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	removed, err := newClient().RemoveIntake(args[0])
	if err != nil {
		return fmt.Errorf("remove intake: %w", err)
	}
	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "no intake %s\n", args[0])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
	return nil
}

// --- list command ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show intake history, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	intakes, err := newClient().ListIntakes()
	if err != nil {
		return fmt.Errorf("list intakes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(intakes) == 0 {
		fmt.Fprintln(out, "No drinks added yet.")
		return nil
	}
	for i := len(intakes) - 1; i >= 0; i-- {
		in := intakes[i]
		fmt.Fprintf(out, "%s  %-28s %8s mg  %s (%s)\n",
			in.ID, in.Label, formatMg(in.AmountMg),
			in.TakenAt.Local().Format("15:04"), humanize.Time(in.TakenAt))
	}
	return nil
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the estimated caffeine level right now",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c := newClient()
	rd, err := c.Level()
	if err != nil {
		return fmt.Errorf("get level: %w", err)
	}
	_, halfLife, err := c.Series()
	if err != nil {
		return fmt.Errorf("get series: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%.3f mg\n", rd.LevelMg)
	fmt.Fprintln(out, "Estimated in your system right now.")
	fmt.Fprintf(out, "Based on an average caffeine half-life of %g hours.\n", halfLife)
	return nil
}

// --- curve command ---

var (
	curveEvery time.Duration
	curveWidth int
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the caffeine decay curve",
	Long:  "Print the decay curve from an hour before the first drink to 24 hours from now.",
	Args:  cobra.NoArgs,
	RunE:  runCurve,
}

func init() {
	addCmd.Flags().Float64Var(&addMg, "mg", 0, "Custom caffeine amount in milligrams")
	addCmd.Flags().StringVarP(&addDrink, "drink", "d", "", "Drink name from the catalog (see 'caffeine drinks')")
	addCmd.Flags().StringVarP(&addLabel, "label", "l", "", "Display label (default drink label or \"Custom\")")

	curveCmd.Flags().DurationVar(&curveEvery, "every", time.Hour, "Print one row per interval (multiple of 5m)")
	curveCmd.Flags().IntVar(&curveWidth, "width", 40, "Bar width for the peak level")
}

func runCurve(cmd *cobra.Command, args []string) error {
	points, _, err := newClient().Series()
	if err != nil {
		return fmt.Errorf("get series: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(points) == 0 {
		fmt.Fprintln(out, "Your chart will appear here. Add a drink to get started!")
		return nil
	}
	fmt.Fprint(out, renderCurve(points, curveEvery, curveWidth))
	return nil
}

// renderCurve draws one row per every interval with a bar scaled to the
// peak of the whole series.
func renderCurve(points []engine.Point, every time.Duration, width int) string {
	stride := int(every / engine.SeriesStep)
	if stride < 1 {
		stride = 1
	}
	if width < 1 {
		width = 1
	}

	peak := 0.0
	for _, p := range points {
		peak = math.Max(peak, p.LevelMg)
	}

	var b strings.Builder
	for i := 0; i < len(points); i += stride {
		p := points[i]
		bar := 0
		if peak > 0 {
			bar = int(math.Round(p.LevelMg / peak * float64(width)))
		}
		fmt.Fprintf(&b, "%s %9s mg |%s\n",
			p.At.Local().Format("Jan 02 15:04"), formatMg(p.LevelMg), strings.Repeat("#", bar))
	}
	return b.String()
}

// --- drinks command ---

var drinksCmd = &cobra.Command{
	Use:   "drinks",
	Short: "List the server's drinks and their caffeine content",
	Args:  cobra.NoArgs,
	RunE:  runDrinks,
}

func runDrinks(cmd *cobra.Command, args []string) error {
	drinks, err := newClient().Drinks()
	if err != nil {
		return fmt.Errorf("list drinks: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, d := range drinks {
		fmt.Fprintf(out, "%-45s %6s mg\n", d.Name, formatMg(d.Mg))
	}
	return nil
}

func formatMg(v float64) string {
	return humanize.FtoaWithDigits(v, 2)
}
