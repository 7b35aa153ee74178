package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/arturoeanton/go-property-search/internal/app"
	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/intent"
	"github.com/arturoeanton/go-property-search/internal/middleware"
	"github.com/arturoeanton/go-property-search/internal/service"
	"github.com/arturoeanton/go-property-search/pkg/config"
	"github.com/arturoeanton/go-property-search/pkg/logging"
)

type cfgKey struct{}

func main() {
	_ = godotenv.Load()
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "propsearch",
		Usage: "Query the property recommendation engine from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Show the intent extracted from a query",
				ArgsUsage: "<query>",
				Action:    parseCommand,
			},
			{
				Name:      "search",
				Usage:     "Rank listings for a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of results per page",
						Value:   service.DefaultPageSize,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of results to skip",
					},
				},
			},
			{
				Name:   "featured",
				Usage:  "List featured listings",
				Action: featuredCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of listings (0 = all)",
						Value:   10,
					},
				},
			},
			{
				Name:   "admin-token",
				Usage:  "Issue a JWT for the admin API",
				Action: adminTokenCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "subject",
						Usage: "Token subject",
						Value: "admin",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name embedded in the token",
						Value: "Administrator",
					},
				},
			},
		},
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Setup(cfg.LogFormat, c.String("log-level"))
	c.Context = context.WithValue(c.Context, cfgKey{}, cfg)
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.Context.Value(cfgKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Defaults()
}

func queryArg(c *cli.Context) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", fmt.Errorf("a query is required")
	}
	return q, nil
}

// loadCore builds the search core and loads listings once.
func loadCore(c *cli.Context) (*app.Core, error) {
	cfg := configFrom(c)
	core, err := app.NewCore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build search core: %w", err)
	}
	ctx, cancel := context.WithTimeout(c.Context, cfg.RefreshTimeout)
	defer cancel()
	if _, err := core.Load(ctx); err != nil {
		core.Close()
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	return core, nil
}

func parseCommand(c *cli.Context) error {
	q, err := queryArg(c)
	if err != nil {
		return err
	}
	in := intent.NewParser().Parse(q)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, in)
	}

	w := c.App.Writer
	if in.IsEmpty() {
		fmt.Fprintln(w, "No preferences recognised.")
		return nil
	}
	if in.MaxBudget != nil {
		fmt.Fprintf(w, "Budget:    %s\n", formatAED(*in.MaxBudget))
	}
	if in.MinBedrooms != nil {
		fmt.Fprintf(w, "Bedrooms:  %d\n", *in.MinBedrooms)
	}
	if in.PropertyType != nil {
		fmt.Fprintf(w, "Type:      %s\n", *in.PropertyType)
	}
	if in.Location != nil {
		fmt.Fprintf(w, "Location:  %s\n", *in.Location)
	}
	if in.Status != nil {
		fmt.Fprintf(w, "Status:    %s\n", *in.Status)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	q, err := queryArg(c)
	if err != nil {
		return err
	}
	core, err := loadCore(c)
	if err != nil {
		return err
	}
	defer core.Close()

	res, err := core.Search.Search(c.Context, service.SearchRequest{
		Message: q,
		Limit:   c.Int("limit"),
		Offset:  c.Int("offset"),
	})
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, res)
	}

	w := c.App.Writer
	fmt.Fprintln(w, res.Text)
	fmt.Fprintln(w)
	for i, r := range res.Recommendations {
		fmt.Fprintf(w, "%3d. [%5.1f] %s\n", res.Pagination.Offset+i+1, r.MatchScore, describe(r.Listing))
		if len(r.TopReasons) > 0 {
			fmt.Fprintf(w, "            %s\n", strings.Join(r.TopReasons, "; "))
		}
	}
	p := res.Pagination
	fmt.Fprintf(w, "\nShowing %d of %d", p.CurrentCount, p.Total)
	if p.HasMore {
		fmt.Fprintf(w, " (next: --offset %d)", p.Offset+p.CurrentCount)
	}
	fmt.Fprintln(w)
	return nil
}

func featuredCommand(c *cli.Context) error {
	core, err := loadCore(c)
	if err != nil {
		return err
	}
	defer core.Close()

	listings := core.Recommender.Featured(c.Int("limit"))
	if c.Bool("json") {
		return writeJSON(c.App.Writer, listings)
	}
	for _, l := range listings {
		fmt.Fprintln(c.App.Writer, describe(l))
	}
	return nil
}

func adminTokenCommand(c *cli.Context) error {
	cfg := configFrom(c)
	token, err := middleware.GenerateJWT(c.String("subject"), c.String("name"), "admin", middleware.JWTConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: time.Duration(cfg.JWTExpiration) * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func describe(l domain.Listing) string {
	price := "price on request"
	if l.Price != nil {
		price = formatAED(*l.Price)
	}
	beds := "studio"
	if l.Bedrooms > 0 {
		beds = fmt.Sprintf("%d BR", l.Bedrooms)
	}
	return fmt.Sprintf("%s | %s | %s %s | %s | %s", l.ID, l.Title, beds, l.PropertyType, l.LocationName(), price)
}

func formatAED(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("AED %.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("AED %.0fK", v/1_000)
	default:
		return fmt.Sprintf("AED %.0f", v)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
