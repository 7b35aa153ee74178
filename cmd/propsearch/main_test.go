package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/middleware"
)

const testCSV = "id,title,community,city,property_type,bedrooms,bathrooms,size_sqft,price_aed,status,featured\n" +
	"p1,Marina Vista,Dubai Marina,Dubai,Apartment,2,2,1250,2400000,Off-plan,True\n" +
	"p2,Circle Studio,Jumeirah Village Circle,Dubai,Studio,0,1,450,650000,Ready,False\n"

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("USE_REALTIME_DATA", "false")
	t.Setenv("NARRATOR", "none")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"propsearch"}, args...))
	return out.String(), err
}

func withListings(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "properties.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o644))
	t.Setenv("DATA_CSV_PATH", path)
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	find := func(name string) *cli.Command {
		for _, cmd := range app.Commands {
			if cmd.Name == name {
				return cmd
			}
		}
		return nil
	}

	t.Run("all commands are registered", func(t *testing.T) {
		for _, name := range []string{"parse", "search", "featured", "admin-token"} {
			assert.NotNil(t, find(name), name)
		}
	})

	t.Run("search limit defaults to the page size", func(t *testing.T) {
		cmd := find("search")
		require.NotNil(t, cmd)
		var limit *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "limit" {
				limit = f
			}
		}
		require.NotNil(t, limit)
		assert.Equal(t, 20, limit.Value)
	})
}

func TestParseCommand(t *testing.T) {
	t.Run("text output", func(t *testing.T) {
		out, err := runApp(t, "parse", "2 bed apartment in dubai marina under 3m")
		require.NoError(t, err)
		assert.Contains(t, out, "Budget:    AED 3.00M")
		assert.Contains(t, out, "Bedrooms:  2")
		assert.Contains(t, out, "Type:      Apartment")
		assert.Contains(t, out, "Location:  Dubai Marina")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := runApp(t, "--json", "parse", "ready villa in palm")
		require.NoError(t, err)
		var in domain.Intent
		require.NoError(t, json.Unmarshal([]byte(out), &in))
		require.NotNil(t, in.PropertyType)
		assert.Equal(t, domain.PropertyTypeVilla, *in.PropertyType)
		require.NotNil(t, in.Location)
		assert.Equal(t, "Palm Jumeirah", *in.Location)
		require.NotNil(t, in.Status)
		assert.Equal(t, domain.StatusReady, *in.Status)
	})

	t.Run("nothing recognised", func(t *testing.T) {
		out, err := runApp(t, "parse", "hello there")
		require.NoError(t, err)
		assert.Contains(t, out, "No preferences recognised.")
	})

	t.Run("query is required", func(t *testing.T) {
		_, err := runApp(t, "parse")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query")
	})
}

func TestSearchCommand(t *testing.T) {
	withListings(t)

	out, err := runApp(t, "search", "apartment in dubai marina under 3m")
	require.NoError(t, err)
	assert.Contains(t, out, "p1 | Marina Vista | 2 BR Apartment | Dubai Marina | AED 2.40M")
	assert.Contains(t, out, "Showing")
}

func TestSearchCommand_MissingData(t *testing.T) {
	t.Setenv("DATA_CSV_PATH", filepath.Join(t.TempDir(), "missing.csv"))
	_, err := runApp(t, "search", "villa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load listings")
}

func TestFeaturedCommand(t *testing.T) {
	withListings(t)

	out, err := runApp(t, "--json", "featured")
	require.NoError(t, err)
	var listings []domain.Listing
	require.NoError(t, json.Unmarshal([]byte(out), &listings))
	require.Len(t, listings, 1)
	assert.Equal(t, "p1", listings[0].ID)
}

func TestAdminTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	out, err := runApp(t, "admin-token", "--subject", "ops")
	require.NoError(t, err)

	claims, err := middleware.ValidateJWT(string(bytes.TrimSpace([]byte(out))), middleware.JWTConfig{
		Secret: "cli-secret",
		Issuer: "property-search",
	})
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestFormatAED(t *testing.T) {
	assert.Equal(t, "AED 1.50M", formatAED(1_500_000))
	assert.Equal(t, "AED 750K", formatAED(750_000))
	assert.Equal(t, "AED 900", formatAED(900))
}
