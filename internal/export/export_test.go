package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgenie/cloud-architect/internal/components"
	"github.com/archgenie/cloud-architect/internal/cost"
	"github.com/archgenie/cloud-architect/internal/models"
)

func TestWriteCodeZip(t *testing.T) {
	t.Run("files land under their names", func(t *testing.T) {
		files := []*models.CodeFile{
			{FileName: "web_tier.tf", FileContent: `resource "azurerm_app_service" "web" {}`},
			{FileName: "sql_database.tf", FileContent: `resource "azurerm_mssql_database" "db" {}`},
		}

		var buf bytes.Buffer
		require.NoError(t, WriteCodeZip(&buf, files))

		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.NoError(t, err)
		require.Len(t, zr.File, 2)

		contents := make(map[string]string)
		for _, f := range zr.File {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
			contents[f.Name] = string(data)
		}
		assert.Equal(t, `resource "azurerm_app_service" "web" {}`, contents["web_tier.tf"])
		assert.Equal(t, `resource "azurerm_mssql_database" "db" {}`, contents["sql_database.tf"])
	})

	t.Run("duplicate names get a numbered suffix", func(t *testing.T) {
		files := []*models.CodeFile{
			{FileName: "main.tf", FileContent: "a"},
			{FileName: "main.tf", FileContent: "b"},
			{FileName: "main.tf", FileContent: "c"},
		}

		var buf bytes.Buffer
		require.NoError(t, WriteCodeZip(&buf, files))

		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.NoError(t, err)

		names := make([]string, 0, len(zr.File))
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		assert.ElementsMatch(t, []string{"main.tf", "1_main.tf", "2_main.tf"}, names)
	})

	t.Run("empty file list yields a valid empty archive", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteCodeZip(&buf, nil))

		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.NoError(t, err)
		assert.Empty(t, zr.File)
	})
}

func TestWriteCostsCSV(t *testing.T) {
	summary := cost.Summary{
		Currency:      "USD",
		TotalEstimate: 84.07,
		Items: []cost.Item{
			{
				Record: components.Record{
					Cloud: "azure", Service: "app_service", SKU: "S1", Quantity: 1, Region: "eastus",
				},
				UnitMonthly: 69.35,
				Monthly:     69.35,
			},
			{
				Record: components.Record{
					Cloud: "azure", Service: "azure_sql", SKU: "S0", Quantity: 1, Region: "eastus",
				},
				UnitMonthly: 14.72,
				Monthly:     14.72,
			},
		},
		Notes: []string{"LB rules defaulted to 2/h."},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCostsCSV(&buf, summary))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"cloud", "service", "sku", "region", "qty", "unit_monthly_usd", "monthly_usd"}, rows[0])
	assert.Equal(t, []string{"azure", "app_service", "S1", "eastus", "1", "69.35", "69.35"}, rows[1])
	assert.Equal(t, []string{"azure", "azure_sql", "S0", "eastus", "1", "14.72", "14.72"}, rows[2])
	assert.Equal(t, []string{"", "", "", "", "", "total", "84.07"}, rows[3])
	assert.Equal(t, "note", rows[4][0])
	assert.Equal(t, "LB rules defaulted to 2/h.", rows[4][1])
}

func TestWriteCostsCSVEmptySummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCostsCSV(&buf, cost.Summary{Currency: "USD"}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"", "", "", "", "", "total", "0.00"}, rows[1])
}
