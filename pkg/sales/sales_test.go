package sales

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Product,Category,Quantity,UnitPrice,TotalAmount,Region,SalesPerson
2026-01-15,Laptop,Electronics,2,1200.00,2400.00,North,Alice
2026-01-16,Mouse,Electronics,10,25.00,250.00,South,Bob
2026-01-17,Desk,Furniture,1,300.00,300.00,North,Alice
2026-01-18,Chair,Furniture,4,75.00,300.00,East,Carol
`

func loadSample(t *testing.T) *Analyzer {
	t.Helper()
	records, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 4)
	return NewAnalyzer(records)
}

func TestLoadParsesRecords(t *testing.T) {
	records, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 4)

	first := records[0]
	assert.Equal(t, "2026-01-15", first.Date)
	assert.Equal(t, "Laptop", first.Product)
	assert.Equal(t, "Electronics", first.Category)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, 1200.00, first.UnitPrice)
	assert.Equal(t, 2400.00, first.TotalAmount)
	assert.Equal(t, "North", first.Region)
	assert.Equal(t, "Alice", first.SalesPerson)
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	csv := "Date,Product,Category,Quantity,UnitPrice,TotalAmount,Region,SalesPerson\n" +
		"2026-01-15,Laptop,Electronics,2,1200.00,2400.00,North,Alice\n" +
		"not a valid row\n" +
		"2026-01-16,Mouse,Electronics,abc,25.00,250.00,South,Bob\n" +
		"2026-01-17,Desk,Furniture,1,300.00,300.00,North,Alice\n"

	records, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoadEmptyInput(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadHeaderOnly(t *testing.T) {
	records, err := Load(strings.NewReader("Date,Product,Category,Quantity,UnitPrice,TotalAmount,Region,SalesPerson\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAggregates(t *testing.T) {
	a := loadSample(t)

	assert.Equal(t, 4, a.RecordCount())
	assert.InDelta(t, 3250.00, a.TotalSales(), 0.001)
	assert.InDelta(t, 812.50, a.AverageSales(), 0.001)
	assert.InDelta(t, 2400.00, a.MaxSales(), 0.001)
	assert.InDelta(t, 250.00, a.MinSales(), 0.001)
}

func TestGroupedAggregates(t *testing.T) {
	a := loadSample(t)

	assert.Equal(t, map[string]float64{"Electronics": 2650, "Furniture": 600}, a.SalesByCategory())
	assert.Equal(t, map[string]float64{"North": 2700, "South": 250, "East": 300}, a.SalesByRegion())
	assert.Equal(t, map[string]float64{"Alice": 2700, "Bob": 250, "Carol": 300}, a.SalesBySalesPerson())
	assert.Equal(t, map[string]int{"Electronics": 12, "Furniture": 5}, a.QuantityByCategory())
}

func TestTopProducts(t *testing.T) {
	a := loadSample(t)

	top := a.TopProducts(2)
	require.Len(t, top, 2)
	assert.Equal(t, ProductSales{Product: "Laptop", Amount: 2400}, top[0])
	// Chair and Desk tie at 300; ties break alphabetically.
	assert.Equal(t, ProductSales{Product: "Chair", Amount: 300}, top[1])

	all := a.TopProducts(-1)
	assert.Len(t, all, 4)
}

func TestEmptyAnalyzer(t *testing.T) {
	a := NewAnalyzer(nil)
	assert.Zero(t, a.TotalSales())
	assert.Zero(t, a.AverageSales())
	assert.Zero(t, a.MaxSales())
	assert.Zero(t, a.MinSales())
	assert.Empty(t, a.TopProducts(3))
}

func TestFormatReport(t *testing.T) {
	out := loadSample(t).FormatReport()

	assert.Contains(t, out, "SALES ANALYSIS RESULTS")
	assert.Contains(t, out, "Records Analyzed: 4")
	assert.Contains(t, out, "Total Sales: 3250.00")
	assert.Contains(t, out, "Average Sale: 812.50")
	assert.Contains(t, out, "--- Sales by Category ---")
	assert.Contains(t, out, "Electronics: 2650.00")
	assert.Contains(t, out, "1. Laptop: 2400.00")
	assert.Contains(t, out, "Electronics: 12 units")
}
