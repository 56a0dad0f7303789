// Package sales is a sequential CSV-backed sales aggregation utility. It has
// no concurrency: records are loaded once and reduced in memory.
package sales

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Record is one row of the sales CSV.
type Record struct {
	Date        string
	Product     string
	Category    string
	Quantity    int
	UnitPrice   float64
	TotalAmount float64
	Region      string
	SalesPerson string
}

// Columns expected in the CSV header, in order.
var columns = []string{"Date", "Product", "Category", "Quantity", "UnitPrice", "TotalAmount", "Region", "SalesPerson"}

// Load reads sales records from r. The first row must be a header. Rows with
// the wrong field count or unparsable numbers are skipped with a warning on
// stderr rather than aborting the whole load.
func Load(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV is empty, expected header row %v", columns)
	}

	var records []Record
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sales: warning: skipping row %d: %v\n", i+2, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadFile reads sales records from a CSV file on disk.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sales file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func parseRow(row []string) (Record, error) {
	if len(row) != len(columns) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(columns), len(row))
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return Record{}, fmt.Errorf("bad quantity %q", row[3])
	}
	unitPrice, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad unit price %q", row[4])
	}
	totalAmount, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad total amount %q", row[5])
	}
	return Record{
		Date:        row[0],
		Product:     row[1],
		Category:    row[2],
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalAmount: totalAmount,
		Region:      row[6],
		SalesPerson: row[7],
	}, nil
}

// Analyzer performs aggregation over a fixed set of sales records.
type Analyzer struct {
	records []Record
}

func NewAnalyzer(records []Record) *Analyzer {
	return &Analyzer{records: records}
}

func (a *Analyzer) RecordCount() int {
	return len(a.records)
}

// TotalSales sums the total amount across all records.
func (a *Analyzer) TotalSales() float64 {
	total := 0.0
	for _, r := range a.records {
		total += r.TotalAmount
	}
	return total
}

// AverageSales is the mean total amount per transaction, 0 when empty.
func (a *Analyzer) AverageSales() float64 {
	if len(a.records) == 0 {
		return 0
	}
	return a.TotalSales() / float64(len(a.records))
}

func (a *Analyzer) MaxSales() float64 {
	max := 0.0
	for _, r := range a.records {
		if r.TotalAmount > max {
			max = r.TotalAmount
		}
	}
	return max
}

func (a *Analyzer) MinSales() float64 {
	if len(a.records) == 0 {
		return 0
	}
	min := a.records[0].TotalAmount
	for _, r := range a.records[1:] {
		if r.TotalAmount < min {
			min = r.TotalAmount
		}
	}
	return min
}

// SalesByCategory aggregates total amount per category.
func (a *Analyzer) SalesByCategory() map[string]float64 {
	return a.sumBy(func(r Record) string { return r.Category })
}

// SalesByRegion aggregates total amount per region.
func (a *Analyzer) SalesByRegion() map[string]float64 {
	return a.sumBy(func(r Record) string { return r.Region })
}

// SalesBySalesPerson aggregates total amount per salesperson.
func (a *Analyzer) SalesBySalesPerson() map[string]float64 {
	return a.sumBy(func(r Record) string { return r.SalesPerson })
}

func (a *Analyzer) sumBy(key func(Record) string) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range a.records {
		out[key(r)] += r.TotalAmount
	}
	return out
}

// QuantityByCategory aggregates units sold per category.
func (a *Analyzer) QuantityByCategory() map[string]int {
	out := make(map[string]int)
	for _, r := range a.records {
		out[r.Category] += r.Quantity
	}
	return out
}

// ProductSales pairs a product with its aggregated sales amount.
type ProductSales struct {
	Product string
	Amount  float64
}

// TopProducts returns the n best-selling products by total amount, highest
// first. Ties break alphabetically so the order is deterministic.
func (a *Analyzer) TopProducts(n int) []ProductSales {
	byProduct := a.sumBy(func(r Record) string { return r.Product })
	out := make([]ProductSales, 0, len(byProduct))
	for product, amount := range byProduct {
		out = append(out, ProductSales{Product: product, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Product < out[j].Product
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// FormatReport renders the full sales analysis report.
func (a *Analyzer) FormatReport() string {
	var b strings.Builder
	sep := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "\n%s\n", sep)
	fmt.Fprintf(&b, "SALES ANALYSIS RESULTS\n")
	fmt.Fprintf(&b, "%s\n", sep)

	fmt.Fprintf(&b, "\n--- Overview ---\n")
	fmt.Fprintf(&b, "Records Analyzed: %d\n", a.RecordCount())
	fmt.Fprintf(&b, "Total Sales: %.2f\n", a.TotalSales())
	fmt.Fprintf(&b, "Average Sale: %.2f\n", a.AverageSales())
	fmt.Fprintf(&b, "Max Sale: %.2f\n", a.MaxSales())
	fmt.Fprintf(&b, "Min Sale: %.2f\n", a.MinSales())

	writeBreakdown(&b, "Sales by Category", a.SalesByCategory())
	writeBreakdown(&b, "Sales by Region", a.SalesByRegion())
	writeBreakdown(&b, "Sales by Salesperson", a.SalesBySalesPerson())

	fmt.Fprintf(&b, "\n--- Top Products ---\n")
	for i, ps := range a.TopProducts(5) {
		fmt.Fprintf(&b, "%d. %s: %.2f\n", i+1, ps.Product, ps.Amount)
	}

	fmt.Fprintf(&b, "\n--- Quantity by Category ---\n")
	quantities := a.QuantityByCategory()
	for _, key := range sortedKeys(quantities) {
		fmt.Fprintf(&b, "%s: %d units\n", key, quantities[key])
	}

	fmt.Fprintf(&b, "\n%s\n\n", sep)
	return b.String()
}

func writeBreakdown(b *strings.Builder, title string, totals map[string]float64) {
	fmt.Fprintf(b, "\n--- %s ---\n", title)
	for _, key := range sortedKeys(totals) {
		fmt.Fprintf(b, "%s: %.2f\n", key, totals[key])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
