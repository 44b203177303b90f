package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const salesCSV = `InvoiceNo,Quantity,InvoiceDate,UnitPrice,Country,Discount,ShippingCost,Category,SalesChannel,ReturnStatus,PaymentMethod
A1,2,2024-01-15 10:00,10,UK,0.1,5,Electronics,Online,Not Returned,Card
A2,1,2024-02-20 12:00,100,France,0,10,Furniture,In-store,Returned,PayPal
A3,3,2024-02-03 09:30,20,UK,0.5,2,Electronics,Online,Not Returned,Card
A4,4,2024-03-10 08:00,50,Germany,0.2,20,Electronics,Online,Not Returned,Card
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o600))

	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--file", path, "--issues-file", path}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestOverview(t *testing.T) {
	out, err := execute(t, "overview", "--country", "UK")
	require.NoError(t, err)
	require.Contains(t, out, "Net Revenue")
	require.Contains(t, out, "48.00")
}

func TestAggregate(t *testing.T) {
	out, err := execute(t, "aggregate", "--by", "category", "--metric", "net_revenue", "--func", "sum")
	require.NoError(t, err)
	require.Contains(t, out, "Electronics has the highest total net_revenue (208.00)")
	require.Contains(t, out, "Furniture")

	_, err = execute(t, "aggregate", "--func", "mode")
	require.Error(t, err)

	_, err = execute(t, "aggregate", "--by", "nope")
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	out, err := execute(t, "describe", "--column", "quantity")
	require.NoError(t, err)
	require.Contains(t, out, "2.50")
	require.Contains(t, out, "Distribution:")

	out, err = execute(t, "describe", "--column", "country")
	require.NoError(t, err)
	require.Contains(t, out, `Top value "UK" holds 50.00%`)
}

func TestCorrelateAndDominance(t *testing.T) {
	out, err := execute(t, "correlate", "--x", "quantity", "--y", "gross_sales")
	require.NoError(t, err)
	require.Contains(t, out, "quantity")

	out, err = execute(t, "dominance", "--column", "category")
	require.NoError(t, err)
	require.Contains(t, out, `Top value "Electronics" holds 75.00%`)
	require.Contains(t, out, "(dominant)")
}

func TestQuestions(t *testing.T) {
	out, err := execute(t, "questions", "--id", "top-category")
	require.NoError(t, err)
	require.Contains(t, out, "Electronics is the strongest category by revenue.")

	_, err = execute(t, "questions", "--id", "nope")
	require.Error(t, err)
}

func TestQuality(t *testing.T) {
	out, err := execute(t, "quality")
	require.NoError(t, err)
	require.Contains(t, out, "Records: 4")
	require.Contains(t, out, "Verdict: reliable")
}

func TestBadDateFlag(t *testing.T) {
	_, err := execute(t, "overview", "--start", "2024/01/01")
	require.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--file", filepath.Join(t.TempDir(), "missing.csv"), "overview"})
	require.Error(t, cmd.Execute())
}
