package collateral

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// csvColumns is the required header for a collections file, one row per
// period.
var csvColumns = []string{
	"period",
	"interest_collections",
	"principal_collections",
	"defaulted_balance",
	"recovery_amount",
	"collateral_par_balance",
}

// ParseCSV reads a collections CSV exported by the collateral system.
func ParseCSV(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "collateral: open %s", path)
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) (*Pool, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "collateral: read header")
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var inputs []PeriodInput
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "collateral: line %d", line)
		}

		period, err := strconv.Atoi(strings.TrimSpace(record[idx["period"]]))
		if err != nil {
			return nil, eris.Wrapf(err, "collateral: line %d: period", line)
		}

		in := PeriodInput{Period: period}
		for col, dst := range map[string]*decimal.Decimal{
			"interest_collections":   &in.InterestCollections,
			"principal_collections":  &in.PrincipalCollections,
			"defaulted_balance":      &in.DefaultedBalance,
			"recovery_amount":        &in.RecoveryAmount,
			"collateral_par_balance": &in.CollateralParBalance,
		} {
			v, err := decimal.NewFromString(strings.TrimSpace(record[idx[col]]))
			if err != nil {
				return nil, eris.Wrapf(err, "collateral: line %d: %s", line, col)
			}
			*dst = v
		}
		inputs = append(inputs, in)
	}

	return NewPool(inputs)
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("collateral: missing column %q", col)
		}
	}
	return idx, nil
}
