// Package report renders a run's period results as an XLSX workbook, one
// sheet per reporting concern.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dealflow-cli/internal/model"
)

const dateLayout = "2006-01-02"

// WriteXLSX writes period results to an XLSX workbook at path.
func WriteXLSX(path string, deal string, results []model.PeriodResult) error {
	if len(results) == 0 {
		return eris.New("report: no period results to write")
	}

	f := xlsx.NewFile()

	if err := addSummarySheet(f, deal, results); err != nil {
		return err
	}
	if err := addPaymentsSheet(f, results); err != nil {
		return err
	}
	if err := addTriggersSheet(f, results); err != nil {
		return err
	}
	if err := addFeesSheet(f, results); err != nil {
		return err
	}
	if err := addTranchesSheet(f, results); err != nil {
		return err
	}
	if hasCompliance(results) {
		if err := addComplianceSheet(f, results); err != nil {
			return err
		}
	}

	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

func addSummarySheet(f *xlsx.File, deal string, results []model.PeriodResult) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	title := sheet.AddRow()
	title.AddCell().SetString("Deal")
	title.AddCell().SetString(deal)
	sheet.AddRow()

	writeHeader(sheet,
		"Period", "Begin", "End",
		"Interest Collections", "Principal Collections",
		"Interest Leftover", "Principal Leftover",
	)
	for _, res := range results {
		row := sheet.AddRow()
		row.AddCell().SetInt(res.Period)
		row.AddCell().SetString(res.Begin.Format(dateLayout))
		row.AddCell().SetString(res.End.Format(dateLayout))
		setAmount(row, res.InterestCollections)
		setAmount(row, res.PrincipalCollections)
		setAmount(row, res.InterestLeftover)
		setAmount(row, res.PrincipalLeftover)
	}
	return nil
}

func addPaymentsSheet(f *xlsx.File, results []model.PeriodResult) error {
	sheet, err := f.AddSheet("Payments")
	if err != nil {
		return eris.Wrap(err, "report: add payments sheet")
	}

	writeHeader(sheet, "Period", "Step", "Kind", "Bucket", "Amount", "Remaining", "Deferred")
	for _, res := range results {
		for _, p := range res.Payments {
			row := sheet.AddRow()
			row.AddCell().SetInt(res.Period)
			row.AddCell().SetString(p.Step)
			row.AddCell().SetString(p.Kind)
			row.AddCell().SetString(string(p.Bucket))
			setAmount(row, p.Amount)
			setAmount(row, p.Remaining)
			row.AddCell().SetBool(p.Deferred)
		}
	}
	return nil
}

func addTriggersSheet(f *xlsx.File, results []model.PeriodResult) error {
	sheet, err := f.AddSheet("Triggers")
	if err != nil {
		return eris.Wrap(err, "report: add triggers sheet")
	}

	writeHeader(sheet,
		"Period", "Trigger", "Kind", "Threshold", "Numerator", "Denominator",
		"Ratio", "Passing", "Cure Owed", "Cure Paid", "Prior Cure Paid",
	)
	for _, res := range results {
		for _, trg := range res.Triggers {
			row := sheet.AddRow()
			row.AddCell().SetInt(res.Period)
			row.AddCell().SetString(trg.Name)
			row.AddCell().SetString(trg.Kind)
			row.AddCell().SetString(trg.Threshold.String())
			setAmount(row, trg.Numerator)
			setAmount(row, trg.Denominator)
			row.AddCell().SetString(trg.Ratio.Round(6).String())
			row.AddCell().SetBool(trg.Passing)
			setAmount(row, trg.CureOwed)
			setAmount(row, trg.CurePaid)
			setAmount(row, trg.PriorCurePaid)
		}
	}
	return nil
}

func addFeesSheet(f *xlsx.File, results []model.PeriodResult) error {
	sheet, err := f.AddSheet("Fees")
	if err != nil {
		return eris.Wrap(err, "report: add fees sheet")
	}

	writeHeader(sheet, "Period", "Fee", "Beginning Balance", "Accrued", "Paid", "Ending Balance")
	for _, res := range results {
		for _, fee := range res.Fees {
			row := sheet.AddRow()
			row.AddCell().SetInt(res.Period)
			row.AddCell().SetString(fee.Name)
			setAmount(row, fee.BeginningBalance)
			setAmount(row, fee.Accrued)
			setAmount(row, fee.Paid)
			setAmount(row, fee.EndingBalance)
		}
	}
	return nil
}

func addTranchesSheet(f *xlsx.File, results []model.PeriodResult) error {
	sheet, err := f.AddSheet("Tranches")
	if err != nil {
		return eris.Wrap(err, "report: add tranches sheet")
	}

	writeHeader(sheet,
		"Period", "Tranche", "Beginning Balance", "Interest Due", "Interest Paid",
		"Deferred Interest", "Principal Paid", "Ending Balance",
	)
	for _, res := range results {
		for _, tr := range res.Tranches {
			row := sheet.AddRow()
			row.AddCell().SetInt(res.Period)
			row.AddCell().SetString(tr.Name)
			setAmount(row, tr.BeginningBalance)
			setAmount(row, tr.InterestDue)
			setAmount(row, tr.InterestPaid)
			setAmount(row, tr.DeferredInterest)
			setAmount(row, tr.PrincipalPaid)
			setAmount(row, tr.EndingBalance)
		}
	}
	return nil
}

func addComplianceSheet(f *xlsx.File, results []model.PeriodResult) error {
	sheet, err := f.AddSheet("Compliance")
	if err != nil {
		return eris.Wrap(err, "report: add compliance sheet")
	}

	writeHeader(sheet, "Period", "Rule", "Name", "Metric", "Value", "Comparator", "Threshold", "Passing")
	for _, res := range results {
		for _, rr := range res.Compliance {
			row := sheet.AddRow()
			row.AddCell().SetInt(res.Period)
			row.AddCell().SetString(rr.RuleID)
			row.AddCell().SetString(rr.Name)
			row.AddCell().SetString(rr.Metric)
			row.AddCell().SetString(rr.Value.Round(6).String())
			row.AddCell().SetString(rr.Comparator)
			row.AddCell().SetString(rr.Threshold.String())
			row.AddCell().SetBool(rr.Passing)
		}
	}
	return nil
}

func hasCompliance(results []model.PeriodResult) bool {
	for _, res := range results {
		if len(res.Compliance) > 0 {
			return true
		}
	}
	return false
}

func writeHeader(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, name := range names {
		row.AddCell().SetString(name)
	}
}

// setAmount writes a money amount as text so the exact decimal survives
// the spreadsheet round trip.
func setAmount(row *xlsx.Row, amount decimal.Decimal) {
	row.AddCell().SetString(amount.Round(2).StringFixed(2))
}
