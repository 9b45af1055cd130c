package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"gitlab.com/yelinaung/split-bot/internal/models"
)

// GenerateSplitsCSV writes one row per split of an expense.
func GenerateSplitsCSV(expense models.Expense, splits []models.Split) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"Expense ID", "Date", "Payer", "Total", "Split ID", "Participant", "Amount", "Status", "Settled At"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range splits {
		settledAt := ""
		if splits[i].SettledAt != nil {
			settledAt = splits[i].SettledAt.UTC().Format("2006-01-02 15:04:05")
		}

		row := []string{
			expense.ID,
			expense.Date.Format("2006-01-02"),
			expense.PayerUsername,
			expense.Total.StringFixed(2),
			splits[i].ID,
			splits[i].ParticipantUsername,
			splits[i].Amount.StringFixed(2),
			string(splits[i].Status),
			settledAt,
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row %s: %w", splits[i].ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// generateReportFilename creates filename like "expense_EXP-1A2B3C4D.csv".
func generateReportFilename(expenseID string) string {
	return fmt.Sprintf("expense_%s.csv", expenseID)
}
