package domain

import "time"

// MonthNames названия месяцев в порядке календаря
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthlyReport гистограмма подписок по месяцу начала
type MonthlyReport struct {
	AllPayments        []GatewaySubscription `json:"allPayments"`
	FinalMonths        map[string]int        `json:"finalMonths"`
	MonthlySalesRecord [12]int               `json:"monthlySalesRecord"`
}

// NewMonthlyReport строит отчет по списку подписок.
// Элементы без start_at в гистограмму не попадают. Месяц считается в UTC.
func NewMonthlyReport(items []GatewaySubscription) MonthlyReport {
	report := MonthlyReport{
		AllPayments: items,
		FinalMonths: make(map[string]int, len(MonthNames)),
	}
	if report.AllPayments == nil {
		report.AllPayments = []GatewaySubscription{}
	}

	for _, item := range items {
		if item.StartAt <= 0 {
			continue
		}
		month := time.Unix(item.StartAt, 0).UTC().Month()
		report.MonthlySalesRecord[month-1]++
	}
	for i, name := range MonthNames {
		report.FinalMonths[name] = report.MonthlySalesRecord[i]
	}
	return report
}
