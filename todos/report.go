package todos

import (
	"time"

	"github.com/tealeg/xlsx/v3"
)

const (
	ReportSheetName  = "待办事项"
	ReportTimeLayout = "2006-01-02 15:04"
)

var reportColumns = []string{
	"患者",
	"标题",
	"事件类型",
	"级别",
	"事件时间",
	"状态",
	"内容",
	"处理人",
	"处理时间",
	"处理内容",
}

type Report struct {
	items    []Item
	location *time.Location
}

func NewReport(items []Item, location *time.Location) Report {
	if location == nil {
		location = time.Local
	}
	return Report{items: items, location: location}
}

func (r Report) Generate() (*xlsx.File, error) {
	report := xlsx.NewFile()

	sh, err := report.AddSheet(ReportSheetName)
	if err != nil {
		return nil, err
	}

	r.addHeader(sh)
	for _, item := range r.items {
		r.addItem(sh, item)
	}

	return report, nil
}

func (r Report) addHeader(sh *xlsx.Sheet) {
	currentRow := sh.AddRow()
	for _, column := range reportColumns {
		currentRow.AddCell().SetValue(column)
	}
}

func (r Report) addItem(sh *xlsx.Sheet, item Item) {
	currentRow := sh.AddRow()
	currentRow.AddCell().SetValue(item.PatientName)
	currentRow.AddCell().SetValue(item.Title)
	currentRow.AddCell().SetValue(item.EventType)
	currentRow.AddCell().SetValue(item.Level)
	currentRow.AddCell().SetValue(item.EventTime.In(r.location).Format(ReportTimeLayout))
	currentRow.AddCell().SetValue(item.StatusDisplay)
	currentRow.AddCell().SetValue(item.Content)

	handler := ""
	if item.Handler != nil {
		handler = *item.Handler
	}
	currentRow.AddCell().SetValue(handler)

	handleTime := ""
	if item.HandleTime != nil {
		handleTime = item.HandleTime.In(r.location).Format(ReportTimeLayout)
	}
	currentRow.AddCell().SetValue(handleTime)
	currentRow.AddCell().SetValue(item.HandleContent)
}
