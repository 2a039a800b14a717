package service

import (
	"strconv"

	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/pkg/export"
)

// RankingDataset flattens a class ranking for export.
func RankingDataset(ranking []models.ClassScore) export.Dataset {
	d := export.Dataset{Title: "Class Ranking", Headers: []string{"rank", "class", "net_score", "events"}}
	for _, r := range ranking {
		d.AddRow(strconv.Itoa(r.Rank), r.Class, strconv.Itoa(r.NetScore), strconv.Itoa(r.Events))
	}
	return d
}

// TeacherStatsDataset flattens teacher statistics for export.
func TeacherStatsDataset(stats []models.TeacherStat) export.Dataset {
	d := export.Dataset{Title: "Teacher Statistics", Headers: []string{"username", "full_name", "role", "homeroom_class", "late_submissions", "class_deduction"}}
	for _, s := range stats {
		d.AddRow(s.Username, s.FullName, string(s.Role), s.HomeroomClass, strconv.Itoa(s.LateSubmissions), strconv.Itoa(s.ClassDeduction))
	}
	return d
}

// MealDataset flattens a meal report for export, total last.
func MealDataset(report *models.MealReport) export.Dataset {
	d := export.Dataset{Title: "Meal Count " + report.Date, Headers: []string{"boarding_type", "enrolled", "absent", "meals"}}
	rows := append(append([]models.MealCount{}, report.Counts...), report.Total)
	for _, c := range rows {
		d.AddRow(string(c.BoardingType), strconv.Itoa(c.Enrolled), strconv.Itoa(c.AbsentToday), strconv.Itoa(c.Meals))
	}
	return d
}

// EventsDataset flattens ledger entries for export.
func EventsDataset(events []models.ConductEvent) export.Dataset {
	d := export.Dataset{Title: "Conduct Ledger", Headers: []string{"id", "date", "kind", "class", "subject", "criterion", "points", "reporter", "note"}}
	for _, e := range events {
		d.AddRow(strconv.FormatInt(e.ID, 10), e.Date, string(e.Kind), e.SubjectClass, e.SubjectName, e.CriterionContent, strconv.Itoa(e.Points), e.ReporterUsername, e.Note)
	}
	return d
}
