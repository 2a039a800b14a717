package models

// ClassScore is one row of the class ranking.
type ClassScore struct {
	Rank     int    `json:"rank"`
	Class    string `json:"class"`
	NetScore int    `json:"net_score"`
	Events   int    `json:"events"`
}

// TeacherStat summarises plan punctuality and class conduct for a teacher.
type TeacherStat struct {
	Username        string    `json:"username"`
	FullName        string    `json:"full_name"`
	Role            StaffRole `json:"role"`
	HomeroomClass   string    `json:"homeroom_class,omitempty"`
	LateSubmissions int       `json:"late_submissions"`
	ClassDeduction  int       `json:"class_deduction"`
}

// MealCount is the number of meals to prepare for one boarding type.
type MealCount struct {
	BoardingType BoardingType `json:"boarding_type"`
	Enrolled     int          `json:"enrolled"`
	AbsentToday  int          `json:"absent_today"`
	Meals        int          `json:"meals"`
}

// MealReport groups the per-type counts for a day.
type MealReport struct {
	Date   string      `json:"date"`
	Counts []MealCount `json:"counts"`
	Total  MealCount   `json:"total"`
}
