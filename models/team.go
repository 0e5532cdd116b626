package models

import "strings"

// Team is one franchise, keyed by the abbreviation the schedule feed uses
type Team struct {
	Abbr string `json:"abbr"`
	Name string `json:"name"`
	City string `json:"city"`
}

// DisplayName returns the full display name
func (t Team) DisplayName() string {
	return t.City + " " + t.Name
}

var teams = map[string]Team{
	"BUF": {Name: "Bills", City: "Buffalo"},
	"MIA": {Name: "Dolphins", City: "Miami"},
	"NE":  {Name: "Patriots", City: "New England"},
	"NYJ": {Name: "Jets", City: "New York"},

	"BAL": {Name: "Ravens", City: "Baltimore"},
	"CIN": {Name: "Bengals", City: "Cincinnati"},
	"CLE": {Name: "Browns", City: "Cleveland"},
	"PIT": {Name: "Steelers", City: "Pittsburgh"},

	"HOU": {Name: "Texans", City: "Houston"},
	"IND": {Name: "Colts", City: "Indianapolis"},
	"JAX": {Name: "Jaguars", City: "Jacksonville"},
	"TEN": {Name: "Titans", City: "Tennessee"},

	"DEN": {Name: "Broncos", City: "Denver"},
	"KC":  {Name: "Chiefs", City: "Kansas City"},
	"LV":  {Name: "Raiders", City: "Las Vegas"},
	"LAC": {Name: "Chargers", City: "Los Angeles"},

	"DAL": {Name: "Cowboys", City: "Dallas"},
	"NYG": {Name: "Giants", City: "New York"},
	"PHI": {Name: "Eagles", City: "Philadelphia"},
	"WAS": {Name: "Commanders", City: "Washington"},
	"WSH": {Name: "Commanders", City: "Washington"}, // feed alias

	"CHI": {Name: "Bears", City: "Chicago"},
	"DET": {Name: "Lions", City: "Detroit"},
	"GB":  {Name: "Packers", City: "Green Bay"},
	"MIN": {Name: "Vikings", City: "Minnesota"},

	"ATL": {Name: "Falcons", City: "Atlanta"},
	"CAR": {Name: "Panthers", City: "Carolina"},
	"NO":  {Name: "Saints", City: "New Orleans"},
	"TB":  {Name: "Buccaneers", City: "Tampa Bay"},

	"ARI": {Name: "Cardinals", City: "Arizona"},
	"LAR": {Name: "Rams", City: "Los Angeles"},
	"SF":  {Name: "49ers", City: "San Francisco"},
	"SEA": {Name: "Seahawks", City: "Seattle"},
}

// LookupTeam finds a team by abbreviation, case-insensitively
func LookupTeam(abbr string) (Team, bool) {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	team, ok := teams[abbr]
	if !ok {
		return Team{}, false
	}
	team.Abbr = abbr
	return team, true
}
