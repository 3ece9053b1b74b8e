package main

// RankingEntry is one row of the all-time board
type RankingEntry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// rankingBoard is mock data; nothing here survives a restart and no
// real match results feed it.
var rankingBoard = []RankingEntry{
	{Rank: 1, Name: "NOVA", Score: 12840},
	{Rank: 2, Name: "Vector", Score: 11210},
	{Rank: 3, Name: "deadline", Score: 9870},
	{Rank: 4, Name: "Pix", Score: 8450},
	{Rank: 5, Name: "Karo", Score: 7990},
	{Rank: 6, Name: "slug", Score: 6120},
	{Rank: 7, Name: "Mirai", Score: 5540},
	{Rank: 8, Name: "Otto", Score: 4310},
	{Rank: 9, Name: "zip", Score: 3050},
	{Rank: 10, Name: "lastplace", Score: 1200},
}

// RankingBoard returns a copy of the mock board
func RankingBoard() []RankingEntry {
	out := make([]RankingEntry, len(rankingBoard))
	copy(out, rankingBoard)
	return out
}
