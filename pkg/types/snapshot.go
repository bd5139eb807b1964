package types

// Participant is one roster entry as clients see it:
//   id: string
//   name: string
//   score: number
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}
