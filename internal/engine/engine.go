package engine

import (
	"time"

	"github.com/samber/lo"

	"github.com/DoyleJ11/typerace-backend/pkg/types"
)

// Score counts the leading words of typed that match paragraph word for word.
// The count stops at the first mismatch, so a wrong word freezes the score even
// if later words happen to line up again.
func Score(paragraph, typed string) int {
	want := splitWords(paragraph)
	got := splitWords(typed)

	n := 0
	for n < len(want) && n < len(got) && want[n] == got[n] {
		n++
	}
	return n
}

// Winner returns the participant with the strictly highest score. Ties go to
// whoever comes first in roster order.
func Winner(roster []types.Participant) (types.Participant, bool) {
	if len(roster) == 0 {
		return types.Participant{}, false
	}
	return lo.MaxBy(roster, func(a, b types.Participant) bool {
		return a.Score > b.Score
	}), true
}

type RoundResult struct {
	RoomID     string
	SessionID  string
	Round      int
	Paragraph  string
	Standings  []types.Participant
	Winner     types.Participant
	HasWinner  bool
	FinishedAt time.Time
}

func NewRoundResult(roomID, sessionID string, round int, paragraph string, roster []types.Participant, at time.Time) RoundResult {
	winner, ok := Winner(roster)
	return RoundResult{
		RoomID:     roomID,
		SessionID:  sessionID,
		Round:      round,
		Paragraph:  paragraph,
		Standings:  roster,
		Winner:     winner,
		HasWinner:  ok,
		FinishedAt: at,
	}
}
