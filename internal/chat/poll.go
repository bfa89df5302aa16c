package chat

import "fmt"

// PollOption holds the ordered voter ids of one option.
type PollOption struct {
	Text   string
	Voters []uint
}

// PollState is the vote sub-state of a poll message. A voter appears in at
// most one option.
type PollState struct {
	MessageID uint
	Question  string
	Options   []PollOption
}

// NewPollState builds an empty tally for p.
func NewPollState(messageID uint, p Poll) *PollState {
	s := &PollState{MessageID: messageID, Question: p.Question, Options: make([]PollOption, len(p.Options))}
	for i, text := range p.Options {
		s.Options[i] = PollOption{Text: text}
	}
	return s
}

// Vote moves userID's vote to optionIndex. Re-voting the same option keeps a
// single entry.
func (s *PollState) Vote(userID uint, optionIndex int) error {
	if optionIndex < 0 || optionIndex >= len(s.Options) {
		return fmt.Errorf("%w: index %d not in [0,%d)", ErrInvalidOption, optionIndex, len(s.Options))
	}
	for i := range s.Options {
		s.Options[i].Voters = without(s.Options[i].Voters, userID)
	}
	s.Options[optionIndex].Voters = append(s.Options[optionIndex].Voters, userID)
	return nil
}

// VoteOf returns the option userID currently votes for.
func (s *PollState) VoteOf(userID uint) (int, bool) {
	for i, opt := range s.Options {
		for _, v := range opt.Voters {
			if v == userID {
				return i, true
			}
		}
	}
	return -1, false
}

// OptionResult is the tally of one option.
type OptionResult struct {
	Text      string
	VoteCount int
	Voters    []uint
}

// PollResults is recomputed from the voter lists on every call.
type PollResults struct {
	Question   string
	Options    []OptionResult
	TotalVotes int
}

func (s *PollState) Results() PollResults {
	res := PollResults{Question: s.Question, Options: make([]OptionResult, len(s.Options))}
	for i, opt := range s.Options {
		voters := append([]uint(nil), opt.Voters...)
		res.Options[i] = OptionResult{Text: opt.Text, VoteCount: len(voters), Voters: voters}
		res.TotalVotes += len(voters)
	}
	return res
}

// Counts returns the per-option vote counts in option order.
func (r PollResults) Counts() []int {
	out := make([]int, len(r.Options))
	for i, o := range r.Options {
		out[i] = o.VoteCount
	}
	return out
}

func without(ids []uint, id uint) []uint {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
