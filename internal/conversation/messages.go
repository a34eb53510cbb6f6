package conversation

import (
	"fmt"
	"strings"

	"github.com/chatarr/chatarr/internal/media"
)

// Requester-facing copy lives here so the engine stays readable. Replies
// are plain language and never leak internal identifiers.

const (
	replyHelp = "Hi! Tell me what you'd like to watch, for example \"find movie Inception\" or \"add show Severance\"."

	replyCancelled = "Okay, cancelled. Tell me whenever you want to request something else."

	replyNotFound = "I couldn't find anything matching \"%s\". Try a different title?"

	replySearchFailed = "Something went wrong while searching. Please try again in a moment."

	replySubmitted = "Got it! Your request for %s has been submitted for approval. I'll let you know once it's been handled."
)

func formatResultList(query string, results []media.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found for \"%s\":\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s", i+1, describeResult(r))
		b.WriteString("\n")
	}
	b.WriteString("\nReply with a number to pick one, or \"cancel\" to stop.")
	return b.String()
}

func describeResult(r media.Result) string {
	label := r.Title
	if r.Year > 0 {
		label = fmt.Sprintf("%s (%d)", label, r.Year)
	}
	if r.IsSeries() {
		if r.SeasonCount == 1 {
			label += " [series, 1 season]"
		} else if r.SeasonCount > 1 {
			label += fmt.Sprintf(" [series, %d seasons]", r.SeasonCount)
		} else {
			label += " [series]"
		}
	} else {
		label += " [movie]"
	}
	return label
}

func formatSeasonPrompt(r media.Result, seasons []int) string {
	return fmt.Sprintf(
		"%s has %d seasons (%s).\nWhich would you like? Reply with season numbers like \"1, 2\", \"all\" for everything, or \"cancel\".",
		r.Title, len(seasons), formatSeasonList(seasons))
}

func formatSeasonList(seasons []int) string {
	parts := make([]string, 0, len(seasons))
	for _, s := range seasons {
		parts = append(parts, fmt.Sprintf("%d", s))
	}
	return strings.Join(parts, ", ")
}

func formatConfirmation(s *Session) string {
	var b strings.Builder
	b.WriteString("You picked ")
	b.WriteString(describeResult(*s.Selected))
	if len(s.SeasonsChosen) > 0 {
		if len(s.SeasonsChosen) == len(s.SeasonsAvailable) {
			b.WriteString(", all seasons")
		} else {
			fmt.Fprintf(&b, ", season(s) %s", formatSeasonList(s.SeasonsChosen))
		}
	}
	b.WriteString(".\nShall I request it? (yes/no)")
	return b.String()
}

func formatOutOfRange(count int) string {
	return fmt.Sprintf("Please pick a number between 1 and %d, or \"cancel\" to stop.", count)
}
